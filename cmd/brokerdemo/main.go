// Command brokerdemo runs a full broker round trip on the in-memory
// backend: adapter and device bring-up, swapchain creation, one
// present, and a clean exit, printing what a compositor would see.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/gpubroker"
	"github.com/gogpu/gpubroker/backend"
	"github.com/gogpu/gpubroker/compositor"
	"github.com/gogpu/gpubroker/identity"
	"github.com/gogpu/gpubroker/swapchain"
)

func main() {
	var (
		width       = flag.Uint("width", 64, "swapchain width in pixels")
		height      = flag.Uint("height", 48, "swapchain height in pixels")
		backendName = flag.String("backend", backend.BackendMemory, "backend to use (memory, wgpu)")
		verbose     = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	if *verbose {
		gpubroker.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	be := backend.Get(*backendName)
	if be == nil {
		log.Fatalf("backend %q not registered (available: %v)", *backendName, backend.Available())
	}
	if err := be.Init(); err != nil {
		log.Fatalf("init backend: %v", err)
	}

	bridge := compositor.NewRecordingBridge()
	broker, msgs, err := gpubroker.New(be, bridge)
	if err != nil {
		log.Fatalf("start broker: %v", err)
	}

	ids := identity.NewAllocator()
	w, h := uint32(*width), uint32(*height)

	// Adapter.
	adapterReply := make(chan gpubroker.ResponseResult, 1)
	must(broker.Send(&gpubroker.RequestAdapter{
		Reply:     adapterReply,
		AdapterID: ids.AdapterID(),
	}))
	adapterRes := <-adapterReply
	if adapterRes.Err != nil {
		log.Fatalf("request adapter: %v", adapterRes.Err)
	}
	adapter := adapterRes.Response.(*gpubroker.AdapterResponse)
	fmt.Printf("adapter: %s (id %d)\n", adapter.Name, adapter.AdapterID)

	// Device, through the channel handle the adapter reply carried.
	deviceReply := make(chan gpubroker.ResponseResult, 1)
	must(adapter.Channel.Send(&gpubroker.RequestDevice{
		Reply:      deviceReply,
		AdapterID:  adapter.AdapterID,
		DeviceID:   ids.DeviceID(),
		Descriptor: backend.DeviceDescriptor{Label: "brokerdemo"},
	}))
	deviceRes := <-deviceReply
	if deviceRes.Err != nil {
		log.Fatalf("request device: %v", deviceRes.Err)
	}
	device := deviceRes.Response.(*gpubroker.DeviceResponse)
	fmt.Printf("device: id %d, queue %d\n", device.DeviceID, device.QueueID)

	// Context and swapchain.
	ctxReply := make(chan compositor.ExternalImageID, 1)
	must(broker.Send(&gpubroker.CreateContext{Reply: ctxReply}))
	extID := <-ctxReply

	keyReply := make(chan compositor.ImageKey, 1)
	must(broker.Send(&gpubroker.CreateSwapChain{
		Reply:      keyReply,
		ExternalID: extID,
		DeviceID:   device.DeviceID,
		QueueID:    device.QueueID,
		BufferID:   ids.BufferID(),
		Width:      w,
		Height:     h,
	}))
	key := <-keyReply
	fmt.Printf("swapchain: external id %d, image key %d, stride %d\n",
		extID, key, swapchain.RowStride(w))

	// Render target and one present.
	texID := ids.TextureID()
	must(broker.Send(&gpubroker.CreateTexture{
		DeviceID:  device.DeviceID,
		TextureID: texID,
		Descriptor: backend.TextureDescriptor{
			Label:  "brokerdemo_frame",
			Width:  w,
			Height: h,
		},
	}))
	must(broker.Send(&gpubroker.SwapChainPresent{
		ExternalID: extID,
		TextureID:  texID,
		EncoderID:  ids.CommandEncoderID(),
	}))

	// Exit; the broker processes everything above first.
	ack := make(chan struct{}, 1)
	must(broker.Exit(ack))
	if _, ok := <-msgs; !ok {
		log.Fatal("upstream channel closed without shutdown message")
	}
	<-ack

	// Show what the compositor saw.
	images := swapchain.NewExternalImages(broker.Table())
	data, gotW, gotH := images.Lock(extID)
	fmt.Printf("presented: %dx%d, %d bytes\n", gotW, gotH, len(data))
	images.Unlock(extID)

	for _, txn := range bridge.Transactions() {
		for _, op := range txn.Ops() {
			fmt.Printf("compositor op: %s key=%d\n", op.Kind, op.Key)
		}
	}
}

func must(err error) {
	if err != nil {
		log.Fatalf("send: %v", err)
	}
}

package gpubroker

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpubroker/backend"
	"github.com/gogpu/gpubroker/compositor"
	"github.com/gogpu/gpubroker/id"
	"github.com/gogpu/gpubroker/swapchain"
)

// presentFixture is a broker with a device and a swapchain already set
// up against the in-memory backend.
type presentFixture struct {
	broker *Broker
	be     *backend.Memory
	bridge *compositor.RecordingBridge
	extID  compositor.ExternalImageID
	key    compositor.ImageKey

	width    uint32
	height   uint32
	bufferID id.BufferID
}

func newPresentFixture(t *testing.T, width, height uint32) *presentFixture {
	t.Helper()
	be := newMemoryBackend(t)
	broker, _, bridge := newTestBroker(t, be)

	requestAdapter(t, broker, 1)
	requestDevice(t, broker, 1, 1)

	ctxReply := make(chan compositor.ExternalImageID, 1)
	if err := broker.Send(&CreateContext{Reply: ctxReply}); err != nil {
		t.Fatalf("Send(CreateContext) error = %v", err)
	}
	extID := <-ctxReply

	keyReply := make(chan compositor.ImageKey, 1)
	err := broker.Send(&CreateSwapChain{
		Reply:      keyReply,
		ExternalID: extID,
		DeviceID:   1,
		QueueID:    backend.QueueIDForDevice(1),
		BufferID:   100,
		Width:      width,
		Height:     height,
	})
	if err != nil {
		t.Fatalf("Send(CreateSwapChain) error = %v", err)
	}
	key := <-keyReply

	return &presentFixture{
		broker:   broker,
		be:       be,
		bridge:   bridge,
		extID:    extID,
		key:      key,
		width:    width,
		height:   height,
		bufferID: 100,
	}
}

func (f *presentFixture) send(t *testing.T, req Request) {
	t.Helper()
	if err := f.broker.Send(req); err != nil {
		t.Fatalf("Send(%T) error = %v", req, err)
	}
}

func TestCreateSwapChain(t *testing.T) {
	f := newPresentFixture(t, 100, 10)
	drain(t, f.broker)

	if f.key == compositor.InvalidImageKey {
		t.Fatal("CreateSwapChain replied with the invalid key")
	}

	// Exactly one AddImage with the replied key and aligned stride.
	adds := f.bridge.OpsOfKind(compositor.OpAddImage)
	if len(adds) != 1 {
		t.Fatalf("got %d AddImage ops, want 1", len(adds))
	}
	if adds[0].Key != f.key {
		t.Errorf("AddImage key = %d, want %d", adds[0].Key, f.key)
	}
	if adds[0].Descriptor.Stride != swapchain.RowStride(f.width) {
		t.Errorf("AddImage stride = %d, want %d", adds[0].Descriptor.Stride, swapchain.RowStride(f.width))
	}
	if adds[0].Data.ExternalID != f.extID {
		t.Errorf("AddImage external id = %d, want %d", adds[0].Data.ExternalID, f.extID)
	}

	// Staging buffer allocated at stride*height.
	buf, err := f.be.BufferBytes(f.bufferID)
	if err != nil {
		t.Fatalf("staging buffer missing: %v", err)
	}
	if uint64(len(buf)) != swapchain.BufferSize(f.width, f.height) {
		t.Errorf("staging buffer size = %d, want %d", len(buf), swapchain.BufferSize(f.width, f.height))
	}

	// Placeholder pixels until the first present.
	images := swapchain.NewExternalImages(f.broker.Table())
	data, w, h := images.Lock(f.extID)
	if w != f.width || h != f.height {
		t.Errorf("locked dims = %dx%d, want %dx%d", w, h, f.width, f.height)
	}
	if len(data) == 0 || data[0] != 0xFF {
		t.Error("placeholder pixels missing before first present")
	}
	images.Unlock(f.extID)
}

func TestSwapChainZeroSize(t *testing.T) {
	f := newPresentFixture(t, 0, 0)
	drain(t, f.broker)

	buf, err := f.be.BufferBytes(f.bufferID)
	if err != nil {
		t.Fatalf("staging buffer missing: %v", err)
	}
	if len(buf) != 0 {
		t.Errorf("staging buffer size = %d, want 0", len(buf))
	}

	// Present against the empty swapchain is harmless.
	f.send(t, &CreateTexture{DeviceID: 1, TextureID: 200, Descriptor: backend.TextureDescriptor{}})
	f.send(t, &SwapChainPresent{ExternalID: f.extID, TextureID: 200, EncoderID: 300})
	drain(t, f.broker)

	if got := len(f.bridge.OpsOfKind(compositor.OpUpdateImage)); got != 1 {
		t.Errorf("got %d UpdateImage ops, want 1", got)
	}
}

func TestSwapChainPresentRoundTrip(t *testing.T) {
	f := newPresentFixture(t, 4, 2)

	f.send(t, &CreateTexture{DeviceID: 1, TextureID: 200, Descriptor: backend.TextureDescriptor{
		Width: f.width, Height: f.height,
	}})
	drain(t, f.broker)

	// Distinct content in the render target.
	pixels := make([]byte, f.width*4*f.height)
	for i := range pixels {
		pixels[i] = 0xCD
	}
	if err := f.be.SeedTexture(200, pixels); err != nil {
		t.Fatalf("SeedTexture() error = %v", err)
	}

	f.send(t, &SwapChainPresent{ExternalID: f.extID, TextureID: 200, EncoderID: 300})
	drain(t, f.broker)

	// Exactly one UpdateImage with a whole-image dirty rect.
	updates := f.bridge.OpsOfKind(compositor.OpUpdateImage)
	if len(updates) != 1 {
		t.Fatalf("got %d UpdateImage ops, want 1", len(updates))
	}
	if updates[0].Key != f.key {
		t.Errorf("UpdateImage key = %d, want %d", updates[0].Key, f.key)
	}
	if !updates[0].Dirty.All {
		t.Error("UpdateImage dirty rect does not cover the whole image")
	}

	// The presented bytes round-trip through the provider.
	images := swapchain.NewExternalImages(f.broker.Table())
	data, w, h := images.Lock(f.extID)
	if w != f.width || h != f.height {
		t.Fatalf("locked dims = %dx%d, want %dx%d", w, h, f.width, f.height)
	}
	if uint64(len(data)) != swapchain.BufferSize(f.width, f.height) {
		t.Fatalf("locked %d bytes, want %d", len(data), swapchain.BufferSize(f.width, f.height))
	}
	// First pixel of each row carries the texture content; rows start
	// at stride boundaries.
	stride := swapchain.RowStride(f.width)
	for row := uint32(0); row < f.height; row++ {
		if got := data[row*stride]; got != 0xCD {
			t.Errorf("row %d first byte = %#x, want 0xCD", row, got)
		}
	}
	images.Unlock(f.extID)
}

func TestSwapChainPresentUnknownID(t *testing.T) {
	f := newPresentFixture(t, 4, 2)
	drain(t, f.broker)
	before := len(f.bridge.Transactions())

	f.send(t, &SwapChainPresent{ExternalID: f.extID + 999, TextureID: 200, EncoderID: 300})
	drain(t, f.broker)

	if got := len(f.bridge.Transactions()); got != before {
		t.Errorf("present of unknown id emitted %d transactions", got-before)
	}
}

func TestDestroySwapChain(t *testing.T) {
	f := newPresentFixture(t, 4, 2)
	drain(t, f.broker)

	f.send(t, &DestroySwapChain{ExternalID: f.extID})
	drain(t, f.broker)

	deletes := f.bridge.OpsOfKind(compositor.OpDeleteImage)
	if len(deletes) != 1 {
		t.Fatalf("got %d DeleteImage ops, want 1", len(deletes))
	}
	if deletes[0].Key != f.key {
		t.Errorf("DeleteImage key = %d, want %d", deletes[0].Key, f.key)
	}

	// Staging buffer destroyed.
	if _, err := f.be.BufferBytes(f.bufferID); err == nil {
		t.Error("staging buffer still alive after destroy")
	}

	// Provider sees nothing.
	images := swapchain.NewExternalImages(f.broker.Table())
	data, w, h := images.Lock(f.extID)
	if data != nil || w != 0 || h != 0 {
		t.Error("destroyed swapchain still locks pixels")
	}
	images.Unlock(f.extID)
}

func TestDestroyThenPresent(t *testing.T) {
	f := newPresentFixture(t, 4, 2)

	f.send(t, &CreateTexture{DeviceID: 1, TextureID: 200, Descriptor: backend.TextureDescriptor{
		Width: f.width, Height: f.height,
	}})
	f.send(t, &DestroySwapChain{ExternalID: f.extID})
	f.send(t, &SwapChainPresent{ExternalID: f.extID, TextureID: 200, EncoderID: 300})
	drain(t, f.broker)

	// Destruction is terminal: the present emits nothing.
	if got := len(f.bridge.OpsOfKind(compositor.OpUpdateImage)); got != 0 {
		t.Errorf("got %d UpdateImage ops after destroy, want 0", got)
	}

	// And the broker keeps serving.
	if got := len(f.bridge.OpsOfKind(compositor.OpDeleteImage)); got != 1 {
		t.Errorf("got %d DeleteImage ops, want 1", got)
	}
}

func TestPresentUndersizedTexture(t *testing.T) {
	f := newPresentFixture(t, 4, 2)

	// A render target smaller than the swapchain extent: the copy must
	// fail cleanly instead of killing the broker.
	f.send(t, &CreateTexture{DeviceID: 1, TextureID: 200, Descriptor: backend.TextureDescriptor{
		Width: 2, Height: 2,
	}})
	f.send(t, &SwapChainPresent{ExternalID: f.extID, TextureID: 200, EncoderID: 300})
	drain(t, f.broker)

	if got := len(f.bridge.OpsOfKind(compositor.OpUpdateImage)); got != 0 {
		t.Errorf("got %d UpdateImage ops from a failed present, want 0", got)
	}

	// The broker keeps serving: a full-size present still lands.
	f.send(t, &CreateTexture{DeviceID: 1, TextureID: 201, Descriptor: backend.TextureDescriptor{
		Width: f.width, Height: f.height,
	}})
	f.send(t, &SwapChainPresent{ExternalID: f.extID, TextureID: 201, EncoderID: 301})
	drain(t, f.broker)

	if got := len(f.bridge.OpsOfKind(compositor.OpUpdateImage)); got != 1 {
		t.Errorf("got %d UpdateImage ops, want 1", got)
	}
}

// copyFailBackend refuses every texture copy and counts encoder
// discards.
type copyFailBackend struct {
	*backend.Memory
	discards int
}

func (b *copyFailBackend) CopyTextureToBuffer(encoderID id.CommandEncoderID, textureID id.TextureID, bufferID id.BufferID, layout gputypes.TextureDataLayout, extent gputypes.Extent3D) error {
	return errors.New("copy refused")
}

func (b *copyFailBackend) DestroyCommandEncoder(encoderID id.CommandEncoderID) error {
	b.discards++
	return b.Memory.DestroyCommandEncoder(encoderID)
}

func TestPresentCopyFailureDiscardsEncoder(t *testing.T) {
	be := &copyFailBackend{Memory: newMemoryBackend(t)}
	broker, _, bridge := newTestBroker(t, be)

	requestAdapter(t, broker, 1)
	requestDevice(t, broker, 1, 1)

	ctxReply := make(chan compositor.ExternalImageID, 1)
	if err := broker.Send(&CreateContext{Reply: ctxReply}); err != nil {
		t.Fatalf("Send(CreateContext) error = %v", err)
	}
	extID := <-ctxReply

	keyReply := make(chan compositor.ImageKey, 1)
	err := broker.Send(&CreateSwapChain{
		Reply:      keyReply,
		ExternalID: extID,
		DeviceID:   1,
		QueueID:    backend.QueueIDForDevice(1),
		BufferID:   100,
		Width:      4,
		Height:     2,
	})
	if err != nil {
		t.Fatalf("Send(CreateSwapChain) error = %v", err)
	}
	<-keyReply

	if err := broker.Send(&CreateTexture{DeviceID: 1, TextureID: 200, Descriptor: backend.TextureDescriptor{
		Width: 4, Height: 2,
	}}); err != nil {
		t.Fatalf("Send(CreateTexture) error = %v", err)
	}
	if err := broker.Send(&SwapChainPresent{ExternalID: extID, TextureID: 200, EncoderID: 300}); err != nil {
		t.Fatalf("Send(SwapChainPresent) error = %v", err)
	}
	drain(t, broker)

	if be.discards != 1 {
		t.Errorf("encoder discards = %d, want 1", be.discards)
	}
	if got := len(bridge.OpsOfKind(compositor.OpUpdateImage)); got != 0 {
		t.Errorf("got %d UpdateImage ops from a failed present, want 0", got)
	}
}

func TestDestroyUnknownSwapChain(t *testing.T) {
	f := newPresentFixture(t, 4, 2)
	drain(t, f.broker)
	before := len(f.bridge.Transactions())

	f.send(t, &DestroySwapChain{ExternalID: f.extID + 999})
	drain(t, f.broker)

	if got := len(f.bridge.Transactions()); got != before {
		t.Errorf("destroy of unknown id emitted %d transactions", got-before)
	}
}

func TestDoubleDestroySwapChain(t *testing.T) {
	f := newPresentFixture(t, 4, 2)

	f.send(t, &DestroySwapChain{ExternalID: f.extID})
	f.send(t, &DestroySwapChain{ExternalID: f.extID})
	drain(t, f.broker)

	if got := len(f.bridge.OpsOfKind(compositor.OpDeleteImage)); got != 1 {
		t.Errorf("got %d DeleteImage ops after double destroy, want 1", got)
	}
}

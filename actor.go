package gpubroker

import (
	"sync"

	"github.com/gogpu/gpubroker/backend"
	"github.com/gogpu/gpubroker/compositor"
	"github.com/gogpu/gpubroker/id"
	"github.com/gogpu/gpubroker/swapchain"
)

// actor is the single goroutine that owns the backend. It drains the
// mailbox and executes every request in arrival order, so no backend
// call ever overlaps another.
type actor struct {
	mbox     *mailbox
	msgs     chan<- Msg
	backend  backend.Backend
	bridge   compositor.Bridge
	table    *swapchain.Table
	registry *compositor.ExternalImageRegistry
	book     *bookkeeping
}

// bookkeeping is append-only diagnostics state shared between the
// actor (writer) and broker handles (snapshot readers).
type bookkeeping struct {
	mu       sync.Mutex
	adapters []id.AdapterID
	devices  []id.DeviceID
}

func (b *bookkeeping) addAdapter(adapterID id.AdapterID) {
	b.mu.Lock()
	b.adapters = append(b.adapters, adapterID)
	b.mu.Unlock()
}

func (b *bookkeeping) addDevice(deviceID id.DeviceID) {
	b.mu.Lock()
	b.devices = append(b.devices, deviceID)
	b.mu.Unlock()
}

func (a *actor) run() {
	for {
		req, ok := a.mbox.pop()
		if !ok {
			return
		}
		if a.dispatch(req) {
			return
		}
	}
}

// dispatch executes one request. It returns true when the broker should
// stop.
func (a *actor) dispatch(req Request) (exit bool) {
	switch r := req.(type) {
	case *RequestAdapter:
		a.requestAdapter(r)
	case *RequestDevice:
		a.requestDevice(r)
	case *CreateContext:
		extID := a.registry.NextID()
		Logger().Debug("gpubroker: context created", "external_id", uint64(extID))
		sendOnce(r.Reply, extID)
	case *CreateBuffer:
		a.bestEffort("create buffer", a.backend.CreateBuffer(r.DeviceID, r.BufferID, r.Descriptor))
	case *DestroyBuffer:
		a.bestEffort("destroy buffer", a.backend.DestroyBuffer(r.BufferID))
	case *UnmapBuffer:
		a.unmapBuffer(r)
	case *CreateTexture:
		a.bestEffort("create texture", a.backend.CreateTexture(r.DeviceID, r.TextureID, r.Descriptor))
	case *DestroyTexture:
		a.bestEffort("destroy texture", a.backend.DestroyTexture(r.TextureID))
	case *CreateTextureView:
		a.bestEffort("create texture view", a.backend.CreateTextureView(r.TextureID, r.ViewID, r.Descriptor))
	case *CreateSampler:
		a.bestEffort("create sampler", a.backend.CreateSampler(r.DeviceID, r.SamplerID, r.Descriptor))
	case *CreateShaderModule:
		a.bestEffort("create shader module", a.backend.CreateShaderModule(r.DeviceID, r.ModuleID, r.Source))
	case *CreateBindGroupLayout:
		a.bestEffort("create bind group layout", a.backend.CreateBindGroupLayout(r.DeviceID, r.LayoutID, r.Entries))
	case *CreateBindGroup:
		a.bestEffort("create bind group", a.backend.CreateBindGroup(r.DeviceID, r.GroupID, r.LayoutID, r.Entries))
	case *CreatePipelineLayout:
		a.bestEffort("create pipeline layout", a.backend.CreatePipelineLayout(r.DeviceID, r.LayoutID, r.BindGroupLayouts))
	case *CreateComputePipeline:
		a.bestEffort("create compute pipeline", a.backend.CreateComputePipeline(r.DeviceID, r.PipelineID, r.LayoutID, r.ModuleID, r.EntryPoint))
	case *CreateRenderPipeline:
		a.bestEffort("create render pipeline", a.backend.CreateRenderPipeline(r.DeviceID, r.PipelineID, r.Descriptor))
	case *CreateCommandEncoder:
		a.bestEffort("create command encoder", a.backend.CreateCommandEncoder(r.DeviceID, r.EncoderID))
	case *CopyBufferToBuffer:
		a.bestEffort("copy buffer to buffer", a.backend.CopyBufferToBuffer(r.EncoderID, r.Src, r.SrcOffset, r.Dst, r.DstOffset, r.Size))
	case *RunComputePass:
		a.bestEffort("run compute pass", a.backend.RunComputePass(r.EncoderID, r.Pass))
	case *RunRenderPass:
		a.bestEffort("run render pass", a.backend.RunRenderPass(r.EncoderID, r.Pass))
	case *CommandEncoderFinish:
		a.bestEffort("finish command encoder", a.backend.FinishCommandEncoder(r.EncoderID))
	case *Submit:
		a.bestEffort("submit", a.backend.Submit(r.QueueID, r.CommandBuffers))
	case *CreateSwapChain:
		a.createSwapChain(r)
	case *SwapChainPresent:
		a.present(r)
	case *DestroySwapChain:
		a.destroySwapChain(r)
	case *Exit:
		a.exit(r)
		return true
	}
	return false
}

// requestAdapter grants an adapter or sends exactly one error reply.
// A mismatch leaves no bookkeeping behind and the broker keeps running.
func (a *actor) requestAdapter(r *RequestAdapter) {
	info, err := a.backend.RequestAdapter(r.AdapterID, r.Options)
	if err != nil {
		reply(r.Reply, ResponseResult{Err: err})
		return
	}

	a.book.addAdapter(r.AdapterID)

	Logger().Info("gpubroker: adapter granted", "adapter", info.Name, "id", uint64(r.AdapterID))
	reply(r.Reply, ResponseResult{Response: &AdapterResponse{
		Name:      info.Name,
		AdapterID: r.AdapterID,
		Channel:   &Broker{mbox: a.mbox, table: a.table, book: a.book},
	}})
}

func (a *actor) requestDevice(r *RequestDevice) {
	if err := a.backend.RequestDevice(r.AdapterID, r.DeviceID, r.Descriptor); err != nil {
		reply(r.Reply, ResponseResult{Err: err})
		return
	}

	a.book.addDevice(r.DeviceID)

	reply(r.Reply, ResponseResult{Response: &DeviceResponse{
		DeviceID:   r.DeviceID,
		QueueID:    backend.QueueIDForDevice(r.DeviceID),
		Descriptor: r.Descriptor,
	}})
}

// unmapBuffer writes producer bytes back before releasing the mapping,
// so a mapped-for-write buffer keeps its edits.
func (a *actor) unmapBuffer(r *UnmapBuffer) {
	if len(r.Data) > 0 {
		a.bestEffort("unmap write-back", a.backend.WriteBuffer(r.DeviceID, r.BufferID, r.Offset, r.Data))
	}
	a.bestEffort("unmap buffer", a.backend.UnmapBuffer(r.BufferID))
}

// exit shuts the broker down: upstream message first so the embedder
// stops routing traffic, then the backend close cascades resource
// destruction, then the ack.
func (a *actor) exit(r *Exit) {
	a.msgs <- MsgExit{}
	a.backend.Close()
	a.mbox.close()
	Logger().Info("gpubroker: exited")
	if r.Ack != nil {
		r.Ack <- struct{}{}
	}
}

// bestEffort logs a failed fire-and-forget operation and moves on.
func (a *actor) bestEffort(op string, err error) {
	if err != nil {
		Logger().Warn("gpubroker: request failed", "op", op, "error", err)
	}
}

// reply delivers a result without ever blocking the actor. When the
// receiver is not ready yet the send moves to its own goroutine; a
// reply channel is consumed exactly once, so the goroutine terminates.
func reply(ch chan<- ResponseResult, res ResponseResult) {
	if ch == nil {
		return
	}
	select {
	case ch <- res:
	default:
		go func() { ch <- res }()
	}
}

// sendOnce delivers a single value the same way reply does.
func sendOnce[T any](ch chan<- T, v T) {
	if ch == nil {
		return
	}
	select {
	case ch <- v:
	default:
		go func() { ch <- v }()
	}
}

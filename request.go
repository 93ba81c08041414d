package gpubroker

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpubroker/backend"
	"github.com/gogpu/gpubroker/compositor"
	"github.com/gogpu/gpubroker/id"
)

// Request is the closed union of messages producers send to the broker.
// Every variant is a struct in this package implementing the sealed
// marker method; the dispatch loop switches exhaustively over them.
//
// Most variants are fire-and-forget: the broker executes them in
// arrival order and logs failures at Warn level. The reply-bearing
// variants (RequestAdapter, RequestDevice, CreateContext,
// CreateSwapChain, Exit) carry a channel that receives exactly one
// message per request.
type Request interface {
	isRequest()
}

// RequestAdapter asks the broker to grant a GPU adapter matching the
// options. The reply is an AdapterResponse on success, or an error when
// no adapter matches; nothing is recorded on failure.
type RequestAdapter struct {
	Reply     chan<- ResponseResult
	AdapterID id.AdapterID
	Options   gputypes.RequestAdapterOptions
}

// RequestDevice asks the broker to open a logical device on a
// previously granted adapter. The reply is a DeviceResponse or an
// error.
type RequestDevice struct {
	Reply      chan<- ResponseResult
	AdapterID  id.AdapterID
	DeviceID   id.DeviceID
	Descriptor backend.DeviceDescriptor
}

// CreateContext mints a fresh external image id for a new GPU context
// and replies with it. The id later names the context's swapchain
// toward the compositor.
type CreateContext struct {
	Reply chan<- compositor.ExternalImageID
}

// CreateBuffer creates a GPU buffer.
type CreateBuffer struct {
	DeviceID   id.DeviceID
	BufferID   id.BufferID
	Descriptor backend.BufferDescriptor
}

// DestroyBuffer frees a GPU buffer.
type DestroyBuffer struct {
	BufferID id.BufferID
}

// UnmapBuffer writes producer-side mapped bytes back into the buffer
// and releases the mapping. Data may be nil when the mapping was
// read-only.
type UnmapBuffer struct {
	DeviceID id.DeviceID
	BufferID id.BufferID
	Offset   uint64
	Data     []byte
}

// CreateTexture creates a GPU texture.
type CreateTexture struct {
	DeviceID   id.DeviceID
	TextureID  id.TextureID
	Descriptor backend.TextureDescriptor
}

// DestroyTexture frees a GPU texture.
type DestroyTexture struct {
	TextureID id.TextureID
}

// CreateTextureView creates a view onto an existing texture.
type CreateTextureView struct {
	TextureID  id.TextureID
	ViewID     id.TextureViewID
	Descriptor backend.TextureViewDescriptor
}

// CreateSampler creates a texture sampler.
type CreateSampler struct {
	DeviceID   id.DeviceID
	SamplerID  id.SamplerID
	Descriptor backend.SamplerDescriptor
}

// CreateShaderModule compiles WGSL source into a shader module.
type CreateShaderModule struct {
	DeviceID id.DeviceID
	ModuleID id.ShaderModuleID
	Source   string
}

// CreateBindGroupLayout creates a bind group layout.
type CreateBindGroupLayout struct {
	DeviceID id.DeviceID
	LayoutID id.BindGroupLayoutID
	Entries  []backend.BindGroupLayoutEntry
}

// CreateBindGroup creates a bind group against a layout.
type CreateBindGroup struct {
	DeviceID id.DeviceID
	GroupID  id.BindGroupID
	LayoutID id.BindGroupLayoutID
	Entries  []backend.BindGroupEntry
}

// CreatePipelineLayout creates a pipeline layout from bind group
// layouts.
type CreatePipelineLayout struct {
	DeviceID         id.DeviceID
	LayoutID         id.PipelineLayoutID
	BindGroupLayouts []id.BindGroupLayoutID
}

// CreateComputePipeline creates a compute pipeline.
type CreateComputePipeline struct {
	DeviceID   id.DeviceID
	PipelineID id.ComputePipelineID
	LayoutID   id.PipelineLayoutID
	ModuleID   id.ShaderModuleID
	EntryPoint string
}

// CreateRenderPipeline creates a render pipeline.
type CreateRenderPipeline struct {
	DeviceID   id.DeviceID
	PipelineID id.RenderPipelineID
	Descriptor backend.RenderPipelineDescriptor
}

// CreateCommandEncoder opens a command encoder for recording.
type CreateCommandEncoder struct {
	DeviceID  id.DeviceID
	EncoderID id.CommandEncoderID
}

// CopyBufferToBuffer records a buffer-to-buffer copy on an open
// encoder.
type CopyBufferToBuffer struct {
	EncoderID id.CommandEncoderID
	Src       id.BufferID
	SrcOffset uint64
	Dst       id.BufferID
	DstOffset uint64
	Size      uint64
}

// RunComputePass records a compute pass on an open encoder.
type RunComputePass struct {
	EncoderID id.CommandEncoderID
	Pass      backend.ComputePass
}

// RunRenderPass records a render pass on an open encoder.
type RunRenderPass struct {
	EncoderID id.CommandEncoderID
	Pass      backend.RenderPass
}

// CommandEncoderFinish closes an encoder, producing the command buffer
// registered under the id derived from the encoder's.
type CommandEncoderFinish struct {
	EncoderID id.CommandEncoderID
}

// Submit sends finished command buffers to a queue.
type Submit struct {
	QueueID        id.QueueID
	CommandBuffers []id.CommandBufferID
}

// CreateSwapChain sets up presentation for a GPU context: a staging
// buffer sized for the aligned image rows, a presentation table entry,
// and a compositor AddImage transaction. The reply carries the minted
// compositor image key.
type CreateSwapChain struct {
	Reply      chan<- compositor.ImageKey
	ExternalID compositor.ExternalImageID
	DeviceID   id.DeviceID
	QueueID    id.QueueID
	BufferID   id.BufferID
	Width      uint32
	Height     uint32
}

// SwapChainPresent copies the texture's current content into the
// swapchain's staging buffer, reads it back, and publishes an
// UpdateImage transaction. It never replies.
type SwapChainPresent struct {
	ExternalID compositor.ExternalImageID
	TextureID  id.TextureID
	EncoderID  id.CommandEncoderID
}

// DestroySwapChain tears presentation down: the table entry, the
// staging buffer, and the compositor image.
type DestroySwapChain struct {
	ExternalID compositor.ExternalImageID
}

// Exit terminates the broker. The upstream shutdown message is sent
// first, then the backend is closed, then Ack receives exactly one
// value. Requests enqueued after Exit are dropped.
type Exit struct {
	Ack chan<- struct{}
}

func (*RequestAdapter) isRequest()        {}
func (*RequestDevice) isRequest()         {}
func (*CreateContext) isRequest()         {}
func (*CreateBuffer) isRequest()          {}
func (*DestroyBuffer) isRequest()         {}
func (*UnmapBuffer) isRequest()           {}
func (*CreateTexture) isRequest()         {}
func (*DestroyTexture) isRequest()        {}
func (*CreateTextureView) isRequest()     {}
func (*CreateSampler) isRequest()         {}
func (*CreateShaderModule) isRequest()    {}
func (*CreateBindGroupLayout) isRequest() {}
func (*CreateBindGroup) isRequest()       {}
func (*CreatePipelineLayout) isRequest()  {}
func (*CreateComputePipeline) isRequest() {}
func (*CreateRenderPipeline) isRequest()  {}
func (*CreateCommandEncoder) isRequest()  {}
func (*CopyBufferToBuffer) isRequest()    {}
func (*RunComputePass) isRequest()        {}
func (*RunRenderPass) isRequest()         {}
func (*CommandEncoderFinish) isRequest()  {}
func (*Submit) isRequest()                {}
func (*CreateSwapChain) isRequest()       {}
func (*SwapChainPresent) isRequest()      {}
func (*DestroySwapChain) isRequest()      {}
func (*Exit) isRequest()                  {}

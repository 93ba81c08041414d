// Package backend defines the GPU backend collaborator the broker
// drives. A Backend executes typed create/destroy/submit/map/poll
// operations against real GPU resources, keyed by the opaque per-kind
// identifiers the broker's producers mint.
//
// The broker guarantees total serialization: every Backend call is made
// from the single actor goroutine, never concurrently. Implementations
// therefore do not need internal locking for correctness of the broker
// path, though they may carry it for their own embedders.
package backend

import (
	"errors"

	"github.com/gogpu/gpubroker/id"
	"github.com/gogpu/gputypes"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")

	// ErrNoAdapter is returned when no adapter matches the requested options.
	ErrNoAdapter = errors.New("backend: no suitable adapter")

	// ErrUnknownID is returned when an operation names an identifier the
	// backend has no resource for.
	ErrUnknownID = errors.New("backend: unknown resource id")

	// ErrBufferNotMapped is returned when reading the mapped range of a
	// buffer with no mapping in flight.
	ErrBufferNotMapped = errors.New("backend: buffer is not mapped")

	// ErrCopyOutOfRange is returned when a recorded copy names a range
	// outside its source or destination resource.
	ErrCopyOutOfRange = errors.New("backend: copy out of range")
)

// AdapterInfo describes a physical adapter granted by RequestAdapter.
type AdapterInfo struct {
	// Name is the adapter name (e.g. "NVIDIA GeForce RTX 3080").
	Name string
	// Vendor is the adapter vendor.
	Vendor string
	// Driver is the driver version string, if known.
	Driver string
}

// DeviceDescriptor describes a logical device to open on an adapter.
type DeviceDescriptor struct {
	// Label is an optional debug label for the device.
	Label string
}

// BufferDescriptor describes a buffer to create.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage gputypes.BufferUsage
}

// TextureDescriptor describes a texture to create.
type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Depth  uint32 // 0 is treated as 1
	Format gputypes.TextureFormat
	Usage  gputypes.TextureUsage
}

// TextureViewDescriptor describes a view onto a texture.
type TextureViewDescriptor struct {
	Label string
}

// SamplerDescriptor describes a texture sampler.
type SamplerDescriptor struct {
	Label string
}

// BindingType specifies the type of a shader binding.
type BindingType uint32

// Binding types.
const (
	// BindingTypeUniformBuffer is a uniform buffer binding.
	BindingTypeUniformBuffer BindingType = iota + 1

	// BindingTypeStorageBuffer is a storage buffer binding (read-write).
	BindingTypeStorageBuffer

	// BindingTypeReadOnlyStorageBuffer is a read-only storage buffer binding.
	BindingTypeReadOnlyStorageBuffer

	// BindingTypeSampler is a texture sampler binding.
	BindingTypeSampler

	// BindingTypeSampledTexture is a sampled texture binding.
	BindingTypeSampledTexture
)

// BindGroupLayoutEntry describes a single binding in a bind group layout.
type BindGroupLayoutEntry struct {
	// Binding is the binding index.
	Binding uint32

	// Type is the type of resource bound at this index.
	Type BindingType

	// MinBindingSize is the minimum buffer size for buffer bindings.
	// Set to 0 for non-buffer bindings.
	MinBindingSize uint64
}

// BindGroupEntry describes a single binding in a bind group. Exactly
// one of Buffer, TextureView, and Sampler is non-zero.
type BindGroupEntry struct {
	// Binding is the binding index.
	Binding uint32

	// Buffer is the buffer to bind (for buffer bindings).
	Buffer id.BufferID

	// Offset is the offset into the buffer.
	Offset uint64

	// Size is the size of the buffer range to bind.
	// Use 0 to bind the entire buffer from offset.
	Size uint64

	// TextureView is the texture view to bind (for texture bindings).
	TextureView id.TextureViewID

	// Sampler is the sampler to bind (for sampler bindings).
	Sampler id.SamplerID
}

// RenderPipelineDescriptor describes a render pipeline.
type RenderPipelineDescriptor struct {
	Label  string
	Layout id.PipelineLayoutID

	VertexModule     id.ShaderModuleID
	VertexEntryPoint string

	// FragmentModule may be zero for depth/stencil-only pipelines.
	FragmentModule     id.ShaderModuleID
	FragmentEntryPoint string

	Topology     gputypes.PrimitiveTopology
	ColorFormats []gputypes.TextureFormat

	SampleCount            uint32
	SampleMask             uint32
	AlphaToCoverageEnabled bool
}

// ComputePass describes one compute pass to run on an encoder: set the
// pipeline, bind the groups in index order, dispatch.
type ComputePass struct {
	Label      string
	Pipeline   id.ComputePipelineID
	BindGroups []id.BindGroupID
	Workgroups [3]uint32
}

// RenderPass describes one render pass to run on an encoder.
type RenderPass struct {
	Label         string
	Pipeline      id.RenderPipelineID
	Target        id.TextureViewID
	BindGroups    []id.BindGroupID
	VertexBuffers []id.BufferID
	VertexCount   uint32
	InstanceCount uint32
}

// Backend executes typed GPU operations keyed by broker identifiers.
// It is the black box behind the broker: resource bookkeeping, API
// translation, and hardware access all live behind this interface.
type Backend interface {
	// Name returns the backend identifier (e.g. "wgpu", "memory").
	Name() string

	// Init brings the backend up. It must be called before any other
	// operation.
	Init() error

	// Close releases the backend's global state, cascading destruction
	// of every resource still alive. The backend must not be used
	// afterwards.
	Close()

	// RequestAdapter grants a physical adapter matching the options and
	// registers it under adapterID. It returns ErrNoAdapter when no
	// adapter matches.
	RequestAdapter(adapterID id.AdapterID, opts gputypes.RequestAdapterOptions) (AdapterInfo, error)

	// RequestDevice opens a logical device on the adapter and registers
	// it under deviceID. The device's queue is registered under the
	// queue id derived from deviceID.
	RequestDevice(adapterID id.AdapterID, deviceID id.DeviceID, desc DeviceDescriptor) error

	CreateBuffer(deviceID id.DeviceID, bufferID id.BufferID, desc BufferDescriptor) error
	DestroyBuffer(bufferID id.BufferID) error

	CreateTexture(deviceID id.DeviceID, textureID id.TextureID, desc TextureDescriptor) error
	DestroyTexture(textureID id.TextureID) error
	CreateTextureView(textureID id.TextureID, viewID id.TextureViewID, desc TextureViewDescriptor) error
	CreateSampler(deviceID id.DeviceID, samplerID id.SamplerID, desc SamplerDescriptor) error

	// CreateShaderModule compiles WGSL source and registers the module
	// under moduleID.
	CreateShaderModule(deviceID id.DeviceID, moduleID id.ShaderModuleID, source string) error

	CreateBindGroupLayout(deviceID id.DeviceID, layoutID id.BindGroupLayoutID, entries []BindGroupLayoutEntry) error
	CreateBindGroup(deviceID id.DeviceID, groupID id.BindGroupID, layoutID id.BindGroupLayoutID, entries []BindGroupEntry) error
	CreatePipelineLayout(deviceID id.DeviceID, layoutID id.PipelineLayoutID, bindGroupLayouts []id.BindGroupLayoutID) error
	CreateComputePipeline(deviceID id.DeviceID, pipelineID id.ComputePipelineID, layoutID id.PipelineLayoutID, moduleID id.ShaderModuleID, entryPoint string) error
	CreateRenderPipeline(deviceID id.DeviceID, pipelineID id.RenderPipelineID, desc RenderPipelineDescriptor) error

	CreateCommandEncoder(deviceID id.DeviceID, encoderID id.CommandEncoderID) error

	// DestroyCommandEncoder discards an open encoder and everything it
	// recorded, without producing a command buffer.
	DestroyCommandEncoder(encoderID id.CommandEncoderID) error

	CopyBufferToBuffer(encoderID id.CommandEncoderID, src id.BufferID, srcOffset uint64, dst id.BufferID, dstOffset, size uint64) error

	// CopyTextureToBuffer records a copy of the texture's content into
	// the buffer using the given row layout and extent.
	CopyTextureToBuffer(encoderID id.CommandEncoderID, textureID id.TextureID, bufferID id.BufferID, layout gputypes.TextureDataLayout, extent gputypes.Extent3D) error

	RunComputePass(encoderID id.CommandEncoderID, pass ComputePass) error
	RunRenderPass(encoderID id.CommandEncoderID, pass RenderPass) error

	// FinishCommandEncoder closes the encoder and registers its command
	// buffer under the command buffer id derived from encoderID.
	FinishCommandEncoder(encoderID id.CommandEncoderID) error

	Submit(queueID id.QueueID, commandBuffers []id.CommandBufferID) error

	// WriteBuffer schedules a write of data into the buffer at offset.
	WriteBuffer(deviceID id.DeviceID, bufferID id.BufferID, offset uint64, data []byte) error

	// MapBufferAsync requests a mapping of the given buffer range. The
	// mapping is not usable until a Poll observes its completion.
	MapBufferAsync(bufferID id.BufferID, mode gputypes.MapMode, offset, size uint64) error

	// Poll processes outstanding backend work. With wait set it blocks
	// until all submitted work, including pending mappings, completes.
	Poll(deviceID id.DeviceID, wait bool) error

	// MappedRange returns the bytes of the buffer's completed mapping.
	// The slice is owned by the backend and is invalidated by
	// UnmapBuffer.
	MappedRange(bufferID id.BufferID) ([]byte, error)

	UnmapBuffer(bufferID id.BufferID) error
}

// QueueIDForDevice derives the queue id registered alongside a device.
// The backend uses the same numeric value for a device and its queue.
func QueueIDForDevice(deviceID id.DeviceID) id.QueueID {
	return id.QueueID(deviceID)
}

// CommandBufferIDForEncoder derives the command buffer id a finished
// encoder registers its recording under.
func CommandBufferIDForEncoder(encoderID id.CommandEncoderID) id.CommandBufferID {
	return id.CommandBufferID(encoderID)
}

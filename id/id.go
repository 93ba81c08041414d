// Package id defines the typed identifiers used to name GPU resources
// across the broker boundary.
//
// These opaque IDs represent GPU resources owned by the backend. The
// backend maintains the mapping between IDs and actual GPU objects; the
// broker and its producers only ever see the IDs. IDs are uint64 to
// accommodate various backend handle sizes. An ID is unique for the
// lifetime of the resource it names and is never reused while any
// reference to that resource exists.
package id

import "fmt"

// AdapterID is an opaque handle to a physical GPU adapter.
type AdapterID uint64

// DeviceID is an opaque handle to a logical GPU device.
type DeviceID uint64

// QueueID is an opaque handle to a device's command queue.
//
// The backend uses the same numeric value for a device and its queue;
// QueueID exists as a distinct type so queue-typed call sites cannot be
// handed a device by mistake.
type QueueID uint64

// BufferID is an opaque handle to a GPU buffer.
type BufferID uint64

// TextureID is an opaque handle to a GPU texture.
type TextureID uint64

// TextureViewID is an opaque handle to a texture view.
type TextureViewID uint64

// SamplerID is an opaque handle to a texture sampler.
type SamplerID uint64

// ShaderModuleID is an opaque handle to a compiled shader module.
type ShaderModuleID uint64

// BindGroupID is an opaque handle to a bind group.
type BindGroupID uint64

// BindGroupLayoutID is an opaque handle to a bind group layout.
type BindGroupLayoutID uint64

// PipelineLayoutID is an opaque handle to a pipeline layout.
type PipelineLayoutID uint64

// ComputePipelineID is an opaque handle to a compute pipeline.
type ComputePipelineID uint64

// RenderPipelineID is an opaque handle to a render pipeline.
type RenderPipelineID uint64

// CommandEncoderID is an opaque handle to a command encoder.
type CommandEncoderID uint64

// CommandBufferID is an opaque handle to a finished command buffer.
//
// A finished encoder's command buffer is registered under the encoder's
// numeric value, so converting a CommandEncoderID after Finish yields
// the matching CommandBufferID.
type CommandBufferID uint64

// SwapChainID is an opaque handle to a swapchain.
type SwapChainID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// Kind enumerates the resource kinds an identifier can name. The set is
// closed: dispatching on Kind is expected to be exhaustive.
type Kind uint8

// Resource kinds.
const (
	KindAdapter Kind = iota
	KindDevice
	KindQueue
	KindBuffer
	KindTexture
	KindTextureView
	KindSampler
	KindShaderModule
	KindBindGroup
	KindBindGroupLayout
	KindPipelineLayout
	KindComputePipeline
	KindRenderPipeline
	KindCommandEncoder
	KindCommandBuffer
	KindSwapChain

	kindCount
)

// NumKinds is the number of resource kinds.
const NumKinds = int(kindCount)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case KindAdapter:
		return "Adapter"
	case KindDevice:
		return "Device"
	case KindQueue:
		return "Queue"
	case KindBuffer:
		return "Buffer"
	case KindTexture:
		return "Texture"
	case KindTextureView:
		return "TextureView"
	case KindSampler:
		return "Sampler"
	case KindShaderModule:
		return "ShaderModule"
	case KindBindGroup:
		return "BindGroup"
	case KindBindGroupLayout:
		return "BindGroupLayout"
	case KindPipelineLayout:
		return "PipelineLayout"
	case KindComputePipeline:
		return "ComputePipeline"
	case KindRenderPipeline:
		return "RenderPipeline"
	case KindCommandEncoder:
		return "CommandEncoder"
	case KindCommandBuffer:
		return "CommandBuffer"
	case KindSwapChain:
		return "SwapChain"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

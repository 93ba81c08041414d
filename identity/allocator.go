// Package identity mints the globally unique resource identifiers used
// by the broker. Allocation policy (recycling, per-process ranges) is
// deliberately out of scope; the allocator only guarantees that a value
// handed out is never handed out again.
package identity

import (
	"sync/atomic"

	"github.com/gogpu/gpubroker/id"
)

// Allocator mints typed resource identifiers. All methods are safe for
// concurrent use from any goroutine.
//
// The zero value is not usable; call NewAllocator.
type Allocator struct {
	// One counter per kind keeps the numeric spaces independent, so a
	// BufferID and a TextureID may share a value without ever naming
	// the same resource.
	next [id.NumKinds]atomic.Uint64
}

// NewAllocator returns an allocator whose counters start at 1
// (0 is reserved as the invalid ID).
func NewAllocator() *Allocator {
	a := &Allocator{}
	for k := range a.next {
		a.next[k].Store(1)
	}
	return a
}

// Allocate mints a fresh identifier of the given kind.
func (a *Allocator) Allocate(kind id.Kind) uint64 {
	return a.next[kind].Add(1) - 1
}

// AdapterID mints a fresh adapter identifier.
func (a *Allocator) AdapterID() id.AdapterID { return id.AdapterID(a.Allocate(id.KindAdapter)) }

// DeviceID mints a fresh device identifier.
func (a *Allocator) DeviceID() id.DeviceID { return id.DeviceID(a.Allocate(id.KindDevice)) }

// BufferID mints a fresh buffer identifier.
func (a *Allocator) BufferID() id.BufferID { return id.BufferID(a.Allocate(id.KindBuffer)) }

// TextureID mints a fresh texture identifier.
func (a *Allocator) TextureID() id.TextureID { return id.TextureID(a.Allocate(id.KindTexture)) }

// TextureViewID mints a fresh texture view identifier.
func (a *Allocator) TextureViewID() id.TextureViewID {
	return id.TextureViewID(a.Allocate(id.KindTextureView))
}

// SamplerID mints a fresh sampler identifier.
func (a *Allocator) SamplerID() id.SamplerID { return id.SamplerID(a.Allocate(id.KindSampler)) }

// ShaderModuleID mints a fresh shader module identifier.
func (a *Allocator) ShaderModuleID() id.ShaderModuleID {
	return id.ShaderModuleID(a.Allocate(id.KindShaderModule))
}

// BindGroupID mints a fresh bind group identifier.
func (a *Allocator) BindGroupID() id.BindGroupID {
	return id.BindGroupID(a.Allocate(id.KindBindGroup))
}

// BindGroupLayoutID mints a fresh bind group layout identifier.
func (a *Allocator) BindGroupLayoutID() id.BindGroupLayoutID {
	return id.BindGroupLayoutID(a.Allocate(id.KindBindGroupLayout))
}

// PipelineLayoutID mints a fresh pipeline layout identifier.
func (a *Allocator) PipelineLayoutID() id.PipelineLayoutID {
	return id.PipelineLayoutID(a.Allocate(id.KindPipelineLayout))
}

// ComputePipelineID mints a fresh compute pipeline identifier.
func (a *Allocator) ComputePipelineID() id.ComputePipelineID {
	return id.ComputePipelineID(a.Allocate(id.KindComputePipeline))
}

// RenderPipelineID mints a fresh render pipeline identifier.
func (a *Allocator) RenderPipelineID() id.RenderPipelineID {
	return id.RenderPipelineID(a.Allocate(id.KindRenderPipeline))
}

// CommandEncoderID mints a fresh command encoder identifier.
func (a *Allocator) CommandEncoderID() id.CommandEncoderID {
	return id.CommandEncoderID(a.Allocate(id.KindCommandEncoder))
}

// SwapChainID mints a fresh swapchain identifier.
func (a *Allocator) SwapChainID() id.SwapChainID {
	return id.SwapChainID(a.Allocate(id.KindSwapChain))
}

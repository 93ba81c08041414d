// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/gpubroker/backend"
	"github.com/gogpu/gpubroker/id"
)

func init() {
	backend.Register(backend.BackendWGPU, func() backend.Backend {
		return New()
	})
}

// Interface compliance check.
var _ backend.Backend = (*WGPU)(nil)

// WGPU implements backend.Backend on top of the gogpu/wgpu HAL layer.
type WGPU struct {
	instance hal.Instance
	adapters []hal.ExposedAdapter

	granted map[id.AdapterID]*hal.ExposedAdapter
	devices map[id.DeviceID]hal.Device
	queues  map[id.QueueID]hal.Queue

	buffers  map[id.BufferID]*halBuffer
	textures map[id.TextureID]*halTexture
	views    map[id.TextureViewID]hal.TextureView
	samplers map[id.SamplerID]hal.Sampler

	shaders          map[id.ShaderModuleID]hal.ShaderModule
	bindGroupLayouts map[id.BindGroupLayoutID]hal.BindGroupLayout
	bindGroups       map[id.BindGroupID]hal.BindGroup
	pipelineLayouts  map[id.PipelineLayoutID]hal.PipelineLayout
	computePipelines map[id.ComputePipelineID]hal.ComputePipeline
	renderPipelines  map[id.RenderPipelineID]hal.RenderPipeline

	encoders       map[id.CommandEncoderID]*halEncoder
	commandBuffers map[id.CommandBufferID]*halCommandBuffer

	// pendingMaps holds mapping requests waiting for the next Poll.
	pendingMaps map[id.BufferID]mapRequest
	// mappedData holds completed readbacks until UnmapBuffer.
	mappedData map[id.BufferID][]byte

	// fenceValues tracks the last signaled value per device fence.
	fences      map[id.DeviceID]hal.Fence
	fenceValues map[id.DeviceID]uint64
}

type halBuffer struct {
	buf    hal.Buffer
	device id.DeviceID
	size   uint64
}

type halTexture struct {
	tex    hal.Texture
	device id.DeviceID
}

type halEncoder struct {
	enc    hal.CommandEncoder
	device id.DeviceID
}

type halCommandBuffer struct {
	cb     hal.CommandBuffer
	device id.DeviceID
}

type mapRequest struct {
	device id.DeviceID
	offset uint64
	size   uint64
}

// New returns an uninitialized HAL backend.
func New() *WGPU {
	return &WGPU{}
}

// Name implements backend.Backend.
func (w *WGPU) Name() string { return backend.BackendWGPU }

// Init creates the HAL instance and enumerates adapters.
func (w *WGPU) Init() error {
	halBackend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("wgpu: vulkan backend: %w", backend.ErrBackendNotAvailable)
	}
	instance, err := halBackend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("wgpu: create instance: %w", err)
	}
	w.instance = instance
	w.adapters = instance.EnumerateAdapters(nil)

	w.granted = make(map[id.AdapterID]*hal.ExposedAdapter)
	w.devices = make(map[id.DeviceID]hal.Device)
	w.queues = make(map[id.QueueID]hal.Queue)
	w.buffers = make(map[id.BufferID]*halBuffer)
	w.textures = make(map[id.TextureID]*halTexture)
	w.views = make(map[id.TextureViewID]hal.TextureView)
	w.samplers = make(map[id.SamplerID]hal.Sampler)
	w.shaders = make(map[id.ShaderModuleID]hal.ShaderModule)
	w.bindGroupLayouts = make(map[id.BindGroupLayoutID]hal.BindGroupLayout)
	w.bindGroups = make(map[id.BindGroupID]hal.BindGroup)
	w.pipelineLayouts = make(map[id.PipelineLayoutID]hal.PipelineLayout)
	w.computePipelines = make(map[id.ComputePipelineID]hal.ComputePipeline)
	w.renderPipelines = make(map[id.RenderPipelineID]hal.RenderPipeline)
	w.encoders = make(map[id.CommandEncoderID]*halEncoder)
	w.commandBuffers = make(map[id.CommandBufferID]*halCommandBuffer)
	w.pendingMaps = make(map[id.BufferID]mapRequest)
	w.mappedData = make(map[id.BufferID][]byte)
	w.fences = make(map[id.DeviceID]hal.Fence)
	w.fenceValues = make(map[id.DeviceID]uint64)
	return nil
}

// Close destroys every live resource and the instance. Destroying the
// devices cascades the per-device resources on the driver side, so
// only top-level objects need explicit teardown here.
func (w *WGPU) Close() {
	if w.instance == nil {
		return
	}
	for devID, fence := range w.fences {
		if dev, ok := w.devices[devID]; ok {
			dev.DestroyFence(fence)
		}
	}
	for _, p := range w.renderPipelines {
		w.destroyOnAnyDevice(func(dev hal.Device) { dev.DestroyRenderPipeline(p) })
	}
	for _, p := range w.computePipelines {
		w.destroyOnAnyDevice(func(dev hal.Device) { dev.DestroyComputePipeline(p) })
	}
	for _, b := range w.buffers {
		if dev, ok := w.devices[b.device]; ok {
			dev.DestroyBuffer(b.buf)
		}
	}
	for _, t := range w.textures {
		if dev, ok := w.devices[t.device]; ok {
			dev.DestroyTexture(t.tex)
		}
	}
	for _, dev := range w.devices {
		dev.Destroy()
	}
	w.instance.Destroy()
	w.instance = nil
	w.adapters = nil
	w.granted = nil
	w.devices = nil
	w.queues = nil
	w.buffers = nil
	w.textures = nil
	w.views = nil
	w.samplers = nil
	w.shaders = nil
	w.bindGroupLayouts = nil
	w.bindGroups = nil
	w.pipelineLayouts = nil
	w.computePipelines = nil
	w.renderPipelines = nil
	w.encoders = nil
	w.commandBuffers = nil
	w.pendingMaps = nil
	w.mappedData = nil
	w.fences = nil
	w.fenceValues = nil
}

func (w *WGPU) destroyOnAnyDevice(destroy func(hal.Device)) {
	for _, dev := range w.devices {
		destroy(dev)
		return
	}
}

// RequestAdapter selects an adapter matching the power preference and
// registers it under adapterID. Discrete GPUs win for high performance
// requests; any hardware adapter satisfies the default.
func (w *WGPU) RequestAdapter(adapterID id.AdapterID, opts gputypes.RequestAdapterOptions) (backend.AdapterInfo, error) {
	if w.instance == nil {
		return backend.AdapterInfo{}, backend.ErrNotInitialized
	}
	if len(w.adapters) == 0 {
		return backend.AdapterInfo{}, backend.ErrNoAdapter
	}

	var selected *hal.ExposedAdapter
	if opts.PowerPreference == gputypes.PowerPreferenceHighPerformance {
		for i := range w.adapters {
			if w.adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU {
				selected = &w.adapters[i]
				break
			}
		}
	}
	if selected == nil {
		for i := range w.adapters {
			if w.adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
				w.adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
				selected = &w.adapters[i]
				break
			}
		}
	}
	if selected == nil {
		selected = &w.adapters[0]
	}

	w.granted[adapterID] = selected
	return backend.AdapterInfo{Name: selected.Info.Name}, nil
}

// RequestDevice opens a logical device on a granted adapter and
// registers its queue under the id derived from deviceID.
func (w *WGPU) RequestDevice(adapterID id.AdapterID, deviceID id.DeviceID, desc backend.DeviceDescriptor) error {
	adapter, ok := w.granted[adapterID]
	if !ok {
		return fmt.Errorf("wgpu: request device: adapter %d: %w", adapterID, backend.ErrUnknownID)
	}
	openDev, err := adapter.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("wgpu: open device: %w", err)
	}
	w.devices[deviceID] = openDev.Device
	w.queues[backend.QueueIDForDevice(deviceID)] = openDev.Queue
	return nil
}

func (w *WGPU) device(deviceID id.DeviceID) (hal.Device, error) {
	dev, ok := w.devices[deviceID]
	if !ok {
		return nil, fmt.Errorf("wgpu: device %d: %w", deviceID, backend.ErrUnknownID)
	}
	return dev, nil
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpubroker/backend"
	"github.com/gogpu/gpubroker/id"
)

func (w *WGPU) CreateBuffer(deviceID id.DeviceID, bufferID id.BufferID, desc backend.BufferDescriptor) error {
	dev, err := w.device(deviceID)
	if err != nil {
		return err
	}
	buf, err := dev.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: desc.Usage,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create buffer: %w", err)
	}
	w.buffers[bufferID] = &halBuffer{buf: buf, device: deviceID, size: desc.Size}
	return nil
}

func (w *WGPU) DestroyBuffer(bufferID id.BufferID) error {
	b, ok := w.buffers[bufferID]
	if !ok {
		return fmt.Errorf("wgpu: destroy buffer %d: %w", bufferID, backend.ErrUnknownID)
	}
	if dev, ok := w.devices[b.device]; ok {
		dev.DestroyBuffer(b.buf)
	}
	delete(w.buffers, bufferID)
	delete(w.pendingMaps, bufferID)
	delete(w.mappedData, bufferID)
	return nil
}

func (w *WGPU) CreateTexture(deviceID id.DeviceID, textureID id.TextureID, desc backend.TextureDescriptor) error {
	dev, err := w.device(deviceID)
	if err != nil {
		return err
	}
	depth := desc.Depth
	if depth == 0 {
		depth = 1
	}
	tex, err := dev.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: depth,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create texture: %w", err)
	}
	w.textures[textureID] = &halTexture{tex: tex, device: deviceID}
	return nil
}

func (w *WGPU) DestroyTexture(textureID id.TextureID) error {
	t, ok := w.textures[textureID]
	if !ok {
		return fmt.Errorf("wgpu: destroy texture %d: %w", textureID, backend.ErrUnknownID)
	}
	if dev, ok := w.devices[t.device]; ok {
		dev.DestroyTexture(t.tex)
	}
	delete(w.textures, textureID)
	return nil
}

func (w *WGPU) CreateTextureView(textureID id.TextureID, viewID id.TextureViewID, desc backend.TextureViewDescriptor) error {
	t, ok := w.textures[textureID]
	if !ok {
		return fmt.Errorf("wgpu: create view: texture %d: %w", textureID, backend.ErrUnknownID)
	}
	dev, err := w.device(t.device)
	if err != nil {
		return err
	}
	view, err := dev.CreateTextureView(t.tex, &hal.TextureViewDescriptor{Label: desc.Label})
	if err != nil {
		return fmt.Errorf("wgpu: create texture view: %w", err)
	}
	w.views[viewID] = view
	return nil
}

func (w *WGPU) CreateSampler(deviceID id.DeviceID, samplerID id.SamplerID, desc backend.SamplerDescriptor) error {
	dev, err := w.device(deviceID)
	if err != nil {
		return err
	}
	sampler, err := dev.CreateSampler(&hal.SamplerDescriptor{
		Label:        desc.Label,
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create sampler: %w", err)
	}
	w.samplers[samplerID] = sampler
	return nil
}

func (w *WGPU) CreateShaderModule(deviceID id.DeviceID, moduleID id.ShaderModuleID, source string) error {
	dev, err := w.device(deviceID)
	if err != nil {
		return err
	}
	spirv, err := compileToSPIRV(source)
	if err != nil {
		return err
	}
	module, err := dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "broker_shader",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create shader module: %w", err)
	}
	w.shaders[moduleID] = module
	return nil
}

func (w *WGPU) CreateBindGroupLayout(deviceID id.DeviceID, layoutID id.BindGroupLayoutID, entries []backend.BindGroupLayoutEntry) error {
	dev, err := w.device(deviceID)
	if err != nil {
		return err
	}
	halEntries := make([]gputypes.BindGroupLayoutEntry, 0, len(entries))
	for _, e := range entries {
		entry := gputypes.BindGroupLayoutEntry{
			Binding:    e.Binding,
			Visibility: gputypes.ShaderStageCompute | gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
		}
		switch e.Type {
		case backend.BindingTypeUniformBuffer:
			entry.Buffer = &gputypes.BufferBindingLayout{
				Type:           gputypes.BufferBindingTypeUniform,
				MinBindingSize: e.MinBindingSize,
			}
		case backend.BindingTypeStorageBuffer:
			entry.Buffer = &gputypes.BufferBindingLayout{
				Type:           gputypes.BufferBindingTypeStorage,
				MinBindingSize: e.MinBindingSize,
			}
		case backend.BindingTypeReadOnlyStorageBuffer:
			entry.Buffer = &gputypes.BufferBindingLayout{
				Type:           gputypes.BufferBindingTypeReadOnlyStorage,
				MinBindingSize: e.MinBindingSize,
			}
		default:
			return fmt.Errorf("wgpu: bind group layout binding %d: unsupported type %d", e.Binding, e.Type)
		}
		halEntries = append(halEntries, entry)
	}
	layout, err := dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "broker_bgl",
		Entries: halEntries,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create bind group layout: %w", err)
	}
	w.bindGroupLayouts[layoutID] = layout
	return nil
}

func (w *WGPU) CreateBindGroup(deviceID id.DeviceID, groupID id.BindGroupID, layoutID id.BindGroupLayoutID, entries []backend.BindGroupEntry) error {
	dev, err := w.device(deviceID)
	if err != nil {
		return err
	}
	layout, ok := w.bindGroupLayouts[layoutID]
	if !ok {
		return fmt.Errorf("wgpu: create bind group: layout %d: %w", layoutID, backend.ErrUnknownID)
	}
	halEntries := make([]gputypes.BindGroupEntry, 0, len(entries))
	for _, e := range entries {
		b, ok := w.buffers[e.Buffer]
		if !ok {
			return fmt.Errorf("wgpu: create bind group: buffer %d: %w", e.Buffer, backend.ErrUnknownID)
		}
		halEntries = append(halEntries, gputypes.BindGroupEntry{
			Binding: e.Binding,
			Resource: gputypes.BufferBinding{
				Buffer: b.buf.NativeHandle(),
				Offset: e.Offset,
				Size:   e.Size,
			},
		})
	}
	group, err := dev.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "broker_bg",
		Layout:  layout,
		Entries: halEntries,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create bind group: %w", err)
	}
	w.bindGroups[groupID] = group
	return nil
}

func (w *WGPU) CreatePipelineLayout(deviceID id.DeviceID, layoutID id.PipelineLayoutID, bindGroupLayouts []id.BindGroupLayoutID) error {
	dev, err := w.device(deviceID)
	if err != nil {
		return err
	}
	halLayouts := make([]hal.BindGroupLayout, 0, len(bindGroupLayouts))
	for _, bgl := range bindGroupLayouts {
		layout, ok := w.bindGroupLayouts[bgl]
		if !ok {
			return fmt.Errorf("wgpu: create pipeline layout: bind group layout %d: %w", bgl, backend.ErrUnknownID)
		}
		halLayouts = append(halLayouts, layout)
	}
	layout, err := dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "broker_pl",
		BindGroupLayouts: halLayouts,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create pipeline layout: %w", err)
	}
	w.pipelineLayouts[layoutID] = layout
	return nil
}

func (w *WGPU) CreateComputePipeline(deviceID id.DeviceID, pipelineID id.ComputePipelineID, layoutID id.PipelineLayoutID, moduleID id.ShaderModuleID, entryPoint string) error {
	dev, err := w.device(deviceID)
	if err != nil {
		return err
	}
	layout, ok := w.pipelineLayouts[layoutID]
	if !ok {
		return fmt.Errorf("wgpu: create compute pipeline: layout %d: %w", layoutID, backend.ErrUnknownID)
	}
	module, ok := w.shaders[moduleID]
	if !ok {
		return fmt.Errorf("wgpu: create compute pipeline: shader %d: %w", moduleID, backend.ErrUnknownID)
	}
	pipeline, err := dev.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  "broker_compute",
		Layout: layout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: entryPoint,
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create compute pipeline: %w", err)
	}
	w.computePipelines[pipelineID] = pipeline
	return nil
}

func (w *WGPU) CreateRenderPipeline(deviceID id.DeviceID, pipelineID id.RenderPipelineID, desc backend.RenderPipelineDescriptor) error {
	dev, err := w.device(deviceID)
	if err != nil {
		return err
	}
	layout, ok := w.pipelineLayouts[desc.Layout]
	if !ok {
		return fmt.Errorf("wgpu: create render pipeline: layout %d: %w", desc.Layout, backend.ErrUnknownID)
	}
	vertModule, ok := w.shaders[desc.VertexModule]
	if !ok {
		return fmt.Errorf("wgpu: create render pipeline: vertex shader %d: %w", desc.VertexModule, backend.ErrUnknownID)
	}

	halDesc := &hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     vertModule,
			EntryPoint: desc.VertexEntryPoint,
		},
		Primitive: gputypes.PrimitiveState{
			Topology: desc.Topology,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: max(desc.SampleCount, 1),
			Mask:  0xFFFFFFFF,
		},
	}
	if desc.SampleMask != 0 {
		halDesc.Multisample.Mask = uint64(desc.SampleMask)
	}
	if desc.FragmentModule != 0 {
		fragModule, ok := w.shaders[desc.FragmentModule]
		if !ok {
			return fmt.Errorf("wgpu: create render pipeline: fragment shader %d: %w", desc.FragmentModule, backend.ErrUnknownID)
		}
		blend := gputypes.BlendStatePremultiplied()
		targets := make([]gputypes.ColorTargetState, 0, len(desc.ColorFormats))
		for _, format := range desc.ColorFormats {
			targets = append(targets, gputypes.ColorTargetState{
				Format:    format,
				Blend:     &blend,
				WriteMask: gputypes.ColorWriteMaskAll,
			})
		}
		halDesc.Fragment = &hal.FragmentState{
			Module:     fragModule,
			EntryPoint: desc.FragmentEntryPoint,
			Targets:    targets,
		}
	}

	pipeline, err := dev.CreateRenderPipeline(halDesc)
	if err != nil {
		return fmt.Errorf("wgpu: create render pipeline: %w", err)
	}
	w.renderPipelines[pipelineID] = pipeline
	return nil
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpubroker/backend"
	"github.com/gogpu/gpubroker/id"
)

// fenceTimeout bounds blocking waits for submitted work.
const fenceTimeout = 5 * time.Second

func (w *WGPU) CreateCommandEncoder(deviceID id.DeviceID, encoderID id.CommandEncoderID) error {
	dev, err := w.device(deviceID)
	if err != nil {
		return err
	}
	enc, err := dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "broker_encoder",
	})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding("broker_encoder"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	w.encoders[encoderID] = &halEncoder{enc: enc, device: deviceID}
	return nil
}

func (w *WGPU) encoder(encoderID id.CommandEncoderID) (*halEncoder, error) {
	enc, ok := w.encoders[encoderID]
	if !ok {
		return nil, fmt.Errorf("wgpu: encoder %d: %w", encoderID, backend.ErrUnknownID)
	}
	return enc, nil
}

func (w *WGPU) CopyBufferToBuffer(encoderID id.CommandEncoderID, src id.BufferID, srcOffset uint64, dst id.BufferID, dstOffset, size uint64) error {
	enc, err := w.encoder(encoderID)
	if err != nil {
		return err
	}
	sb, ok := w.buffers[src]
	if !ok {
		return fmt.Errorf("wgpu: copy src buffer %d: %w", src, backend.ErrUnknownID)
	}
	db, ok := w.buffers[dst]
	if !ok {
		return fmt.Errorf("wgpu: copy dst buffer %d: %w", dst, backend.ErrUnknownID)
	}
	enc.enc.CopyBufferToBuffer(sb.buf, db.buf, []hal.BufferCopy{{
		SrcOffset: srcOffset,
		DstOffset: dstOffset,
		Size:      size,
	}})
	return nil
}

func (w *WGPU) CopyTextureToBuffer(encoderID id.CommandEncoderID, textureID id.TextureID, bufferID id.BufferID, layout gputypes.TextureDataLayout, extent gputypes.Extent3D) error {
	enc, err := w.encoder(encoderID)
	if err != nil {
		return err
	}
	tex, ok := w.textures[textureID]
	if !ok {
		return fmt.Errorf("wgpu: copy texture %d: %w", textureID, backend.ErrUnknownID)
	}
	buf, ok := w.buffers[bufferID]
	if !ok {
		return fmt.Errorf("wgpu: copy to buffer %d: %w", bufferID, backend.ErrUnknownID)
	}
	depth := extent.DepthOrArrayLayers
	if depth == 0 {
		depth = 1
	}
	enc.enc.CopyTextureToBuffer(tex.tex, buf.buf, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{
			Offset:       layout.Offset,
			BytesPerRow:  layout.BytesPerRow,
			RowsPerImage: layout.RowsPerImage,
		},
		TextureBase: hal.ImageCopyTexture{Texture: tex.tex, MipLevel: 0},
		Size: hal.Extent3D{
			Width:              extent.Width,
			Height:             extent.Height,
			DepthOrArrayLayers: depth,
		},
	}})
	return nil
}

func (w *WGPU) RunComputePass(encoderID id.CommandEncoderID, pass backend.ComputePass) error {
	enc, err := w.encoder(encoderID)
	if err != nil {
		return err
	}
	pipeline, ok := w.computePipelines[pass.Pipeline]
	if !ok {
		return fmt.Errorf("wgpu: compute pass: pipeline %d: %w", pass.Pipeline, backend.ErrUnknownID)
	}
	groups := make([]hal.BindGroup, 0, len(pass.BindGroups))
	for _, bgID := range pass.BindGroups {
		bg, ok := w.bindGroups[bgID]
		if !ok {
			return fmt.Errorf("wgpu: compute pass: bind group %d: %w", bgID, backend.ErrUnknownID)
		}
		groups = append(groups, bg)
	}

	cp := enc.enc.BeginComputePass(&hal.ComputePassDescriptor{Label: pass.Label})
	cp.SetPipeline(pipeline)
	for i, bg := range groups {
		cp.SetBindGroup(uint32(i), bg, nil)
	}
	cp.Dispatch(pass.Workgroups[0], pass.Workgroups[1], pass.Workgroups[2])
	cp.End()
	return nil
}

func (w *WGPU) RunRenderPass(encoderID id.CommandEncoderID, pass backend.RenderPass) error {
	enc, err := w.encoder(encoderID)
	if err != nil {
		return err
	}
	pipeline, ok := w.renderPipelines[pass.Pipeline]
	if !ok {
		return fmt.Errorf("wgpu: render pass: pipeline %d: %w", pass.Pipeline, backend.ErrUnknownID)
	}
	view, ok := w.views[pass.Target]
	if !ok {
		return fmt.Errorf("wgpu: render pass: target view %d: %w", pass.Target, backend.ErrUnknownID)
	}
	groups := make([]hal.BindGroup, 0, len(pass.BindGroups))
	for _, bgID := range pass.BindGroups {
		bg, ok := w.bindGroups[bgID]
		if !ok {
			return fmt.Errorf("wgpu: render pass: bind group %d: %w", bgID, backend.ErrUnknownID)
		}
		groups = append(groups, bg)
	}
	vertexBufs := make([]hal.Buffer, 0, len(pass.VertexBuffers))
	for _, bufID := range pass.VertexBuffers {
		b, ok := w.buffers[bufID]
		if !ok {
			return fmt.Errorf("wgpu: render pass: vertex buffer %d: %w", bufID, backend.ErrUnknownID)
		}
		vertexBufs = append(vertexBufs, b.buf)
	}

	rp := enc.enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: pass.Label,
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
		}},
	})
	rp.SetPipeline(pipeline)
	for i, bg := range groups {
		rp.SetBindGroup(uint32(i), bg, nil)
	}
	for i, vb := range vertexBufs {
		rp.SetVertexBuffer(uint32(i), vb, 0)
	}
	instances := pass.InstanceCount
	if instances == 0 {
		instances = 1
	}
	rp.Draw(pass.VertexCount, instances, 0, 0)
	rp.End()
	return nil
}

// DestroyCommandEncoder ends an open encoder and frees the resulting
// command buffer without submitting it.
func (w *WGPU) DestroyCommandEncoder(encoderID id.CommandEncoderID) error {
	enc, err := w.encoder(encoderID)
	if err != nil {
		return err
	}
	delete(w.encoders, encoderID)
	cmdBuf, err := enc.enc.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: discard encoder: %w", err)
	}
	if dev, ok := w.devices[enc.device]; ok {
		dev.FreeCommandBuffer(cmdBuf)
	}
	return nil
}

func (w *WGPU) FinishCommandEncoder(encoderID id.CommandEncoderID) error {
	enc, err := w.encoder(encoderID)
	if err != nil {
		return err
	}
	cmdBuf, err := enc.enc.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	w.commandBuffers[backend.CommandBufferIDForEncoder(encoderID)] = &halCommandBuffer{
		cb:     cmdBuf,
		device: enc.device,
	}
	delete(w.encoders, encoderID)
	return nil
}

// Submit sends the command buffers to the queue, signaling the per
// device fence so a later Poll can wait for completion.
func (w *WGPU) Submit(queueID id.QueueID, commandBuffers []id.CommandBufferID) error {
	queue, ok := w.queues[queueID]
	if !ok {
		return fmt.Errorf("wgpu: submit: queue %d: %w", queueID, backend.ErrUnknownID)
	}
	deviceID := id.DeviceID(queueID)
	dev, err := w.device(deviceID)
	if err != nil {
		return err
	}

	cbs := make([]hal.CommandBuffer, 0, len(commandBuffers))
	for _, cbID := range commandBuffers {
		cb, ok := w.commandBuffers[cbID]
		if !ok {
			return fmt.Errorf("wgpu: submit: command buffer %d: %w", cbID, backend.ErrUnknownID)
		}
		cbs = append(cbs, cb.cb)
	}

	fence, ok := w.fences[deviceID]
	if !ok {
		fence, err = dev.CreateFence()
		if err != nil {
			return fmt.Errorf("wgpu: create fence: %w", err)
		}
		w.fences[deviceID] = fence
	}
	value := w.fenceValues[deviceID] + 1

	if err := queue.Submit(cbs, fence, value); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	w.fenceValues[deviceID] = value

	for _, cbID := range commandBuffers {
		if cb, ok := w.commandBuffers[cbID]; ok {
			dev.FreeCommandBuffer(cb.cb)
			delete(w.commandBuffers, cbID)
		}
	}
	return nil
}

func (w *WGPU) WriteBuffer(deviceID id.DeviceID, bufferID id.BufferID, offset uint64, data []byte) error {
	queue, ok := w.queues[backend.QueueIDForDevice(deviceID)]
	if !ok {
		return fmt.Errorf("wgpu: write buffer: device %d: %w", deviceID, backend.ErrUnknownID)
	}
	b, ok := w.buffers[bufferID]
	if !ok {
		return fmt.Errorf("wgpu: write buffer %d: %w", bufferID, backend.ErrUnknownID)
	}
	if err := queue.WriteBuffer(b.buf, offset, data); err != nil {
		return fmt.Errorf("wgpu: write buffer: %w", err)
	}
	return nil
}

// MapBufferAsync records a mapping request; the readback happens on the
// next blocking Poll, after the device fence signals.
func (w *WGPU) MapBufferAsync(bufferID id.BufferID, mode gputypes.MapMode, offset, size uint64) error {
	b, ok := w.buffers[bufferID]
	if !ok {
		return fmt.Errorf("wgpu: map buffer %d: %w", bufferID, backend.ErrUnknownID)
	}
	if size == 0 {
		size = b.size - offset
	}
	w.pendingMaps[bufferID] = mapRequest{device: b.device, offset: offset, size: size}
	return nil
}

// Poll waits for the device's submitted work and completes pending
// mappings with a queue readback. Without wait it returns immediately;
// mappings stay pending until a blocking Poll.
func (w *WGPU) Poll(deviceID id.DeviceID, wait bool) error {
	dev, err := w.device(deviceID)
	if err != nil {
		return err
	}
	if !wait {
		return nil
	}
	if fence, ok := w.fences[deviceID]; ok {
		value := w.fenceValues[deviceID]
		if value > 0 {
			fenceOK, err := dev.Wait(fence, value, fenceTimeout)
			if err != nil {
				return fmt.Errorf("wgpu: wait for GPU: %w", err)
			}
			if !fenceOK {
				return fmt.Errorf("wgpu: wait for GPU: fence timeout")
			}
		}
	}

	queue := w.queues[backend.QueueIDForDevice(deviceID)]
	for bufID, req := range w.pendingMaps {
		if req.device != deviceID {
			continue
		}
		b, ok := w.buffers[bufID]
		if !ok {
			delete(w.pendingMaps, bufID)
			continue
		}
		data := make([]byte, req.size)
		if err := queue.ReadBuffer(b.buf, req.offset, data); err != nil {
			return fmt.Errorf("wgpu: readback: %w", err)
		}
		w.mappedData[bufID] = data
		delete(w.pendingMaps, bufID)
	}
	return nil
}

func (w *WGPU) MappedRange(bufferID id.BufferID) ([]byte, error) {
	if _, ok := w.buffers[bufferID]; !ok {
		return nil, fmt.Errorf("wgpu: mapped range: buffer %d: %w", bufferID, backend.ErrUnknownID)
	}
	data, ok := w.mappedData[bufferID]
	if !ok {
		return nil, backend.ErrBufferNotMapped
	}
	return data, nil
}

func (w *WGPU) UnmapBuffer(bufferID id.BufferID) error {
	if _, ok := w.buffers[bufferID]; !ok {
		return fmt.Errorf("wgpu: unmap buffer %d: %w", bufferID, backend.ErrUnknownID)
	}
	delete(w.pendingMaps, bufferID)
	delete(w.mappedData, bufferID)
	return nil
}

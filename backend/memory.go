package backend

import (
	"fmt"

	"github.com/gogpu/gpubroker/id"
	"github.com/gogpu/gputypes"
)

func init() {
	Register(BackendMemory, func() Backend {
		return NewMemory()
	})
}

var _ Backend = (*Memory)(nil)

// Memory is an in-process Backend that models GPU resources as plain
// byte slices. Copies, submissions and mappings execute immediately, so
// the broker's full request surface can run without a GPU. Tests and
// the demo use it; embedders on real hardware use the wgpu backend.
//
// The broker calls it from a single goroutine, so Memory carries no
// locking of its own.
type Memory struct {
	initialized bool

	adapters map[id.AdapterID]AdapterInfo
	devices  map[id.DeviceID]DeviceDescriptor
	queues   map[id.QueueID]id.DeviceID

	buffers  map[id.BufferID]*memoryBuffer
	textures map[id.TextureID]*memoryTexture
	views    map[id.TextureViewID]id.TextureID
	samplers map[id.SamplerID]SamplerDescriptor

	shaders          map[id.ShaderModuleID]string
	bindGroupLayouts map[id.BindGroupLayoutID][]BindGroupLayoutEntry
	bindGroups       map[id.BindGroupID][]BindGroupEntry
	pipelineLayouts  map[id.PipelineLayoutID][]id.BindGroupLayoutID
	computePipelines map[id.ComputePipelineID]string
	renderPipelines  map[id.RenderPipelineID]RenderPipelineDescriptor

	encoders       map[id.CommandEncoderID]*memoryEncoder
	commandBuffers map[id.CommandBufferID]*memoryEncoder

	// Submissions counts Submit calls, for tests.
	Submissions int
}

type memoryBuffer struct {
	data  []byte
	usage gputypes.BufferUsage

	mapPending bool
	mapped     bool
	mapOffset  uint64
	mapSize    uint64
}

type memoryTexture struct {
	desc TextureDescriptor
	// data holds tightly packed rows, 4 bytes per texel.
	data []byte
}

type memoryEncoder struct {
	device   id.DeviceID
	finished bool
	// recorded copies replay on Submit.
	copies []func() error
}

// NewMemory returns an uninitialized in-memory backend.
func NewMemory() *Memory {
	return &Memory{}
}

// Name implements Backend.
func (m *Memory) Name() string { return BackendMemory }

// Init implements Backend.
func (m *Memory) Init() error {
	m.initialized = true
	m.adapters = make(map[id.AdapterID]AdapterInfo)
	m.devices = make(map[id.DeviceID]DeviceDescriptor)
	m.queues = make(map[id.QueueID]id.DeviceID)
	m.buffers = make(map[id.BufferID]*memoryBuffer)
	m.textures = make(map[id.TextureID]*memoryTexture)
	m.views = make(map[id.TextureViewID]id.TextureID)
	m.samplers = make(map[id.SamplerID]SamplerDescriptor)
	m.shaders = make(map[id.ShaderModuleID]string)
	m.bindGroupLayouts = make(map[id.BindGroupLayoutID][]BindGroupLayoutEntry)
	m.bindGroups = make(map[id.BindGroupID][]BindGroupEntry)
	m.pipelineLayouts = make(map[id.PipelineLayoutID][]id.BindGroupLayoutID)
	m.computePipelines = make(map[id.ComputePipelineID]string)
	m.renderPipelines = make(map[id.RenderPipelineID]RenderPipelineDescriptor)
	m.encoders = make(map[id.CommandEncoderID]*memoryEncoder)
	m.commandBuffers = make(map[id.CommandBufferID]*memoryEncoder)
	return nil
}

// Close implements Backend. All resources are released at once.
func (m *Memory) Close() {
	m.initialized = false
	m.adapters = nil
	m.devices = nil
	m.queues = nil
	m.buffers = nil
	m.textures = nil
	m.views = nil
	m.samplers = nil
	m.shaders = nil
	m.bindGroupLayouts = nil
	m.bindGroups = nil
	m.pipelineLayouts = nil
	m.computePipelines = nil
	m.renderPipelines = nil
	m.encoders = nil
	m.commandBuffers = nil
}

// RequestAdapter implements Backend. The in-memory backend always has a
// single adapter.
func (m *Memory) RequestAdapter(adapterID id.AdapterID, opts gputypes.RequestAdapterOptions) (AdapterInfo, error) {
	if !m.initialized {
		return AdapterInfo{}, ErrNotInitialized
	}
	info := AdapterInfo{Name: "memory", Vendor: "gogpu", Driver: "in-process"}
	m.adapters[adapterID] = info
	return info, nil
}

// RequestDevice implements Backend.
func (m *Memory) RequestDevice(adapterID id.AdapterID, deviceID id.DeviceID, desc DeviceDescriptor) error {
	if !m.initialized {
		return ErrNotInitialized
	}
	if _, ok := m.adapters[adapterID]; !ok {
		return fmt.Errorf("request device: adapter %d: %w", adapterID, ErrUnknownID)
	}
	m.devices[deviceID] = desc
	m.queues[QueueIDForDevice(deviceID)] = deviceID
	return nil
}

func (m *Memory) CreateBuffer(deviceID id.DeviceID, bufferID id.BufferID, desc BufferDescriptor) error {
	if err := m.checkDevice(deviceID); err != nil {
		return err
	}
	m.buffers[bufferID] = &memoryBuffer{
		data:  make([]byte, desc.Size),
		usage: desc.Usage,
	}
	return nil
}

func (m *Memory) DestroyBuffer(bufferID id.BufferID) error {
	if _, ok := m.buffers[bufferID]; !ok {
		return fmt.Errorf("destroy buffer %d: %w", bufferID, ErrUnknownID)
	}
	delete(m.buffers, bufferID)
	return nil
}

func (m *Memory) CreateTexture(deviceID id.DeviceID, textureID id.TextureID, desc TextureDescriptor) error {
	if err := m.checkDevice(deviceID); err != nil {
		return err
	}
	depth := desc.Depth
	if depth == 0 {
		depth = 1
	}
	m.textures[textureID] = &memoryTexture{
		desc: desc,
		data: make([]byte, uint64(desc.Width)*uint64(desc.Height)*uint64(depth)*4),
	}
	return nil
}

func (m *Memory) DestroyTexture(textureID id.TextureID) error {
	if _, ok := m.textures[textureID]; !ok {
		return fmt.Errorf("destroy texture %d: %w", textureID, ErrUnknownID)
	}
	delete(m.textures, textureID)
	return nil
}

func (m *Memory) CreateTextureView(textureID id.TextureID, viewID id.TextureViewID, desc TextureViewDescriptor) error {
	if _, ok := m.textures[textureID]; !ok {
		return fmt.Errorf("create texture view: texture %d: %w", textureID, ErrUnknownID)
	}
	m.views[viewID] = textureID
	return nil
}

func (m *Memory) CreateSampler(deviceID id.DeviceID, samplerID id.SamplerID, desc SamplerDescriptor) error {
	if err := m.checkDevice(deviceID); err != nil {
		return err
	}
	m.samplers[samplerID] = desc
	return nil
}

func (m *Memory) CreateShaderModule(deviceID id.DeviceID, moduleID id.ShaderModuleID, source string) error {
	if err := m.checkDevice(deviceID); err != nil {
		return err
	}
	m.shaders[moduleID] = source
	return nil
}

func (m *Memory) CreateBindGroupLayout(deviceID id.DeviceID, layoutID id.BindGroupLayoutID, entries []BindGroupLayoutEntry) error {
	if err := m.checkDevice(deviceID); err != nil {
		return err
	}
	m.bindGroupLayouts[layoutID] = append([]BindGroupLayoutEntry(nil), entries...)
	return nil
}

func (m *Memory) CreateBindGroup(deviceID id.DeviceID, groupID id.BindGroupID, layoutID id.BindGroupLayoutID, entries []BindGroupEntry) error {
	if err := m.checkDevice(deviceID); err != nil {
		return err
	}
	if _, ok := m.bindGroupLayouts[layoutID]; !ok {
		return fmt.Errorf("create bind group: layout %d: %w", layoutID, ErrUnknownID)
	}
	for _, e := range entries {
		if e.Buffer != 0 {
			if _, ok := m.buffers[e.Buffer]; !ok {
				return fmt.Errorf("create bind group: buffer %d: %w", e.Buffer, ErrUnknownID)
			}
		}
	}
	m.bindGroups[groupID] = append([]BindGroupEntry(nil), entries...)
	return nil
}

func (m *Memory) CreatePipelineLayout(deviceID id.DeviceID, layoutID id.PipelineLayoutID, bindGroupLayouts []id.BindGroupLayoutID) error {
	if err := m.checkDevice(deviceID); err != nil {
		return err
	}
	for _, bgl := range bindGroupLayouts {
		if _, ok := m.bindGroupLayouts[bgl]; !ok {
			return fmt.Errorf("create pipeline layout: bind group layout %d: %w", bgl, ErrUnknownID)
		}
	}
	m.pipelineLayouts[layoutID] = append([]id.BindGroupLayoutID(nil), bindGroupLayouts...)
	return nil
}

func (m *Memory) CreateComputePipeline(deviceID id.DeviceID, pipelineID id.ComputePipelineID, layoutID id.PipelineLayoutID, moduleID id.ShaderModuleID, entryPoint string) error {
	if err := m.checkDevice(deviceID); err != nil {
		return err
	}
	if _, ok := m.shaders[moduleID]; !ok {
		return fmt.Errorf("create compute pipeline: shader %d: %w", moduleID, ErrUnknownID)
	}
	m.computePipelines[pipelineID] = entryPoint
	return nil
}

func (m *Memory) CreateRenderPipeline(deviceID id.DeviceID, pipelineID id.RenderPipelineID, desc RenderPipelineDescriptor) error {
	if err := m.checkDevice(deviceID); err != nil {
		return err
	}
	if _, ok := m.shaders[desc.VertexModule]; !ok {
		return fmt.Errorf("create render pipeline: vertex shader %d: %w", desc.VertexModule, ErrUnknownID)
	}
	m.renderPipelines[pipelineID] = desc
	return nil
}

func (m *Memory) CreateCommandEncoder(deviceID id.DeviceID, encoderID id.CommandEncoderID) error {
	if err := m.checkDevice(deviceID); err != nil {
		return err
	}
	m.encoders[encoderID] = &memoryEncoder{device: deviceID}
	return nil
}

func (m *Memory) CopyBufferToBuffer(encoderID id.CommandEncoderID, src id.BufferID, srcOffset uint64, dst id.BufferID, dstOffset, size uint64) error {
	enc, err := m.openEncoder(encoderID)
	if err != nil {
		return err
	}
	enc.copies = append(enc.copies, func() error {
		sb, ok := m.buffers[src]
		if !ok {
			return fmt.Errorf("copy buffer %d: %w", src, ErrUnknownID)
		}
		db, ok := m.buffers[dst]
		if !ok {
			return fmt.Errorf("copy buffer %d: %w", dst, ErrUnknownID)
		}
		if srcOffset+size > uint64(len(sb.data)) {
			return fmt.Errorf("copy buffer %d: %d bytes at %d in a %d byte buffer: %w",
				src, size, srcOffset, len(sb.data), ErrCopyOutOfRange)
		}
		if dstOffset+size > uint64(len(db.data)) {
			return fmt.Errorf("copy buffer %d: %d bytes at %d in a %d byte buffer: %w",
				dst, size, dstOffset, len(db.data), ErrCopyOutOfRange)
		}
		copy(db.data[dstOffset:dstOffset+size], sb.data[srcOffset:srcOffset+size])
		return nil
	})
	return nil
}

func (m *Memory) CopyTextureToBuffer(encoderID id.CommandEncoderID, textureID id.TextureID, bufferID id.BufferID, layout gputypes.TextureDataLayout, extent gputypes.Extent3D) error {
	enc, err := m.openEncoder(encoderID)
	if err != nil {
		return err
	}
	enc.copies = append(enc.copies, func() error {
		tex, ok := m.textures[textureID]
		if !ok {
			return fmt.Errorf("copy texture %d: %w", textureID, ErrUnknownID)
		}
		buf, ok := m.buffers[bufferID]
		if !ok {
			return fmt.Errorf("copy to buffer %d: %w", bufferID, ErrUnknownID)
		}
		if extent.Width > tex.desc.Width || extent.Height > tex.desc.Height {
			return fmt.Errorf("copy texture %d: extent %dx%d exceeds texture %dx%d: %w",
				textureID, extent.Width, extent.Height, tex.desc.Width, tex.desc.Height, ErrCopyOutOfRange)
		}
		rowBytes := uint64(extent.Width) * 4
		texStride := uint64(tex.desc.Width) * 4
		for y := uint64(0); y < uint64(extent.Height); y++ {
			off := layout.Offset + y*uint64(layout.BytesPerRow)
			if off+rowBytes > uint64(len(buf.data)) {
				return fmt.Errorf("copy texture %d: row %d overruns a %d byte buffer: %w",
					textureID, y, len(buf.data), ErrCopyOutOfRange)
			}
			copy(buf.data[off:off+rowBytes], tex.data[y*texStride:y*texStride+rowBytes])
		}
		return nil
	})
	return nil
}

// RunComputePass validates the pass and records nothing; the in-memory
// backend does not execute shaders.
func (m *Memory) RunComputePass(encoderID id.CommandEncoderID, pass ComputePass) error {
	if _, err := m.openEncoder(encoderID); err != nil {
		return err
	}
	if _, ok := m.computePipelines[pass.Pipeline]; !ok {
		return fmt.Errorf("compute pass: pipeline %d: %w", pass.Pipeline, ErrUnknownID)
	}
	return nil
}

// RunRenderPass validates the pass and records nothing.
func (m *Memory) RunRenderPass(encoderID id.CommandEncoderID, pass RenderPass) error {
	if _, err := m.openEncoder(encoderID); err != nil {
		return err
	}
	if _, ok := m.renderPipelines[pass.Pipeline]; !ok {
		return fmt.Errorf("render pass: pipeline %d: %w", pass.Pipeline, ErrUnknownID)
	}
	return nil
}

// DestroyCommandEncoder drops an open encoder and its recorded copies.
func (m *Memory) DestroyCommandEncoder(encoderID id.CommandEncoderID) error {
	if _, ok := m.encoders[encoderID]; !ok {
		return fmt.Errorf("destroy encoder %d: %w", encoderID, ErrUnknownID)
	}
	delete(m.encoders, encoderID)
	return nil
}

func (m *Memory) FinishCommandEncoder(encoderID id.CommandEncoderID) error {
	enc, err := m.openEncoder(encoderID)
	if err != nil {
		return err
	}
	enc.finished = true
	m.commandBuffers[CommandBufferIDForEncoder(encoderID)] = enc
	delete(m.encoders, encoderID)
	return nil
}

// Submit replays the recorded copies of each command buffer in order.
// Submission consumes the command buffers, as a real queue does, even
// when a recorded copy fails.
func (m *Memory) Submit(queueID id.QueueID, commandBuffers []id.CommandBufferID) error {
	if !m.initialized {
		return ErrNotInitialized
	}
	if _, ok := m.queues[queueID]; !ok {
		return fmt.Errorf("submit: queue %d: %w", queueID, ErrUnknownID)
	}
	var firstErr error
	for _, cb := range commandBuffers {
		enc, ok := m.commandBuffers[cb]
		if !ok {
			return fmt.Errorf("submit: command buffer %d: %w", cb, ErrUnknownID)
		}
		delete(m.commandBuffers, cb)
		for _, op := range enc.copies {
			if err := op(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	m.Submissions++
	return firstErr
}

func (m *Memory) WriteBuffer(deviceID id.DeviceID, bufferID id.BufferID, offset uint64, data []byte) error {
	if err := m.checkDevice(deviceID); err != nil {
		return err
	}
	buf, ok := m.buffers[bufferID]
	if !ok {
		return fmt.Errorf("write buffer %d: %w", bufferID, ErrUnknownID)
	}
	copy(buf.data[offset:], data)
	return nil
}

func (m *Memory) MapBufferAsync(bufferID id.BufferID, mode gputypes.MapMode, offset, size uint64) error {
	buf, ok := m.buffers[bufferID]
	if !ok {
		return fmt.Errorf("map buffer %d: %w", bufferID, ErrUnknownID)
	}
	buf.mapPending = true
	buf.mapOffset = offset
	buf.mapSize = size
	return nil
}

// Poll completes every pending mapping. The in-memory backend has no
// asynchronous work beyond that.
func (m *Memory) Poll(deviceID id.DeviceID, wait bool) error {
	if err := m.checkDevice(deviceID); err != nil {
		return err
	}
	for _, buf := range m.buffers {
		if buf.mapPending {
			buf.mapPending = false
			buf.mapped = true
		}
	}
	return nil
}

func (m *Memory) MappedRange(bufferID id.BufferID) ([]byte, error) {
	buf, ok := m.buffers[bufferID]
	if !ok {
		return nil, fmt.Errorf("mapped range: buffer %d: %w", bufferID, ErrUnknownID)
	}
	if !buf.mapped {
		return nil, ErrBufferNotMapped
	}
	end := buf.mapOffset + buf.mapSize
	if buf.mapSize == 0 || end > uint64(len(buf.data)) {
		end = uint64(len(buf.data))
	}
	return buf.data[buf.mapOffset:end], nil
}

func (m *Memory) UnmapBuffer(bufferID id.BufferID) error {
	buf, ok := m.buffers[bufferID]
	if !ok {
		return fmt.Errorf("unmap buffer %d: %w", bufferID, ErrUnknownID)
	}
	buf.mapPending = false
	buf.mapped = false
	return nil
}

// SeedTexture fills a texture's backing store, so demos and tests can
// give presented frames recognizable content. Rows are tightly packed.
func (m *Memory) SeedTexture(textureID id.TextureID, data []byte) error {
	tex, ok := m.textures[textureID]
	if !ok {
		return fmt.Errorf("seed texture %d: %w", textureID, ErrUnknownID)
	}
	copy(tex.data, data)
	return nil
}

// BufferBytes returns a copy of a buffer's contents, for tests.
func (m *Memory) BufferBytes(bufferID id.BufferID) ([]byte, error) {
	buf, ok := m.buffers[bufferID]
	if !ok {
		return nil, fmt.Errorf("buffer %d: %w", bufferID, ErrUnknownID)
	}
	return append([]byte(nil), buf.data...), nil
}

func (m *Memory) checkDevice(deviceID id.DeviceID) error {
	if !m.initialized {
		return ErrNotInitialized
	}
	if _, ok := m.devices[deviceID]; !ok {
		return fmt.Errorf("device %d: %w", deviceID, ErrUnknownID)
	}
	return nil
}

func (m *Memory) openEncoder(encoderID id.CommandEncoderID) (*memoryEncoder, error) {
	enc, ok := m.encoders[encoderID]
	if !ok {
		return nil, fmt.Errorf("encoder %d: %w", encoderID, ErrUnknownID)
	}
	if enc.finished {
		return nil, fmt.Errorf("encoder %d already finished", encoderID)
	}
	return enc, nil
}

package gpubroker

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpubroker/backend"
	"github.com/gogpu/gpubroker/compositor"
	"github.com/gogpu/gpubroker/id"
	"github.com/gogpu/gpubroker/swapchain"
)

// createSwapChain sets up presentation state for a context: a table
// entry seeded with placeholder pixels, a CPU-readable staging buffer,
// and the compositor image registration. The image key goes back to
// the sender before the AddImage transaction is published.
func (a *actor) createSwapChain(r *CreateSwapChain) {
	stride := swapchain.RowStride(r.Width)
	bufSize := swapchain.BufferSize(r.Width, r.Height)

	// Placeholder content until the first present: opaque white.
	seed := make([]byte, bufSize)
	for i := range seed {
		seed[i] = 0xFF
	}

	key := a.bridge.GenerateImageKey()
	desc := compositor.ImageDescriptor{
		Format:   compositor.ImageFormatBGRA8,
		Width:    r.Width,
		Height:   r.Height,
		Stride:   stride,
		IsOpaque: true,
	}
	imageData := compositor.ImageData{ExternalID: r.ExternalID}

	a.table.Insert(r.ExternalID, &swapchain.PresentationData{
		DeviceID:        r.DeviceID,
		QueueID:         r.QueueID,
		BufferID:        r.BufferID,
		BufferStride:    stride,
		Width:           r.Width,
		Height:          r.Height,
		ImageKey:        key,
		ImageDescriptor: desc,
		ImageData:       imageData,
		Data:            seed,
	})

	a.bestEffort("create swapchain staging buffer", a.backend.CreateBuffer(r.DeviceID, r.BufferID, backend.BufferDescriptor{
		Label: "swapchain_staging",
		Size:  bufSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	}))

	sendOnce(r.Reply, key)

	txn := compositor.NewTransaction()
	txn.AddImage(key, desc, imageData)
	a.bridge.SendTransaction(txn)
	Logger().Debug("gpubroker: swapchain created",
		"external_id", uint64(r.ExternalID), "width", r.Width, "height", r.Height)
}

// present copies the texture into the swapchain's staging buffer, reads
// the bytes back, and publishes an UpdateImage transaction. The wait on
// the readback blocks the actor until the copy lands; presents are rare
// enough relative to the frame budget that the simple blocking poll
// wins over a completion queue.
func (a *actor) present(r *SwapChainPresent) {
	entry, ok := a.table.Lookup(r.ExternalID)
	if !ok {
		Logger().Warn("gpubroker: present for unknown swapchain", "external_id", uint64(r.ExternalID))
		return
	}

	if err := a.backend.CreateCommandEncoder(entry.DeviceID, r.EncoderID); err != nil {
		Logger().Warn("gpubroker: present encoder failed", "error", err)
		return
	}
	if err := a.backend.CopyTextureToBuffer(r.EncoderID, r.TextureID, entry.BufferID,
		gputypes.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  entry.BufferStride,
			RowsPerImage: entry.Height,
		},
		gputypes.Extent3D{
			Width:              entry.Width,
			Height:             entry.Height,
			DepthOrArrayLayers: 1,
		},
	); err != nil {
		Logger().Warn("gpubroker: present copy failed", "error", err)
		a.bestEffort("discard present encoder", a.backend.DestroyCommandEncoder(r.EncoderID))
		return
	}
	if err := a.backend.FinishCommandEncoder(r.EncoderID); err != nil {
		Logger().Warn("gpubroker: present finish failed", "error", err)
		a.bestEffort("discard present encoder", a.backend.DestroyCommandEncoder(r.EncoderID))
		return
	}
	if err := a.backend.Submit(entry.QueueID, []id.CommandBufferID{backend.CommandBufferIDForEncoder(r.EncoderID)}); err != nil {
		Logger().Warn("gpubroker: present submit failed", "error", err)
		return
	}

	if err := a.backend.MapBufferAsync(entry.BufferID, gputypes.MapModeRead, 0, swapchain.BufferSize(entry.Width, entry.Height)); err != nil {
		Logger().Warn("gpubroker: present map failed", "error", err)
		return
	}
	if err := a.backend.Poll(entry.DeviceID, true); err != nil {
		Logger().Warn("gpubroker: present poll failed", "error", err)
		return
	}
	mapped, err := a.backend.MappedRange(entry.BufferID)
	if err != nil {
		Logger().Warn("gpubroker: present readback failed", "error", err)
		return
	}
	data := make([]byte, len(mapped))
	copy(data, mapped)
	a.bestEffort("present unmap", a.backend.UnmapBuffer(entry.BufferID))

	if !a.table.SetData(r.ExternalID, data) {
		// Swapchain destroyed between lookup and readback; nothing to
		// publish.
		Logger().Warn("gpubroker: swapchain vanished during present", "external_id", uint64(r.ExternalID))
		return
	}

	txn := compositor.NewTransaction()
	txn.UpdateImage(entry.ImageKey, entry.ImageDescriptor, entry.ImageData, compositor.WholeImage())
	a.bridge.SendTransaction(txn)
	Logger().Debug("gpubroker: presented", "external_id", uint64(r.ExternalID))
}

// destroySwapChain removes presentation state. Destroying twice, or
// destroying an id that never presented, is a logged no-op with no
// backend or compositor traffic.
func (a *actor) destroySwapChain(r *DestroySwapChain) {
	data, ok := a.table.Remove(r.ExternalID)
	if !ok {
		Logger().Warn("gpubroker: destroy for unknown swapchain", "external_id", uint64(r.ExternalID))
		return
	}

	a.bestEffort("destroy swapchain staging buffer", a.backend.DestroyBuffer(data.BufferID))

	txn := compositor.NewTransaction()
	txn.DeleteImage(data.ImageKey)
	a.bridge.SendTransaction(txn)
	Logger().Debug("gpubroker: swapchain destroyed", "external_id", uint64(r.ExternalID))
}

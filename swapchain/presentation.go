// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package swapchain holds the presentation state that turns rendered
// GPU output into pixel data a compositor can read.
//
// The broker's actor goroutine creates, updates, and removes entries;
// the compositor-invoked [ExternalImages] provider reads them. The
// [Table] is the only state shared across those two sides and guards
// itself with a mutex around single-entry operations.
package swapchain

import (
	"sync"

	"github.com/gogpu/gpubroker/compositor"
	"github.com/gogpu/gpubroker/id"
)

// PresentationData is the per-swapchain presentation state. It is
// created when the swapchain is created, its Data replaced on every
// present, and the whole entry removed when the swapchain is destroyed.
type PresentationData struct {
	// DeviceID and QueueID identify the device owning the swapchain's
	// staging buffer and the queue presents are submitted on.
	DeviceID id.DeviceID
	QueueID  id.QueueID

	// BufferID is the CPU-readable staging buffer GPU content is
	// copied into on present.
	BufferID id.BufferID

	// BufferStride is the aligned byte stride of one image row in the
	// staging buffer.
	BufferStride uint32

	// Width and Height are the image dimensions in pixels.
	Width  uint32
	Height uint32

	// ImageKey is the compositor key the image was registered under.
	ImageKey compositor.ImageKey

	// ImageDescriptor and ImageData describe the compositor-side image
	// this swapchain presents into.
	ImageDescriptor compositor.ImageDescriptor
	ImageData       compositor.ImageData

	// Data holds the most recent read-back pixel bytes.
	Data []byte
}

// Entry is the identity portion of a PresentationData, returned by
// Table.Lookup so callers can run backend operations without holding
// the table lock.
type Entry struct {
	DeviceID        id.DeviceID
	QueueID         id.QueueID
	BufferID        id.BufferID
	BufferStride    uint32
	Width           uint32
	Height          uint32
	ImageKey        compositor.ImageKey
	ImageDescriptor compositor.ImageDescriptor
	ImageData       compositor.ImageData
}

// Table maps external image ids to presentation state. At most one
// entry exists per id at any time. All methods are safe for concurrent
// use; each takes the lock for a single entry read or replace.
type Table struct {
	mu      sync.Mutex
	entries map[compositor.ExternalImageID]*PresentationData
}

// NewTable returns an empty presentation table.
func NewTable() *Table {
	return &Table{entries: make(map[compositor.ExternalImageID]*PresentationData)}
}

// Insert registers presentation state under the given external id,
// replacing any previous entry.
func (t *Table) Insert(extID compositor.ExternalImageID, data *PresentationData) {
	t.mu.Lock()
	t.entries[extID] = data
	t.mu.Unlock()
}

// Lookup returns a copy of the identity fields for the given id. The
// second result is false if no entry exists.
func (t *Table) Lookup(extID compositor.ExternalImageID) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	data, ok := t.entries[extID]
	if !ok {
		return Entry{}, false
	}
	return Entry{
		DeviceID:        data.DeviceID,
		QueueID:         data.QueueID,
		BufferID:        data.BufferID,
		BufferStride:    data.BufferStride,
		Width:           data.Width,
		Height:          data.Height,
		ImageKey:        data.ImageKey,
		ImageDescriptor: data.ImageDescriptor,
		ImageData:       data.ImageData,
	}, true
}

// SetData replaces the stored pixel bytes for the given id. It reports
// false if the entry has vanished in the meantime; the bytes are then
// discarded. SetData takes ownership of buf.
func (t *Table) SetData(extID compositor.ExternalImageID, buf []byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	data, ok := t.entries[extID]
	if !ok {
		return false
	}
	data.Data = buf
	return true
}

// Snapshot returns a copy of the stored pixel bytes and the dimensions
// for the given id. An absent id yields nil bytes and zero dimensions.
func (t *Table) Snapshot(extID compositor.ExternalImageID) (buf []byte, width, height uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	data, ok := t.entries[extID]
	if !ok {
		return nil, 0, 0
	}
	buf = make([]byte, len(data.Data))
	copy(buf, data.Data)
	return buf, data.Width, data.Height
}

// Remove deletes the entry for the given id and returns it. The second
// result is false if no entry existed.
func (t *Table) Remove(extID compositor.ExternalImageID) (*PresentationData, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	data, ok := t.entries[extID]
	if ok {
		delete(t.entries, extID)
	}
	return data, ok
}

// Len returns the number of live entries.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

import (
	"bytes"
	"testing"

	"github.com/gogpu/gpubroker/compositor"
)

func newTestData(extID compositor.ExternalImageID, w, h uint32) *PresentationData {
	stride := RowStride(w)
	return &PresentationData{
		DeviceID:     1,
		QueueID:      1,
		BufferID:     2,
		BufferStride: stride,
		Width:        w,
		Height:       h,
		ImageKey:     compositor.ImageKey(9),
		ImageDescriptor: compositor.ImageDescriptor{
			Format: compositor.ImageFormatBGRA8,
			Width:  w,
			Height: h,
			Stride: stride,
		},
		ImageData: compositor.ImageData{ExternalID: extID},
		Data:      make([]byte, BufferSize(w, h)),
	}
}

func TestTableInsertLookup(t *testing.T) {
	table := NewTable()

	if _, ok := table.Lookup(1); ok {
		t.Fatal("Lookup on empty table reported an entry")
	}

	table.Insert(1, newTestData(1, 100, 10))
	entry, ok := table.Lookup(1)
	if !ok {
		t.Fatal("Lookup did not find the inserted entry")
	}
	if entry.Width != 100 || entry.Height != 10 {
		t.Errorf("entry dims = %dx%d, want 100x10", entry.Width, entry.Height)
	}
	if entry.BufferStride != 512 {
		t.Errorf("entry stride = %d, want 512", entry.BufferStride)
	}
	if entry.ImageKey != 9 {
		t.Errorf("entry image key = %d, want 9", entry.ImageKey)
	}
	if got := table.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}

func TestTableSetDataAndSnapshot(t *testing.T) {
	table := NewTable()
	table.Insert(1, newTestData(1, 4, 2))

	pixels := bytes.Repeat([]byte{0xAB}, int(BufferSize(4, 2)))
	if !table.SetData(1, pixels) {
		t.Fatal("SetData reported a vanished entry")
	}

	buf, w, h := table.Snapshot(1)
	if w != 4 || h != 2 {
		t.Errorf("Snapshot dims = %dx%d, want 4x2", w, h)
	}
	if !bytes.Equal(buf, pixels) {
		t.Error("Snapshot bytes differ from SetData bytes")
	}

	// The snapshot is a copy: mutating it must not affect the table.
	buf[0] = 0x00
	buf2, _, _ := table.Snapshot(1)
	if buf2[0] != 0xAB {
		t.Error("Snapshot returned a live reference into the table")
	}
}

func TestTableSetDataVanished(t *testing.T) {
	table := NewTable()
	if table.SetData(42, []byte{1, 2, 3}) {
		t.Error("SetData on unknown id reported success")
	}
}

func TestTableSnapshotUnknown(t *testing.T) {
	table := NewTable()
	buf, w, h := table.Snapshot(42)
	if buf != nil || w != 0 || h != 0 {
		t.Errorf("Snapshot(unknown) = %v, %d, %d, want nil, 0, 0", buf, w, h)
	}
}

func TestTableRemove(t *testing.T) {
	table := NewTable()
	table.Insert(1, newTestData(1, 8, 8))

	data, ok := table.Remove(1)
	if !ok || data == nil {
		t.Fatal("Remove did not return the entry")
	}
	if data.BufferID != 2 {
		t.Errorf("removed entry buffer = %d, want 2", data.BufferID)
	}

	// Removal is terminal.
	if _, ok := table.Remove(1); ok {
		t.Error("second Remove reported an entry")
	}
	if _, ok := table.Lookup(1); ok {
		t.Error("Lookup found a removed entry")
	}
}

func TestExternalImagesLockUnknown(t *testing.T) {
	images := NewExternalImages(NewTable())
	data, w, h := images.Lock(42)
	if data != nil || w != 0 || h != 0 {
		t.Errorf("Lock(unknown) = %v, %d, %d, want nil, 0, 0", data, w, h)
	}
	// Unlock of an unknown id must be harmless.
	images.Unlock(42)
}

func TestExternalImagesLockStableAcrossMutation(t *testing.T) {
	table := NewTable()
	table.Insert(1, newTestData(1, 4, 1))

	first := bytes.Repeat([]byte{0x11}, int(BufferSize(4, 1)))
	table.SetData(1, first)

	images := NewExternalImages(table)
	locked, w, h := images.Lock(1)
	if w != 4 || h != 1 {
		t.Fatalf("Lock dims = %dx%d, want 4x1", w, h)
	}

	// A present landing mid-lock must not change the locked bytes.
	table.SetData(1, bytes.Repeat([]byte{0x22}, int(BufferSize(4, 1))))
	if !bytes.Equal(locked, first) {
		t.Error("locked bytes changed while locked")
	}
	images.Unlock(1)

	// A fresh lock observes the new pixels.
	locked2, _, _ := images.Lock(1)
	if locked2[0] != 0x22 {
		t.Errorf("relock byte = %#x, want 0x22", locked2[0])
	}
	images.Unlock(1)
}

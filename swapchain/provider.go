// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

import "github.com/gogpu/gpubroker/compositor"

// ExternalImages is the read-side capability the compositor invokes to
// fetch current pixel data for an external image id.
//
// Lock and Unlock are issued serially per id from the compositor's
// side, so the locked staging map needs no guard of its own: each Lock
// takes an independent copy out of the shared Table, and the copy stays
// stable for the duration of the lock regardless of concurrent table
// mutation by the broker.
type ExternalImages struct {
	table  *Table
	locked map[compositor.ExternalImageID][]byte
}

// NewExternalImages returns a provider reading from the given table.
func NewExternalImages(table *Table) *ExternalImages {
	return &ExternalImages{
		table:  table,
		locked: make(map[compositor.ExternalImageID][]byte),
	}
}

// Lock pins the current pixels of the given id and returns them with
// their dimensions. An id with no presentation state yields nil bytes
// and zero dimensions; Lock never fails and never blocks on the broker.
// The returned slice stays valid until the matching Unlock.
func (e *ExternalImages) Lock(extID compositor.ExternalImageID) (data []byte, width, height uint32) {
	data, width, height = e.table.Snapshot(extID)
	e.locked[extID] = data
	return data, width, height
}

// Unlock releases the pixels pinned by the matching Lock.
func (e *ExternalImages) Unlock(extID compositor.ExternalImageID) {
	delete(e.locked, extID)
}

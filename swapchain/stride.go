// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

import "math"

// CopyBytesPerRowAlignment is the row pitch alignment required for
// texture-to-buffer copies. WebGPU (and DX12) require BytesPerRow
// aligned to 256 bytes.
const CopyBytesPerRowAlignment = 256

// RowStride returns the aligned byte stride of one row of BGRA8 pixels
// at the given width: width*4 rounded up to CopyBytesPerRowAlignment.
// A zero width yields a zero stride. The arithmetic runs in 64 bits so
// extreme widths saturate at the largest aligned stride instead of
// wrapping around.
func RowStride(width uint32) uint32 {
	stride := (uint64(width)*4 + CopyBytesPerRowAlignment - 1) &^ (CopyBytesPerRowAlignment - 1)
	if stride > math.MaxUint32 {
		return math.MaxUint32 &^ (CopyBytesPerRowAlignment - 1)
	}
	return uint32(stride)
}

// BufferSize returns the staging buffer size for an image of the given
// dimensions: RowStride(width) * height.
func BufferSize(width, height uint32) uint64 {
	return uint64(RowStride(width)) * uint64(height)
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

import (
	"math"
	"testing"
)

func TestRowStride(t *testing.T) {
	cases := []struct {
		width uint32
		want  uint32
	}{
		{0, 0},
		{1, 256},
		{63, 256},
		{64, 256},
		{65, 512},
		{100, 512},
		{128, 512},
		{1920, 7680},
	}
	for _, c := range cases {
		if got := RowStride(c.width); got != c.want {
			t.Errorf("RowStride(%d) = %d, want %d", c.width, got, c.want)
		}
	}
}

func TestRowStrideProperties(t *testing.T) {
	for width := uint32(0); width <= 1024; width++ {
		got := RowStride(width)
		if got%CopyBytesPerRowAlignment != 0 {
			t.Fatalf("RowStride(%d) = %d, not a multiple of %d", width, got, CopyBytesPerRowAlignment)
		}
		if got < width*4 {
			t.Fatalf("RowStride(%d) = %d, smaller than the tight row %d", width, got, width*4)
		}
		if got-width*4 >= CopyBytesPerRowAlignment {
			t.Fatalf("RowStride(%d) = %d, over-rounds by a full alignment unit", width, got)
		}
	}
}

func TestRowStrideLargeWidths(t *testing.T) {
	// Widths whose tight row exceeds 32 bits must not wrap to a stride
	// smaller than a narrower image's.
	cases := []struct {
		width uint32
		want  uint32
	}{
		{1 << 29, 1 << 31},
		{1<<29 + 1, 1<<31 + 256},
		{1 << 30, math.MaxUint32 &^ (CopyBytesPerRowAlignment - 1)},
		{math.MaxUint32, math.MaxUint32 &^ (CopyBytesPerRowAlignment - 1)},
	}
	for _, c := range cases {
		got := RowStride(c.width)
		if got != c.want {
			t.Errorf("RowStride(%d) = %d, want %d", c.width, got, c.want)
		}
		if got < RowStride(1920) {
			t.Errorf("RowStride(%d) = %d, wrapped below a 1920-wide row", c.width, got)
		}
	}
}

func TestBufferSize(t *testing.T) {
	cases := []struct {
		width, height uint32
		want          uint64
	}{
		{0, 0, 0},
		{0, 100, 0},
		{100, 0, 0},
		{64, 1, 256},
		{100, 10, 5120},
		{1920, 1080, 7680 * 1080},
	}
	for _, c := range cases {
		if got := BufferSize(c.width, c.height); got != c.want {
			t.Errorf("BufferSize(%d, %d) = %d, want %d", c.width, c.height, got, c.want)
		}
	}
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compositor

import "image"

// ImageKey names a compositor-registered image. Keys are minted by the
// Bridge and stay valid until a DeleteImage transaction removes them.
type ImageKey uint64

// InvalidImageKey is the zero value, naming no image.
const InvalidImageKey ImageKey = 0

// ExternalImageID is the compositor-facing handle for externally
// provided pixel data. It is independent of any backend resource
// identifier: the compositor resolves it through an image provider at
// composition time.
type ExternalImageID uint64

// ImageFormat specifies the pixel format of compositor image data.
type ImageFormat uint8

// Image formats. BGRA8 matches what GPU swapchains produce on every
// backend the broker targets.
const (
	ImageFormatBGRA8 ImageFormat = iota + 1
	ImageFormatRGBA8
)

// BytesPerPixel returns the byte width of one pixel in this format.
func (f ImageFormat) BytesPerPixel() uint32 {
	switch f {
	case ImageFormatBGRA8, ImageFormatRGBA8:
		return 4
	default:
		return 0
	}
}

// ImageDescriptor describes the shape of a compositor image.
type ImageDescriptor struct {
	// Format is the pixel format of the image data.
	Format ImageFormat

	// Width and Height are the image dimensions in pixels.
	Width  uint32
	Height uint32

	// Stride is the byte distance between the starts of consecutive
	// rows. Zero means tightly packed (Width * bytes per pixel).
	Stride uint32

	// IsOpaque indicates the alpha channel can be ignored.
	IsOpaque bool
}

// ImageData is the pixel payload of an image transaction. For broker
// swapchains the payload is external: the compositor pulls the current
// bytes through the external image provider rather than carrying them
// in the transaction itself.
type ImageData struct {
	// ExternalID, when non-zero, tells the compositor to resolve the
	// pixels through its external image provider.
	ExternalID ExternalImageID

	// Bytes carries raw pixel data for non-external images. Nil for
	// external images.
	Bytes []byte
}

// External reports whether the data is resolved through an external
// image provider.
func (d ImageData) External() bool { return d.ExternalID != 0 }

// DirtyRect describes the region of an image invalidated by an update.
// The zero value means "everything"; use WholeImage for clarity.
type DirtyRect struct {
	// All marks the entire image dirty, regardless of Rect.
	All bool

	// Rect is the dirty region in pixels when All is false.
	Rect image.Rectangle
}

// WholeImage returns a DirtyRect covering the entire image.
func WholeImage() DirtyRect { return DirtyRect{All: true} }

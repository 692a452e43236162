// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"image"
	"image/color"
	"sync/atomic"

	"golang.org/x/image/draw"
)

// Surface is a drawable pixel surface.
//
// Accelerated surfaces keep a staging copy of their pixels for upload and
// readback; Pixels returns it. Surfaces are not safe for concurrent
// drawing, but Valid, Serial and Invalidate may be called from any
// goroutine.
type Surface interface {
	// Kind returns the backing kind.
	Kind() Kind

	// Width returns the width in pixels.
	Width() int

	// Height returns the height in pixels.
	Height() int

	// Transparency returns the transparency class of the contents.
	Transparency() Transparency

	// Pixels returns the pixel store, premultiplied RGBA.
	Pixels() *image.RGBA

	// Serial changes every time the contents are modified through
	// MarkDirty.
	Serial() uint64

	// Valid reports whether the surface still holds its contents. An
	// evicted or invalidated surface must be recreated.
	Valid() bool

	// Invalidate releases native resources. The surface is invalid
	// afterwards. Invalidate is idempotent.
	Invalidate()
}

// ImageSurface is an unaccelerated surface in system memory.
type ImageSurface struct {
	pix          *image.RGBA
	transparency Transparency
	serial       atomic.Uint64
	invalid      atomic.Bool
}

// NewImageSurface returns a cleared system-memory surface. Sizes below 1
// are clamped to 1.
func NewImageSurface(width, height int, t Transparency) *ImageSurface {
	width, height = max(width, 1), max(height, 1)
	return &ImageSurface{
		pix:          image.NewRGBA(image.Rect(0, 0, width, height)),
		transparency: t,
	}
}

// NewImageSurfaceFrom wraps an existing image. The surface shares img's
// pixels.
func NewImageSurfaceFrom(img *image.RGBA, t Transparency) *ImageSurface {
	return &ImageSurface{pix: img, transparency: t}
}

func (s *ImageSurface) Kind() Kind                 { return KindUnaccelerated }
func (s *ImageSurface) Width() int                 { return s.pix.Bounds().Dx() }
func (s *ImageSurface) Height() int                { return s.pix.Bounds().Dy() }
func (s *ImageSurface) Transparency() Transparency { return s.transparency }
func (s *ImageSurface) Pixels() *image.RGBA        { return s.pix }
func (s *ImageSurface) Serial() uint64             { return s.serial.Load() }
func (s *ImageSurface) Valid() bool                { return !s.invalid.Load() }
func (s *ImageSurface) Invalidate()                { s.invalid.Store(true) }

// MarkDirty records a modification of the pixels.
func (s *ImageSurface) MarkDirty() { s.serial.Add(1) }

// Clear fills s with c.
func Clear(s Surface, c color.Color) {
	pix := s.Pixels()
	draw.Draw(pix, pix.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	markDirty(s)
}

// Copy copies the r region of src into dst at dp. The region is clipped to
// both surfaces.
func Copy(dst Surface, dp image.Point, src Surface, r image.Rectangle) {
	draw.Copy(dst.Pixels(), dp, src.Pixels(), r, draw.Src, nil)
	markDirty(dst)
}

// CopyAll copies the whole of src into the top-left corner of dst.
func CopyAll(dst, src Surface) {
	Copy(dst, image.Point{}, src, src.Pixels().Bounds())
}

func markDirty(s Surface) {
	if d, ok := s.(interface{ MarkDirty() }); ok {
		d.MarkDirty()
	}
}

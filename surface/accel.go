// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"fmt"
	"image"
	"sync/atomic"

	"github.com/gogpu/accel/native"
)

// AccelSurface is a GPU-backed surface allocated by an Allocator.
type AccelSurface struct {
	kind      Kind
	config    native.ConfigHandle
	texture   native.TextureID
	model     ColorModel
	label     string
	pix       *image.RGBA
	sizeBytes uint64
	serial    atomic.Uint64
	valid     atomic.Bool
	alloc     *Allocator
	target    any
}

func (s *AccelSurface) Kind() Kind                 { return s.kind }
func (s *AccelSurface) Width() int                 { return s.pix.Bounds().Dx() }
func (s *AccelSurface) Height() int                { return s.pix.Bounds().Dy() }
func (s *AccelSurface) Transparency() Transparency { return s.model.Transparency }
func (s *AccelSurface) Pixels() *image.RGBA        { return s.pix }
func (s *AccelSurface) Serial() uint64             { return s.serial.Load() }
func (s *AccelSurface) Valid() bool                { return s.valid.Load() }

// MarkDirty records a modification of the pixels.
func (s *AccelSurface) MarkDirty() { s.serial.Add(1) }

// ColorModel returns the colour model the surface was allocated with.
func (s *AccelSurface) ColorModel() ColorModel { return s.model }

// Config returns the native configuration the texture belongs to.
func (s *AccelSurface) Config() native.ConfigHandle { return s.config }

// Texture returns the native texture, or native.InvalidTexture once the
// surface is invalid.
func (s *AccelSurface) Texture() native.TextureID {
	if !s.Valid() {
		return native.InvalidTexture
	}
	return s.texture
}

// Target returns the window or peer a flip back buffer or window surface
// is bound to, or nil.
func (s *AccelSurface) Target() any { return s.target }

// SizeBytes returns the GPU memory charged for the surface.
func (s *AccelSurface) SizeBytes() uint64 { return s.sizeBytes }

// Invalidate destroys the native texture and returns its memory to the
// allocator.
func (s *AccelSurface) Invalidate() {
	if !s.valid.CompareAndSwap(true, false) {
		return
	}
	s.alloc.release(s)
}

func (s *AccelSurface) String() string {
	return fmt.Sprintf("AccelSurface[%s %dx%d %s tex=%d]",
		s.kind, s.Width(), s.Height(), s.model.Transparency, s.texture)
}

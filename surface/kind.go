// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Kind tags how a surface is backed. Every surface reports its kind through
// Surface.Kind so callers never need type assertions to tell accelerated
// surfaces apart.
type Kind uint8

const (
	// KindUnaccelerated is a system-memory surface.
	KindUnaccelerated Kind = iota

	// KindTexture is a sampled GPU texture that cannot be rendered to.
	KindTexture

	// KindFBObject is a texture attached to a framebuffer object, usable
	// both as a render target and as a source.
	KindFBObject

	// KindFlipBackbuffer is a back buffer bound to a window and presented
	// by flipping.
	KindFlipBackbuffer

	// KindWindow is the on-screen surface of a window.
	KindWindow
)

// IsAccelerated reports whether surfaces of this kind live on the GPU.
func (k Kind) IsAccelerated() bool {
	return k != KindUnaccelerated && k <= KindWindow
}

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindUnaccelerated:
		return "Unaccelerated"
	case KindTexture:
		return "Texture"
	case KindFBObject:
		return "FBObject"
	case KindFlipBackbuffer:
		return "FlipBackbuffer"
	case KindWindow:
		return "Window"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Usage returns the texture usage flags a native texture of this kind
// needs.
func (k Kind) Usage() gputypes.TextureUsage {
	switch k {
	case KindTexture:
		return gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst | gputypes.TextureUsageCopySrc
	case KindFBObject:
		return gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding |
			gputypes.TextureUsageCopyDst | gputypes.TextureUsageCopySrc
	case KindFlipBackbuffer, KindWindow:
		return gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst
	default:
		return 0
	}
}

// Transparency classifies the alpha content of a surface.
type Transparency uint8

const (
	// Opaque surfaces have no alpha.
	Opaque Transparency = iota

	// Bitmask surfaces have fully opaque or fully transparent pixels.
	Bitmask

	// Translucent surfaces have arbitrary alpha.
	Translucent
)

func (t Transparency) String() string {
	switch t {
	case Opaque:
		return "Opaque"
	case Bitmask:
		return "Bitmask"
	case Translucent:
		return "Translucent"
	default:
		return fmt.Sprintf("Transparency(%d)", uint8(t))
	}
}

// ColorModel describes the pixel layout of a surface.
type ColorModel struct {
	Transparency Transparency

	// Bits is the number of significant bits per pixel.
	Bits int

	// RedMask, GreenMask, BlueMask and AlphaMask locate the channels in a
	// packed 32-bit ARGB pixel.
	RedMask, GreenMask, BlueMask, AlphaMask uint32

	// Premultiplied reports whether colour channels are premultiplied by
	// alpha.
	Premultiplied bool

	// Format is the native texture format backing the model.
	Format gputypes.TextureFormat
}

// HasAlpha reports whether the model carries an alpha channel.
func (m ColorModel) HasAlpha() bool { return m.AlphaMask != 0 }

// ColorModelFor returns the colour model used for accelerated surfaces of
// transparency t. Opaque surfaces use 24-bit RGB, bitmask surfaces add a
// single alpha bit, and translucent surfaces use premultiplied 32-bit ARGB.
func ColorModelFor(t Transparency) ColorModel {
	m := ColorModel{
		Transparency: t,
		RedMask:      0x00ff0000,
		GreenMask:    0x0000ff00,
		BlueMask:     0x000000ff,
		Format:       gputypes.TextureFormatBGRA8Unorm,
	}
	switch t {
	case Bitmask:
		m.Bits = 25
		m.AlphaMask = 0x01000000
	case Translucent:
		m.Bits = 32
		m.AlphaMask = 0xff000000
		m.Premultiplied = true
	default:
		m.Bits = 24
	}
	return m
}

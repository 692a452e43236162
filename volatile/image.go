// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package volatile manages transient surfaces whose contents may be lost
// at any time, such as window back buffers and offscreen caches.
//
// An Image owns a Manager that decides how the image is backed: a GPU
// texture, a framebuffer object, a window back buffer, or system memory
// when acceleration is unavailable. Callers Validate the image before
// every use and redraw when contents were lost.
package volatile

import (
	"image/color"
	"reflect"

	"github.com/gogpu/accel/caps"
	"github.com/gogpu/accel/surface"
)

// Config is the graphics configuration an image is created for.
type Config interface {
	IsCapPresent(bit caps.Bits) bool
	CreateAcceleratedSurface(req surface.Request) (surface.Surface, error)
}

// isNilConfig reports whether c is nil or holds a nil pointer.
func isNilConfig(c Config) bool {
	if c == nil {
		return true
	}
	v := reflect.ValueOf(c)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// Peer is the window component an image belongs to.
type Peer interface {
	Size() (width, height int)
}

// BackBufferCapsProvider is a peer that negotiates back buffer
// capabilities.
type BackBufferCapsProvider interface {
	Peer
	BackBufferCaps() caps.BufferCapsProvider
}

// BackgroundProvider is a peer with a background colour.
type BackgroundProvider interface {
	Background() color.Color
}

// Image is a volatile image.
type Image struct {
	config       Config
	width        int
	height       int
	transparency surface.Transparency
	forced       surface.Kind
	hasForced    bool
	peer         Peer
	forceBack    bool
	accelerated  bool
	background   color.Color

	mgr *Manager
}

// Option configures an Image.
type Option func(*Image)

// WithForcedKind requires the accelerated surface to be of kind k.
func WithForcedKind(k surface.Kind) Option {
	return func(img *Image) {
		img.forced = k
		img.hasForced = true
	}
}

// WithPeer binds the image to a window component.
func WithPeer(p Peer) Option {
	return func(img *Image) { img.peer = p }
}

// WithForceBack requests a window back buffer. Used for buffer
// strategies.
func WithForceBack() Option {
	return func(img *Image) { img.forceBack = true }
}

// WithAcceleration enables or disables acceleration. It is enabled by
// default.
func WithAcceleration(enabled bool) Option {
	return func(img *Image) { img.accelerated = enabled }
}

// WithBackground sets the colour new contents are cleared to.
func WithBackground(c color.Color) Option {
	return func(img *Image) { img.background = c }
}

// NewImage creates a volatile image and initializes its surface.
// Sizes below 1 are clamped to 1.
func NewImage(config Config, width, height int, t surface.Transparency, opts ...Option) *Image {
	img := &Image{
		config:       config,
		width:        max(width, 1),
		height:       max(height, 1),
		transparency: t,
		accelerated:  true,
	}
	for _, opt := range opts {
		opt(img)
	}
	if img.background == nil {
		img.background = color.White
		if bp, ok := img.peer.(BackgroundProvider); ok && bp.Background() != nil {
			img.background = bp.Background()
		}
	}
	if isNilConfig(img.config) {
		img.config = nil
	}
	img.mgr = newManager(img)
	img.mgr.Initialize()
	return img
}

// Config returns the configuration the image was created for.
func (img *Image) Config() Config { return img.config }

// Width returns the width in pixels.
func (img *Image) Width() int { return img.width }

// Height returns the height in pixels.
func (img *Image) Height() int { return img.height }

// Transparency returns the transparency class.
func (img *Image) Transparency() surface.Transparency { return img.transparency }

// ForcedKind returns the forced accelerated kind, if any.
func (img *Image) ForcedKind() (surface.Kind, bool) { return img.forced, img.hasForced }

// Peer returns the component the image is bound to, or nil.
func (img *Image) Peer() Peer { return img.peer }

// Manager returns the image's surface manager.
func (img *Image) Manager() *Manager { return img.mgr }

// DestSurface returns the surface drawing goes to.
func (img *Image) DestSurface() surface.Surface { return img.mgr.Surface() }

// Validate checks the image against config and restores lost contents.
func (img *Image) Validate(config Config) ValidateResult { return img.mgr.Validate(config) }

// ContentsLost reports whether contents were lost since the last
// Validate.
func (img *Image) ContentsLost() bool { return img.mgr.ContentsLost() }

// Capabilities describes the current backing.
func (img *Image) Capabilities() caps.ImageCapabilities {
	s := img.mgr.Surface()
	return caps.ImageCapabilities{
		Accelerated:  s != nil && s.Kind().IsAccelerated(),
		TrueVolatile: true,
	}
}

// Flush releases the image's surfaces. The next Validate recreates them.
func (img *Image) Flush() { img.mgr.Flush() }

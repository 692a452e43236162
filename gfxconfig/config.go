// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gfxconfig

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/gogpu/accel"
	"github.com/gogpu/accel/caps"
	"github.com/gogpu/accel/handle"
	"github.com/gogpu/accel/native"
	"github.com/gogpu/accel/proxy"
	"github.com/gogpu/accel/renderqueue"
	"github.com/gogpu/accel/surface"
	"github.com/gogpu/accel/volatile"
)

// Device identifies a display.
type Device struct {
	DisplayID uint32

	// ScaleFactor is the number of device pixels per logical pixel.
	// Values <= 0 are treated as 1.
	ScaleFactor float64

	// Bounds is the display area in logical pixels.
	Bounds image.Rectangle
}

func (d Device) scale() float64 {
	if d.ScaleFactor <= 0 {
		return 1
	}
	return d.ScaleFactor
}

// Peer is a window component that presents back buffers.
type Peer interface {
	volatile.Peer

	// Translucent reports whether the window has per-pixel alpha.
	Translucent() bool

	// Background returns the window background colour.
	Background() color.Color

	// Surface returns the on-screen surface, or nil when the window is
	// not displayable.
	Surface() surface.Surface
}

// Config is a graphics configuration for one display and pixel format.
// It owns a reference to the shared native configuration and a rendering
// context.
//
// Close must be called to release the native configuration reference.
type Config struct {
	env        *Environment
	dev        Device
	pixfmt     int
	ref        *handle.Ref
	caps       caps.ContextCapabilities
	maxTexture int
	ctx        *renderqueue.Context

	bufCapsOnce sync.Once
	bufCaps     caps.BufferCapabilities
}

// Device returns the display the configuration belongs to.
func (c *Config) Device() Device { return c.dev }

// PixelFormat returns the pixel format index.
func (c *Config) PixelFormat() int { return c.pixfmt }

// Handle returns the native configuration handle.
func (c *Config) Handle() native.ConfigHandle { return c.ref.Handle() }

// Context returns the configuration's rendering context.
func (c *Config) Context() *renderqueue.Context { return c.ctx }

// ContextCapabilities returns the capabilities of the rendering context.
func (c *Config) ContextCapabilities() caps.ContextCapabilities { return c.caps }

// IsCapPresent reports whether bit is set in the capability set.
func (c *Config) IsCapPresent(bit caps.Bits) bool {
	return c.caps.Caps().Has(bit)
}

// IsDoubleBuffered reports whether windows on this configuration can flip.
func (c *Config) IsDoubleBuffered() bool {
	return c.IsCapPresent(caps.DoubleBuffered)
}

// MaxTextureWidth returns the largest texture width in logical pixels:
// the native limit divided by the scale factor, but never less than the
// display width.
func (c *Config) MaxTextureWidth() int {
	return max(int(float64(c.maxTexture)/c.dev.scale()), c.dev.Bounds.Dx())
}

// MaxTextureHeight is MaxTextureWidth for heights.
func (c *Config) MaxTextureHeight() int {
	return max(int(float64(c.maxTexture)/c.dev.scale()), c.dev.Bounds.Dy())
}

// ColorModel returns the colour model for surfaces of transparency t.
func (c *Config) ColorModel(t surface.Transparency) surface.ColorModel {
	return surface.ColorModelFor(t)
}

// CreateManagedSurface allocates a texture surface on this configuration.
// Allocation failures are returned and match accel.ErrOutOfMemory.
func (c *Config) CreateManagedSurface(width, height int, t surface.Transparency) (surface.Surface, error) {
	return c.CreateAcceleratedSurface(surface.Request{
		Width:        width,
		Height:       height,
		Transparency: t,
		Kind:         surface.KindTexture,
		Label:        "managed",
	})
}

// CreateAcceleratedSurface allocates an accelerated surface of any kind on
// this configuration.
func (c *Config) CreateAcceleratedSurface(req surface.Request) (surface.Surface, error) {
	s, err := c.env.alloc.Allocate(c.Handle(), req)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// DisplayChanged invalidates the current context under the render queue
// lock. Surfaces rendering through it reacquire a context on next use.
func (c *Config) DisplayChanged() {
	c.env.queue.WithLock(c.env.queue.InvalidateCurrentContext)
}

// CreateCompatibleVolatileImage creates a volatile image of the given
// accelerated kind. It returns nil when the combination is unsupported:
// kind is not Texture or FBObject, transparency is Bitmask, FBObject is
// requested without framebuffer object support, or the image could not
// be backed by a surface of that kind.
func (c *Config) CreateCompatibleVolatileImage(width, height int, t surface.Transparency, kind surface.Kind) *volatile.Image {
	if (kind != surface.KindTexture && kind != surface.KindFBObject) || t == surface.Bitmask {
		return nil
	}
	if kind == surface.KindFBObject && !c.IsCapPresent(caps.ExtFBObject) {
		return nil
	}

	img := volatile.NewImage(c, width, height, t,
		volatile.WithForcedKind(kind), volatile.WithAcceleration(!c.env.noAccel))
	if s := img.DestSurface(); s == nil || s.Kind() != kind {
		img.Flush()
		return nil
	}
	return img
}

// ImageCapabilities returns the capabilities of images on this
// configuration.
func (c *Config) ImageCapabilities() caps.ImageCapabilities {
	return caps.ImageCapabilities{Accelerated: true, TrueVolatile: true}
}

// BufferCapabilities returns the buffer strategy capabilities, built on
// first use.
func (c *Config) BufferCapabilities() caps.BufferCapabilities {
	c.bufCapsOnce.Do(func() {
		ic := c.ImageCapabilities()
		c.bufCaps = caps.BufferCapabilities{Front: ic, Back: ic, Flip: caps.FlipNone}
		if c.IsDoubleBuffered() {
			c.bufCaps.Flip = caps.FlipUndefined
		}
	})
	return c.bufCaps
}

// AssertOperationSupported checks that a flip strategy with numBuffers
// buffers and capabilities bc can be created.
func (c *Config) AssertOperationSupported(numBuffers int, bc caps.BufferCapsProvider) error {
	const op = "create buffer strategy"
	if numBuffers != 2 {
		return &accel.UnsupportedOperationError{Op: op, Reason: "only double or single buffering is supported"}
	}
	basic := bc.Basic()
	if !c.BufferCapabilities().IsPageFlipping() || !basic.IsPageFlipping() {
		return &accel.UnsupportedOperationError{Op: op, Reason: "page flipping is not supported"}
	}
	if basic.Flip == caps.FlipPrior {
		return &accel.UnsupportedOperationError{Op: op, Reason: "flip contents PRIOR is not supported"}
	}
	return nil
}

// CreateBackBuffer creates a back buffer image for peer, at least 1x1 and
// translucent if the window is. The image is an FBO at its own size unless
// the peer negotiated vsynced copied flips.
func (c *Config) CreateBackBuffer(peer Peer) *volatile.Image {
	w, h := peer.Size()
	t := surface.Opaque
	if peer.Translucent() {
		t = surface.Translucent
	}
	return volatile.NewImage(c, max(w, 1), max(h, 1), t,
		volatile.WithPeer(peer), volatile.WithBackground(peer.Background()),
		volatile.WithAcceleration(!c.env.noAccel))
}

// DestroyBackBuffer releases a back buffer created by CreateBackBuffer.
func (c *Config) DestroyBackBuffer(backBuffer *volatile.Image) {
	if backBuffer != nil {
		backBuffer.Flush()
	}
}

// Flip presents the (x1,y1)-(x2,y2) region of backBuffer on peer. With
// the Background action the back buffer is then cleared to the window
// background.
func (c *Config) Flip(peer Peer, backBuffer *volatile.Image, x1, y1, x2, y2 int, action caps.FlipContents) error {
	if backBuffer == nil {
		return fmt.Errorf("%w: flip without a back buffer", accel.ErrNilReference)
	}
	dst := peer.Surface()
	src := backBuffer.DestSurface()
	if dst == nil || src == nil {
		return fmt.Errorf("%w: flip without a displayable window or back buffer", accel.ErrNilReference)
	}
	r := image.Rect(x1, y1, x2, y2)
	surface.Copy(dst, r.Min, src, r)

	if action == caps.FlipBackground {
		bg := peer.Background()
		if bg == nil {
			bg = color.White
		}
		surface.Clear(src, bg)
	}
	return nil
}

// CachedCopy returns the surface to read src from when drawing it onto
// this configuration: a cached accelerated copy when the operation allows
// it, otherwise src.
func (c *Config) CachedCopy(src surface.Surface, comp *proxy.Composite, bg color.Color) surface.Surface {
	return c.env.proxies.Replace(src, c, comp, bg, src.Width(), src.Height())
}

// Close drops the cached copies made for this configuration and releases
// the native configuration reference. It is idempotent and must not be
// called while holding the render queue lock.
func (c *Config) Close() error {
	c.env.proxies.InvalidateDestination(c)
	return c.ref.Close()
}

func (c *Config) String() string {
	return fmt.Sprintf("Config[dev=%d,pixfmt=%d]", c.dev.DisplayID, c.pixfmt)
}

var (
	_ volatile.Config   = (*Config)(nil)
	_ proxy.Destination = (*Config)(nil)
)

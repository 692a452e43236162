// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package proxy caches accelerated copies of system-memory surfaces.
//
// When a software surface is repeatedly copied to an accelerated
// destination, uploading it once and reusing the GPU copy is cheaper than
// uploading on every copy. A Proxy decides, per (destination, transparency)
// pair, whether a source may be cached and creates the cached surface.
// Cache tracks proxies and cached copies and keeps them in sync with their
// sources.
package proxy

import (
	"image/color"

	"github.com/gogpu/accel"
	"github.com/gogpu/accel/surface"
)

// Destination is the graphics configuration cached copies are created on.
type Destination interface {
	CreateManagedSurface(width, height int, t surface.Transparency) (surface.Surface, error)
}

// Proxy decides whether and how a source surface is cached for one
// destination.
type Proxy interface {
	// Validate returns the cached surface for src, creating it when cached
	// is nil. It returns nil when caching is unavailable for now.
	Validate(src, cached surface.Surface, width, height int) surface.Surface

	// IsSupportedOperation reports whether a copy from src with the given
	// transform, composite and background may use the cached surface.
	IsSupportedOperation(src surface.Surface, tx Transform, comp *Composite, bg color.Color) bool
}

// Uncached is the proxy for sources that must never be cached.
var Uncached Proxy = uncached{}

type uncached struct{}

func (uncached) Validate(surface.Surface, surface.Surface, int, int) surface.Surface { return nil }

func (uncached) IsSupportedOperation(surface.Surface, Transform, *Composite, color.Color) bool {
	return false
}

// CreateProxy returns the proxy for copying src to dst: Uncached if src is
// already accelerated, otherwise a SurfaceProxy for src's transparency.
func CreateProxy(src surface.Surface, dst Destination) Proxy {
	if src.Kind().IsAccelerated() {
		return Uncached
	}
	return NewSurfaceProxy(dst, src.Transparency())
}

// SurfaceProxy caches sources on a destination configuration.
type SurfaceProxy struct {
	dst          Destination
	transparency surface.Transparency
}

// NewSurfaceProxy returns a proxy creating cached surfaces of transparency
// t on dst.
func NewSurfaceProxy(dst Destination, t surface.Transparency) *SurfaceProxy {
	return &SurfaceProxy{dst: dst, transparency: t}
}

// Destination returns the configuration cached surfaces are created on.
func (p *SurfaceProxy) Destination() Destination { return p.dst }

// Transparency returns the transparency of cached surfaces.
func (p *SurfaceProxy) Transparency() surface.Transparency { return p.transparency }

// Validate creates a managed surface when cached is nil and returns it.
// An existing cached surface is returned as is; the size is checked by the
// caller. Allocation failures return nil.
func (p *SurfaceProxy) Validate(src, cached surface.Surface, width, height int) surface.Surface {
	if cached != nil {
		return cached
	}
	s, err := p.dst.CreateManagedSurface(width, height, p.transparency)
	if err != nil {
		if accel.IsAllocationFailure(err) {
			accel.Logger().Debug("proxy: caching unavailable", "width", width, "height", height, "err", err)
		} else {
			accel.Logger().Warn("proxy: create cached surface", "width", width, "height", height, "err", err)
		}
		return nil
	}
	return s
}

// IsSupportedOperation reports whether comp is an alpha rule and, when a
// background colour is requested, the cached surface is opaque.
func (p *SurfaceProxy) IsSupportedOperation(src surface.Surface, tx Transform, comp *Composite, bg color.Color) bool {
	return comp.IsDerivedFrom(AnyAlpha) && (bg == nil || p.transparency == surface.Opaque)
}

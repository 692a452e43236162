// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package proxy

import (
	"errors"
	"image/color"
	"testing"

	"github.com/gogpu/accel/internal/nativetest"
	"github.com/gogpu/accel/native"
	"github.com/gogpu/accel/surface"
)

// testDest is a Destination over a fake backend.
type testDest struct {
	fake    *nativetest.Fake
	alloc   *surface.Allocator
	handle  native.ConfigHandle
	created []surface.Surface
	fail    error

	// beforeCreate, when set, runs at the start of CreateManagedSurface.
	beforeCreate func()
}

func newTestDest() *testDest {
	fake := nativetest.New()
	return &testDest{
		fake:   fake,
		alloc:  surface.NewAllocator(fake, surface.AllocatorConfig{}),
		handle: fake.AcquireConfig(0, ""),
	}
}

func (d *testDest) CreateManagedSurface(width, height int, t surface.Transparency) (surface.Surface, error) {
	if d.beforeCreate != nil {
		d.beforeCreate()
	}
	if d.fail != nil {
		return nil, d.fail
	}
	s, err := d.alloc.Allocate(d.handle, surface.Request{
		Width: width, Height: height, Transparency: t, Kind: surface.KindTexture,
	})
	if err != nil {
		return nil, err
	}
	d.created = append(d.created, s)
	return s, nil
}

func TestCompositeIsDerivedFrom(t *testing.T) {
	tests := []struct {
		c, ancestor *Composite
		want        bool
	}{
		{SrcOver, AnyAlpha, true},
		{SrcOverNoEa, AnyAlpha, true},
		{OpaqueSrcOverNoEa, SrcOver, true},
		{SrcNoEa, Src, true},
		{AnyAlpha, AnyAlpha, true},
		{Xor, Any, true},
		{Xor, AnyAlpha, false},
		{Any, AnyAlpha, false},
		{Src, SrcOver, false},
	}
	for _, tt := range tests {
		if got := tt.c.IsDerivedFrom(tt.ancestor); got != tt.want {
			t.Errorf("%v.IsDerivedFrom(%v) = %v, want %v", tt.c, tt.ancestor, got, tt.want)
		}
	}
}

func TestCreateProxy(t *testing.T) {
	dst := newTestDest()

	accelSrc, err := dst.CreateManagedSurface(8, 8, surface.Opaque)
	if err != nil {
		t.Fatalf("CreateManagedSurface: %v", err)
	}
	if p := CreateProxy(accelSrc, dst); p != Uncached {
		t.Errorf("CreateProxy(accelerated) = %T, want Uncached", p)
	}

	src := surface.NewImageSurface(8, 8, surface.Bitmask)
	p, ok := CreateProxy(src, dst).(*SurfaceProxy)
	if !ok {
		t.Fatalf("CreateProxy(unaccelerated) = %T, want *SurfaceProxy", p)
	}
	if p.Transparency() != surface.Bitmask {
		t.Errorf("Transparency() = %v, want %v", p.Transparency(), surface.Bitmask)
	}
	if p.Destination() != dst {
		t.Error("Destination() is not the requested destination")
	}
}

func TestUncached(t *testing.T) {
	src := surface.NewImageSurface(4, 4, surface.Opaque)
	if s := Uncached.Validate(src, nil, 4, 4); s != nil {
		t.Errorf("Validate() = %v, want nil", s)
	}
	if Uncached.IsSupportedOperation(src, Identity, SrcOver, nil) {
		t.Error("IsSupportedOperation() = true")
	}
}

func TestIsSupportedOperation(t *testing.T) {
	bg := color.RGBA{R: 0x80, A: 0xff}
	tests := []struct {
		name         string
		transparency surface.Transparency
		comp         *Composite
		bg           color.Color
		want         bool
	}{
		{"alpha opaque", surface.Opaque, SrcOver, nil, true},
		{"alpha translucent", surface.Translucent, Src, nil, true},
		{"derived alpha", surface.Translucent, SrcOverNoEa, nil, true},
		{"alpha opaque with bg", surface.Opaque, SrcOver, bg, true},
		{"alpha bitmask with bg", surface.Bitmask, SrcOver, bg, false},
		{"alpha translucent with bg", surface.Translucent, SrcOver, bg, false},
		{"xor opaque", surface.Opaque, Xor, nil, false},
		{"xor with bg", surface.Opaque, Xor, bg, false},
		{"any", surface.Translucent, Any, nil, false},
	}
	dst := newTestDest()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := surface.NewImageSurface(4, 4, tt.transparency)
			p := NewSurfaceProxy(dst, tt.transparency)
			for _, tx := range []Transform{Identity, Translate, Scale, General} {
				if got := p.IsSupportedOperation(src, tx, tt.comp, tt.bg); got != tt.want {
					t.Errorf("IsSupportedOperation(%v, %v) = %v, want %v", tx, tt.comp, got, tt.want)
				}
			}
		})
	}
}

func TestSurfaceProxyValidate(t *testing.T) {
	dst := newTestDest()
	src := surface.NewImageSurface(10, 6, surface.Translucent)
	p := NewSurfaceProxy(dst, surface.Translucent)

	cached := p.Validate(src, nil, 10, 6)
	if cached == nil {
		t.Fatal("Validate(nil) = nil")
	}
	if cached.Width() != 10 || cached.Height() != 6 {
		t.Errorf("size = %dx%d, want 10x6", cached.Width(), cached.Height())
	}
	if cached.Transparency() != surface.Translucent {
		t.Errorf("Transparency() = %v", cached.Transparency())
	}

	// The existing surface is returned without comparing sizes.
	if got := p.Validate(src, cached, 20, 20); got != cached {
		t.Errorf("Validate(cached) = %v, want the cached surface", got)
	}
	if len(dst.created) != 1 {
		t.Errorf("created %d surfaces, want 1", len(dst.created))
	}
}

func TestSurfaceProxyValidateOutOfMemory(t *testing.T) {
	dst := newTestDest()
	dst.fake.OutOfMemory = true
	src := surface.NewImageSurface(10, 6, surface.Opaque)
	p := NewSurfaceProxy(dst, surface.Opaque)

	if s := p.Validate(src, nil, 10, 6); s != nil {
		t.Errorf("Validate() = %v, want nil", s)
	}
}

func TestSurfaceProxyValidateOtherError(t *testing.T) {
	dst := newTestDest()
	dst.fail = errors.New("device lost")
	p := NewSurfaceProxy(dst, surface.Opaque)

	if s := p.Validate(surface.NewImageSurface(2, 2, surface.Opaque), nil, 2, 2); s != nil {
		t.Errorf("Validate() = %v, want nil", s)
	}
}

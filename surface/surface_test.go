// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/accel"
	"github.com/gogpu/accel/internal/nativetest"
	"github.com/gogpu/accel/native"
)

func TestKindIsAccelerated(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindUnaccelerated, false},
		{KindTexture, true},
		{KindFBObject, true},
		{KindFlipBackbuffer, true},
		{KindWindow, true},
		{Kind(42), false},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := tt.kind.IsAccelerated(); got != tt.want {
				t.Errorf("IsAccelerated() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindUsage(t *testing.T) {
	if KindUnaccelerated.Usage() != 0 {
		t.Error("unaccelerated surfaces need no texture usage")
	}
	if KindTexture.Usage()&gputypes.TextureUsageRenderAttachment != 0 {
		t.Error("plain textures are not render targets")
	}
	if KindFBObject.Usage()&gputypes.TextureUsageRenderAttachment == 0 {
		t.Error("framebuffer objects must be render targets")
	}
}

func TestColorModelFor(t *testing.T) {
	tests := []struct {
		tr   Transparency
		want ColorModel
	}{
		{Opaque, ColorModel{
			Transparency: Opaque, Bits: 24,
			RedMask: 0xff0000, GreenMask: 0xff00, BlueMask: 0xff,
			Format: gputypes.TextureFormatBGRA8Unorm,
		}},
		{Bitmask, ColorModel{
			Transparency: Bitmask, Bits: 25,
			RedMask: 0xff0000, GreenMask: 0xff00, BlueMask: 0xff, AlphaMask: 0x1000000,
			Format: gputypes.TextureFormatBGRA8Unorm,
		}},
		{Translucent, ColorModel{
			Transparency: Translucent, Bits: 32,
			RedMask: 0xff0000, GreenMask: 0xff00, BlueMask: 0xff, AlphaMask: 0xff000000,
			Premultiplied: true,
			Format:        gputypes.TextureFormatBGRA8Unorm,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.tr.String(), func(t *testing.T) {
			got := ColorModelFor(tt.tr)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ColorModelFor mismatch (-want +got):\n%s", diff)
			}
			if got.HasAlpha() != (tt.tr != Opaque) {
				t.Errorf("HasAlpha() = %v", got.HasAlpha())
			}
		})
	}
}

func TestImageSurface(t *testing.T) {
	s := NewImageSurface(0, -3, Translucent)
	if s.Width() != 1 || s.Height() != 1 {
		t.Errorf("size = %dx%d, want 1x1", s.Width(), s.Height())
	}
	if s.Kind().IsAccelerated() {
		t.Error("image surface must not be accelerated")
	}

	s = NewImageSurface(4, 4, Opaque)
	before := s.Serial()
	Clear(s, color.RGBA{R: 255, A: 255})
	if s.Serial() == before {
		t.Error("Clear should bump the serial")
	}
	if got := s.Pixels().RGBAAt(3, 3); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("pixel = %v", got)
	}

	if !s.Valid() {
		t.Error("new surface should be valid")
	}
	s.Invalidate()
	if s.Valid() {
		t.Error("invalidated surface should be invalid")
	}
}

func TestCopyClips(t *testing.T) {
	src := NewImageSurface(4, 4, Opaque)
	Clear(src, color.RGBA{G: 200, A: 255})
	dst := NewImageSurface(3, 3, Opaque)

	Copy(dst, image.Pt(1, 1), src, image.Rect(0, 0, 4, 4))
	if got := dst.Pixels().RGBAAt(0, 0); got.A != 0 {
		t.Errorf("pixel outside copy changed: %v", got)
	}
	if got := dst.Pixels().RGBAAt(2, 2); got.G != 200 {
		t.Errorf("pixel inside copy = %v", got)
	}
}

func TestAllocatorAllocate(t *testing.T) {
	fake := nativetest.New()
	h := fake.AcquireConfig(0, "")
	a := NewAllocator(fake, AllocatorConfig{})

	s, err := a.Allocate(h, Request{Width: 64, Height: 32, Transparency: Translucent, Kind: KindFBObject})
	if err != nil {
		t.Fatal(err)
	}
	if s.Kind() != KindFBObject || s.Width() != 64 || s.Height() != 32 {
		t.Errorf("surface = %v", s)
	}
	if s.Texture() == native.InvalidTexture || s.Config() != h {
		t.Errorf("texture=%d config=%d", s.Texture(), s.Config())
	}
	if !s.ColorModel().Premultiplied {
		t.Error("translucent surface should use premultiplied model")
	}
	if a.Stats().SurfaceCount != 1 || fake.LiveTextures() != 1 {
		t.Errorf("stats = %v, live textures = %d", a.Stats(), fake.LiveTextures())
	}

	s.Invalidate()
	s.Invalidate()
	if s.Valid() || a.Contains(s) {
		t.Error("invalidated surface still tracked")
	}
	if s.Texture() != native.InvalidTexture {
		t.Error("invalid surface should report no texture")
	}
	if a.Stats().UsedBytes != 0 || fake.LiveTextures() != 0 {
		t.Errorf("memory not returned: %v, live textures = %d", a.Stats(), fake.LiveTextures())
	}
}

func TestAllocatorRejectsUnaccelerated(t *testing.T) {
	a := NewAllocator(nativetest.New(), AllocatorConfig{})
	_, err := a.Allocate(1, Request{Width: 1, Height: 1, Kind: KindUnaccelerated})
	if !errors.Is(err, ErrNotAccelerated) {
		t.Errorf("err = %v, want ErrNotAccelerated", err)
	}
}

func TestAllocatorOutOfMemory(t *testing.T) {
	fake := nativetest.New()
	fake.OutOfMemory = true
	a := NewAllocator(fake, AllocatorConfig{})

	_, err := a.Allocate(1, Request{Width: 8, Height: 8, Kind: KindTexture})
	if !errors.Is(err, accel.ErrOutOfMemory) {
		t.Errorf("native failure: err = %v, want ErrOutOfMemory", err)
	}

	small := NewAllocator(nativetest.New(), AllocatorConfig{MaxMemoryMB: 1})
	_, err = small.Allocate(1, Request{Width: 1024, Height: 1024, Kind: KindTexture})
	if !errors.Is(err, ErrBudgetExceeded) || !accel.IsAllocationFailure(err) {
		t.Errorf("oversized: err = %v, want ErrBudgetExceeded", err)
	}

	small.Close()
	_, err = small.Allocate(1, Request{Width: 1, Height: 1, Kind: KindTexture})
	if !errors.Is(err, ErrAllocatorClosed) {
		t.Errorf("closed: err = %v", err)
	}
}

func TestAllocatorEvictsLeastRecentlyUsed(t *testing.T) {
	fake := nativetest.New()
	a := NewAllocator(fake, AllocatorConfig{MaxMemoryMB: 1})

	// 256x256 RGBA is a quarter of the budget.
	req := Request{Width: 256, Height: 256, Kind: KindTexture}
	var surfaces []*AccelSurface
	for range 4 {
		s, err := a.Allocate(1, req)
		if err != nil {
			t.Fatal(err)
		}
		surfaces = append(surfaces, s)
	}
	a.Touch(surfaces[0])

	fifth, err := a.Allocate(1, req)
	if err != nil {
		t.Fatal(err)
	}
	if !fifth.Valid() || !surfaces[0].Valid() {
		t.Error("recently used surfaces must survive")
	}
	if surfaces[1].Valid() {
		t.Error("least recently used surface should be evicted")
	}
	st := a.Stats()
	if st.EvictionCount != 1 || st.SurfaceCount != 4 {
		t.Errorf("stats = %v", st)
	}

	// Invalidating an evicted surface must not release twice.
	surfaces[1].Invalidate()
	if got := a.Stats().UsedBytes; got != 4*256*256*4 {
		t.Errorf("UsedBytes = %d", got)
	}
}

func TestAllocatorSetBudget(t *testing.T) {
	a := NewAllocator(nativetest.New(), AllocatorConfig{MaxMemoryMB: 4})
	s, err := a.Allocate(1, Request{Width: 1024, Height: 768, Kind: KindFBObject})
	if err != nil {
		t.Fatal(err)
	}
	if err := a.SetBudget(1); err != nil {
		t.Fatal(err)
	}
	if s.Valid() {
		t.Error("shrinking the budget should evict")
	}
	if a.Stats().TotalBytes != 1024*1024 {
		t.Errorf("TotalBytes = %d", a.Stats().TotalBytes)
	}
}

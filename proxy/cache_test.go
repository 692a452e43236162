// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package proxy

import (
	"image/color"
	"sync/atomic"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/accel/surface"
)

func TestCacheReplaceUploadsOnce(t *testing.T) {
	c := NewCache()
	dst := newTestDest()
	src := surface.NewImageSurface(8, 8, surface.Opaque)
	red := color.RGBA{R: 0xff, A: 0xff}
	surface.Clear(src, red)

	got := c.Replace(src, dst, SrcOver, nil, 8, 8)
	if got == surface.Surface(src) {
		t.Fatal("Replace returned the source, want a cached copy")
	}
	if !got.Kind().IsAccelerated() {
		t.Errorf("cached Kind() = %v, want accelerated", got.Kind())
	}
	if px := got.Pixels().RGBAAt(3, 3); px != red {
		t.Errorf("cached pixel = %v, want %v", px, red)
	}

	again := c.Replace(src, dst, SrcOver, nil, 8, 8)
	if again != got {
		t.Error("second Replace returned a different surface")
	}
	if s := c.Stats(); s.Uploads != 1 {
		t.Errorf("Uploads = %d, want 1", s.Uploads)
	}
}

func TestCacheReplaceReuploadsModifiedSource(t *testing.T) {
	c := NewCache()
	dst := newTestDest()
	src := surface.NewImageSurface(4, 4, surface.Translucent)

	first := c.Replace(src, dst, Src, nil, 4, 4)
	blue := color.RGBA{B: 0xff, A: 0xff}
	surface.Clear(src, blue)

	second := c.Replace(src, dst, Src, nil, 4, 4)
	if second != first {
		t.Error("modified source got a new cached surface, want the same one")
	}
	if px := second.Pixels().RGBAAt(0, 0); px != blue {
		t.Errorf("cached pixel = %v, want %v", px, blue)
	}
	if s := c.Stats(); s.Uploads != 2 {
		t.Errorf("Uploads = %d, want 2", s.Uploads)
	}
}

func TestCacheReplaceRecreatesOnSizeChange(t *testing.T) {
	c := NewCache()
	dst := newTestDest()
	src := surface.NewImageSurface(8, 8, surface.Opaque)

	small := c.Replace(src, dst, SrcOver, nil, 4, 4)
	large := c.Replace(src, dst, SrcOver, nil, 8, 8)

	if large == small {
		t.Fatal("size change reused the cached surface")
	}
	if small.Valid() {
		t.Error("old cached surface still valid")
	}
	if large.Width() != 8 || large.Height() != 8 {
		t.Errorf("size = %dx%d, want 8x8", large.Width(), large.Height())
	}
}

func TestCacheReplaceRecreatesLostSurface(t *testing.T) {
	c := NewCache()
	dst := newTestDest()
	src := surface.NewImageSurface(4, 4, surface.Opaque)

	first := c.Replace(src, dst, SrcOver, nil, 4, 4)
	first.Invalidate()

	second := c.Replace(src, dst, SrcOver, nil, 4, 4)
	if second == first || !second.Valid() {
		t.Error("lost cached surface was not replaced")
	}
	if s := c.Stats(); s.Uploads != 2 {
		t.Errorf("Uploads = %d, want 2", s.Uploads)
	}
}

func TestCacheReplaceBypass(t *testing.T) {
	dst := newTestDest()
	accelSrc, err := dst.CreateManagedSurface(4, 4, surface.Opaque)
	if err != nil {
		t.Fatalf("CreateManagedSurface: %v", err)
	}
	translucent := surface.NewImageSurface(4, 4, surface.Translucent)

	tests := []struct {
		name string
		src  surface.Surface
		comp *Composite
		bg   color.Color
	}{
		{"accelerated source", accelSrc, SrcOver, nil},
		{"xor composite", translucent, Xor, nil},
		{"background on translucent", translucent, SrcOver, color.White},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCache()
			if got := c.Replace(tt.src, dst, tt.comp, tt.bg, 4, 4); got != tt.src {
				t.Errorf("Replace() = %v, want the source", got)
			}
			if s := c.Stats(); s.Uploads != 0 {
				t.Errorf("Uploads = %d, want 0", s.Uploads)
			}
		})
	}
}

func TestCacheReplaceOutOfMemory(t *testing.T) {
	c := NewCache()
	dst := newTestDest()
	dst.fake.OutOfMemory = true
	src := surface.NewImageSurface(4, 4, surface.Opaque)

	if got := c.Replace(src, dst, SrcOver, nil, 4, 4); got != surface.Surface(src) {
		t.Errorf("Replace() = %v, want the source", got)
	}
	if s := c.Stats(); s.Unavailable != 1 {
		t.Errorf("Unavailable = %d, want 1", s.Unavailable)
	}

	dst.fake.OutOfMemory = false
	if got := c.Replace(src, dst, SrcOver, nil, 4, 4); got == surface.Surface(src) {
		t.Error("Replace() still bypasses the cache after memory was freed")
	}
}

func TestCacheInvalidate(t *testing.T) {
	c := NewCache()
	dst := newTestDest()
	other := newTestDest()
	src := surface.NewImageSurface(4, 4, surface.Opaque)
	keep := surface.NewImageSurface(4, 4, surface.Opaque)

	a := c.Replace(src, dst, SrcOver, nil, 4, 4)
	b := c.Replace(src, other, SrcOver, nil, 4, 4)
	k := c.Replace(keep, dst, SrcOver, nil, 4, 4)

	if n := c.Invalidate(src); n != 2 {
		t.Errorf("Invalidate() = %d, want 2", n)
	}
	if a.Valid() || b.Valid() {
		t.Error("cached copies of the invalidated source are still valid")
	}
	if !k.Valid() || c.Len() != 1 {
		t.Errorf("unrelated entry dropped: valid=%v len=%d", k.Valid(), c.Len())
	}

	if n := c.InvalidateDestination(dst); n != 1 {
		t.Errorf("InvalidateDestination() = %d, want 1", n)
	}
	if k.Valid() {
		t.Error("cached copy on the invalidated destination is still valid")
	}
}

func TestCacheEviction(t *testing.T) {
	const sources = 40
	c := NewCache(WithCapacity(1))
	dst := newTestDest()

	var cached []surface.Surface
	for range sources {
		src := surface.NewImageSurface(2, 2, surface.Opaque)
		cached = append(cached, c.Replace(src, dst, SrcOver, nil, 2, 2))
	}

	s := c.Stats()
	if s.Entries > 16 {
		t.Errorf("Entries = %d, want at most one per shard", s.Entries)
	}
	if got := s.Entries + int(s.Evictions); got != sources {
		t.Errorf("Entries+Evictions = %d, want %d", got, sources)
	}
	invalid := 0
	for _, cs := range cached {
		if !cs.Valid() {
			invalid++
		}
	}
	if invalid != int(s.Evictions) {
		t.Errorf("%d cached surfaces invalid, want %d", invalid, s.Evictions)
	}
}

func TestCacheClear(t *testing.T) {
	c := NewCache()
	dst := newTestDest()
	s := c.Replace(surface.NewImageSurface(2, 2, surface.Opaque), dst, SrcOver, nil, 2, 2)

	c.Clear()
	if c.Len() != 0 || s.Valid() {
		t.Errorf("after Clear: len=%d valid=%v", c.Len(), s.Valid())
	}
}

func TestCacheConcurrentReplace(t *testing.T) {
	c := NewCache()
	dst := newTestDest()
	src := surface.NewImageSurface(16, 16, surface.Opaque)
	surface.Clear(src, color.White)

	results := make([]surface.Surface, 32)
	var g errgroup.Group
	for i := range results {
		g.Go(func() error {
			results[i] = c.Replace(src, dst, SrcOver, nil, 16, 16)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	for i, r := range results {
		if r != results[0] {
			t.Fatalf("result %d differs from result 0", i)
		}
	}
	if s := c.Stats(); s.Uploads != 1 {
		t.Errorf("Uploads = %d, want 1", s.Uploads)
	}
	if n := len(dst.created); n != 1 {
		t.Errorf("created %d surfaces, want 1", n)
	}
}

func TestCacheReplaceDuringUpload(t *testing.T) {
	c := NewCache()
	dst := newTestDest()
	src := surface.NewImageSurface(8, 8, surface.Translucent)

	entered := make(chan struct{})
	resume := make(chan struct{})
	var blocked atomic.Bool
	dst.beforeCreate = func() {
		if blocked.CompareAndSwap(false, true) {
			close(entered)
			<-resume
		}
	}

	first := make(chan surface.Surface, 1)
	go func() { first <- c.Replace(src, dst, SrcOver, nil, 8, 8) }()
	<-entered

	// Operations that cannot use the cache bypass the upload in progress.
	if got := c.Replace(src, dst, Xor, nil, 8, 8); got != surface.Surface(src) {
		t.Errorf("Replace(Xor) = %v, want the source", got)
	}
	if got := c.Replace(src, dst, SrcOver, color.White, 8, 8); got != surface.Surface(src) {
		t.Errorf("Replace(background) = %v, want the source", got)
	}

	resized := make(chan surface.Surface, 1)
	go func() { resized <- c.Replace(src, dst, SrcOver, nil, 4, 4) }()
	close(resume)

	if s := <-first; s == surface.Surface(src) || s.Width() != 8 || s.Height() != 8 {
		t.Errorf("Replace(8x8) = %v, want an 8x8 cached copy", s)
	}
	if s := <-resized; s == surface.Surface(src) || s.Width() != 4 || s.Height() != 4 {
		t.Errorf("Replace(4x4) = %v, want a 4x4 cached copy", s)
	}
}

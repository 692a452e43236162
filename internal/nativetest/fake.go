// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package nativetest provides a recording native.Backend for tests.
package nativetest

import (
	"fmt"
	"sync"

	"github.com/gogpu/accel"
	"github.com/gogpu/accel/caps"
	"github.com/gogpu/accel/native"
)

// Fake is an in-memory native.Backend. Every call is appended to Calls so
// tests can assert ordering. The exported fields configure behaviour and
// must be set before the fake is shared between goroutines.
type Fake struct {
	Available  bool
	Caps       caps.Bits
	MaxTexture int
	Adapter    string

	// FailAcquire makes AcquireConfig return InvalidHandle.
	FailAcquire bool

	// OutOfMemory makes CreateTexture fail with accel.ErrOutOfMemory.
	OutOfMemory bool

	// OnAcquire, if set, runs inside AcquireConfig.
	OnAcquire func()

	mu       sync.Mutex
	calls    []string
	next     native.ConfigHandle
	fixed    native.ConfigHandle
	live     map[native.ConfigHandle]bool
	released map[native.ConfigHandle]int
	textures map[native.TextureID]bool
	nextTex  native.TextureID
}

// New returns an available fake with framebuffer object and double
// buffering support and a 4096 texture limit.
func New() *Fake {
	return &Fake{
		Available:  true,
		Caps:       caps.ExtFBObject | caps.DoubleBuffered | caps.TexNonPow2,
		MaxTexture: 4096,
		Adapter:    "fake adapter",
	}
}

// ShareHandle makes every AcquireConfig return h, emulating a driver that
// hands out one configuration per display.
func (f *Fake) ShareHandle(h native.ConfigHandle) {
	f.mu.Lock()
	f.fixed = h
	f.mu.Unlock()
}

func (f *Fake) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

// Calls returns a copy of the recorded calls.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Releases returns how many times ReleaseConfig was called for h.
func (f *Fake) Releases(h native.ConfigHandle) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released[h]
}

// LiveTextures returns the number of textures not yet destroyed.
func (f *Fake) LiveTextures() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.textures)
}

func (f *Fake) Initialize() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Initialize")
	return f.Available
}

func (f *Fake) AcquireConfig(displayID uint32, shaderLib string) native.ConfigHandle {
	if f.OnAcquire != nil {
		f.OnAcquire()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("AcquireConfig(%d)", displayID)
	if f.FailAcquire {
		return native.InvalidHandle
	}
	if f.live == nil {
		f.live = make(map[native.ConfigHandle]bool)
	}
	h := f.fixed
	if h == native.InvalidHandle {
		f.next++
		h = f.next
	}
	f.live[h] = true
	return h
}

func (f *Fake) QueryCapabilities(h native.ConfigHandle) caps.Bits {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("QueryCapabilities")
	return f.Caps
}

func (f *Fake) QueryMaxTextureSize() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("QueryMaxTextureSize")
	return f.MaxTexture
}

func (f *Fake) SetScratchSurface(h native.ConfigHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetScratchSurface")
}

func (f *Fake) AdapterID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("AdapterID")
	return f.Adapter
}

func (f *Fake) ReleaseConfig(h native.ConfigHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ReleaseConfig(%d)", h)
	if f.released == nil {
		f.released = make(map[native.ConfigHandle]int)
	}
	f.released[h]++
	delete(f.live, h)
}

func (f *Fake) CreateTexture(h native.ConfigHandle, desc native.TextureDesc) (native.TextureID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.OutOfMemory {
		return native.InvalidTexture, fmt.Errorf("fake: %dx%d: %w", desc.Width, desc.Height, accel.ErrOutOfMemory)
	}
	if f.textures == nil {
		f.textures = make(map[native.TextureID]bool)
	}
	f.nextTex++
	f.textures[f.nextTex] = true
	return f.nextTex, nil
}

func (f *Fake) DestroyTexture(id native.TextureID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.textures, id)
}

var _ native.Backend = (*Fake)(nil)

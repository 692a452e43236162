// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package native

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// HeadlessProvider is a gpucontext.DeviceProvider without a GPU. Textures
// created through it live in system memory only. It lets tools and tests
// run the accelerated pipeline where no window system is available.
type HeadlessProvider struct {
	dev headlessDevice
}

type (
	headlessDevice  struct{}
	headlessQueue   struct{}
	headlessAdapter struct{}
)

func (headlessDevice) Poll(bool) {}
func (headlessDevice) Destroy()  {}

// Device returns the software device.
func (p *HeadlessProvider) Device() gpucontext.Device { return p.dev }

// Queue returns the software queue.
func (p *HeadlessProvider) Queue() gpucontext.Queue { return headlessQueue{} }

// Adapter returns the software adapter.
func (p *HeadlessProvider) Adapter() gpucontext.Adapter { return headlessAdapter{} }

// SurfaceFormat returns BGRA8Unorm, the format of accelerated surfaces.
func (p *HeadlessProvider) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatBGRA8Unorm
}

// AdapterInfo reports a software adapter.
func (p *HeadlessProvider) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "accel headless", Type: gpucontext.AdapterTypeSoftware}
}

// NullProvider provides no device. A backend over it never initializes.
type NullProvider struct{}

// Device returns nil.
func (NullProvider) Device() gpucontext.Device { return nil }

// Queue returns nil.
func (NullProvider) Queue() gpucontext.Queue { return nil }

// Adapter returns nil.
func (NullProvider) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat returns the undefined format.
func (NullProvider) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// AdapterInfo reports an unknown adapter.
func (NullProvider) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Type: gpucontext.AdapterTypeUnknown}
}

var (
	_ gpucontext.DeviceProvider = (*HeadlessProvider)(nil)
	_ gpucontext.DeviceProvider = NullProvider{}
)

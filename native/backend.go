// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package native defines the narrow interface through which accel reaches
// the GPU driver, and a Backend implementation on top of a
// gpucontext.DeviceProvider.
//
// Everything behind Backend is opaque: configurations and textures are
// identified by integer handles that only the backend can interpret.
package native

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/accel/caps"
)

// ConfigHandle identifies a native GPU configuration (device, pixel format
// and capability set).
type ConfigHandle uint64

// InvalidHandle is returned by AcquireConfig on failure.
const InvalidHandle ConfigHandle = 0

// TextureID identifies a native texture or framebuffer.
type TextureID uint64

// InvalidTexture is the zero TextureID.
const InvalidTexture TextureID = 0

// TextureDesc describes a texture to allocate.
type TextureDesc struct {
	Label  string
	Width  int
	Height int
	Format gputypes.TextureFormat
	Usage  gputypes.TextureUsage
}

// Backend is the native acceleration backend.
//
// Resource lifecycle:
//   - configurations are created by AcquireConfig and destroyed by
//     ReleaseConfig, which the handle registry calls exactly once
//   - textures are created by CreateTexture and destroyed by DestroyTexture
//
// Calls that create temporary native surfaces (AcquireConfig,
// QueryMaxTextureSize, SetScratchSurface) must be made with the render
// queue locked and the current context invalidated.
type Backend interface {
	// === Global ===

	// Initialize performs the process-wide availability check. It is called
	// once; false means acceleration is unavailable for good.
	Initialize() bool

	// === Configurations ===

	// AcquireConfig creates the native configuration for a display,
	// loading the shader library at shaderLib. It returns InvalidHandle on
	// failure.
	AcquireConfig(displayID uint32, shaderLib string) ConfigHandle

	// QueryCapabilities returns the capability bits of a configuration.
	QueryCapabilities(h ConfigHandle) caps.Bits

	// QueryMaxTextureSize returns the largest texture dimension. A
	// rendering context must be current.
	QueryMaxTextureSize() int

	// SetScratchSurface makes the scratch surface of h current so that
	// later queries have a context to run against.
	SetScratchSurface(h ConfigHandle)

	// AdapterID returns a human readable identity of the current adapter.
	AdapterID() string

	// ReleaseConfig destroys a configuration.
	ReleaseConfig(h ConfigHandle)

	// === Textures ===

	// CreateTexture allocates a texture or framebuffer for configuration h.
	// It returns an error wrapping accel.ErrOutOfMemory when native memory
	// is exhausted.
	CreateTexture(h ConfigHandle, desc TextureDesc) (TextureID, error)

	// DestroyTexture releases a texture. Unknown ids are ignored.
	DestroyTexture(id TextureID)
}

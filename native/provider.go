// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package native

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"

	"github.com/gogpu/accel"
	"github.com/gogpu/accel/caps"
)

// ErrShaderLibrary is returned (and logged) when the shader library cannot
// be loaded or compiled.
var ErrShaderLibrary = errors.New("native: shader library unusable")

// defaultCaps is what a WebGPU-class device guarantees.
const defaultCaps = caps.RTPlainAlpha | caps.ExtFBObject | caps.MultiTexture |
	caps.TexNonPow2 | caps.TexNonSquare | caps.PS20 | caps.PS30 |
	caps.ExtLCDShader | caps.ExtBIOpShader | caps.ExtGradShader

// ProviderBackend implements Backend on top of a device shared by the host
// application through gpucontext.DeviceProvider.
//
// The backend does not own the device: ReleaseConfig forgets per-config
// state but never destroys the provider's device.
//
// ProviderBackend is safe for concurrent use.
type ProviderBackend struct {
	provider gpucontext.DeviceProvider
	limits   gputypes.Limits
	mask     caps.Bits

	mu       sync.Mutex
	configs  map[ConfigHandle]*configInfo
	textures map[TextureID]ConfigHandle
	scratch  ConfigHandle

	nextHandle  atomic.Uint64
	nextTexture atomic.Uint64
}

type configInfo struct {
	displayID uint32
	spirv     []byte
}

// ProviderOption configures a ProviderBackend.
type ProviderOption func(*ProviderBackend)

// WithLimits overrides the device limits. By default gputypes.DefaultLimits
// is used.
func WithLimits(l gputypes.Limits) ProviderOption {
	return func(b *ProviderBackend) { b.limits = l }
}

// WithCapabilityMask restricts the capability bits reported for every
// configuration. Use it to emulate weaker devices.
func WithCapabilityMask(mask caps.Bits) ProviderOption {
	return func(b *ProviderBackend) { b.mask = mask }
}

// NewProviderBackend returns a Backend that renders through provider.
// A nil provider yields a backend whose Initialize reports false.
func NewProviderBackend(provider gpucontext.DeviceProvider, opts ...ProviderOption) *ProviderBackend {
	b := &ProviderBackend{
		provider: provider,
		limits:   gputypes.DefaultLimits(),
		mask:     ^caps.Bits(0),
		configs:  make(map[ConfigHandle]*configInfo),
		textures: make(map[TextureID]ConfigHandle),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Initialize implements Backend.
func (b *ProviderBackend) Initialize() bool {
	if b.provider == nil || b.provider.Device() == nil {
		accel.Logger().Warn("native: no GPU device provided")
		return false
	}
	return true
}

// AcquireConfig implements Backend. The shader library, when given, is a
// WGSL file that must compile; the compiled module is kept with the
// configuration.
func (b *ProviderBackend) AcquireConfig(displayID uint32, shaderLib string) ConfigHandle {
	info := &configInfo{displayID: displayID}
	if shaderLib != "" {
		spirv, err := compileShaderLibrary(shaderLib)
		if err != nil {
			accel.Logger().Warn("native: config acquisition failed",
				"display", displayID, "err", err)
			return InvalidHandle
		}
		info.spirv = spirv
	}

	h := ConfigHandle(b.nextHandle.Add(1))
	b.mu.Lock()
	b.configs[h] = info
	b.mu.Unlock()
	return h
}

func compileShaderLibrary(path string) ([]byte, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrShaderLibrary, err)
	}
	spirv, err := naga.Compile(string(src))
	if err != nil {
		return nil, fmt.Errorf("%w: compile %s: %w", ErrShaderLibrary, path, err)
	}
	return spirv, nil
}

// QueryCapabilities implements Backend.
func (b *ProviderBackend) QueryCapabilities(h ConfigHandle) caps.Bits {
	b.mu.Lock()
	_, ok := b.configs[h]
	b.mu.Unlock()
	if !ok {
		return 0
	}

	bits := defaultCaps
	// A presentable surface format means the window has a swapchain, i.e.
	// a back buffer to flip.
	if b.provider.SurfaceFormat() != gputypes.TextureFormatUndefined {
		bits |= caps.DoubleBuffered
	}
	return bits & b.mask
}

// QueryMaxTextureSize implements Backend.
func (b *ProviderBackend) QueryMaxTextureSize() int {
	return int(b.limits.MaxTextureDimension2D)
}

// SetScratchSurface implements Backend.
func (b *ProviderBackend) SetScratchSurface(h ConfigHandle) {
	b.mu.Lock()
	b.scratch = h
	b.mu.Unlock()
}

// AdapterID implements Backend. It is built from the provider's adapter
// info and is empty when the provider knows nothing about its adapter.
func (b *ProviderBackend) AdapterID() string {
	if b.provider == nil {
		return ""
	}
	info := b.provider.AdapterInfo()
	if info.Name == "" {
		if info.Type == gpucontext.AdapterTypeUnknown {
			return ""
		}
		return info.Type.String()
	}
	return fmt.Sprintf("%s (%s)", info.Name, info.Type)
}

// ReleaseConfig implements Backend. Textures still allocated for the
// configuration are forgotten with it.
func (b *ProviderBackend) ReleaseConfig(h ConfigHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.configs, h)
	for id, owner := range b.textures {
		if owner == h {
			delete(b.textures, id)
		}
	}
	if b.scratch == h {
		b.scratch = InvalidHandle
	}
}

// CreateTexture implements Backend.
func (b *ProviderBackend) CreateTexture(h ConfigHandle, desc TextureDesc) (TextureID, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return InvalidTexture, fmt.Errorf("native: invalid texture size %dx%d", desc.Width, desc.Height)
	}
	limit := b.QueryMaxTextureSize()
	if desc.Width > limit || desc.Height > limit {
		return InvalidTexture, fmt.Errorf("%w: texture %dx%d exceeds limit %d",
			accel.ErrOutOfMemory, desc.Width, desc.Height, limit)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.configs[h]; !ok {
		return InvalidTexture, fmt.Errorf("%w: unknown configuration %d", accel.ErrNilReference, h)
	}
	id := TextureID(b.nextTexture.Add(1))
	b.textures[id] = h
	return id, nil
}

// DestroyTexture implements Backend.
func (b *ProviderBackend) DestroyTexture(id TextureID) {
	b.mu.Lock()
	delete(b.textures, id)
	b.mu.Unlock()
}

// LiveConfigs returns the number of configurations not yet released.
func (b *ProviderBackend) LiveConfigs() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.configs)
}

var _ Backend = (*ProviderBackend)(nil)

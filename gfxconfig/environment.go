// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package gfxconfig provides graphics configurations: per display and
// pixel format descriptions of what the accelerated pipeline can do, and
// factories for the surfaces it renders into.
//
// An Environment is created once per process (or per backend) and hands
// out configurations:
//
//	env := gfxconfig.NewEnvironment(backend)
//	defer env.Close()
//
//	cfg, err := env.GetConfig(ctx, gfxconfig.Device{DisplayID: 1, ScaleFactor: 2}, 0)
//	if err != nil {
//		return err
//	}
//	defer cfg.Close()
package gfxconfig

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	"github.com/gogpu/accel"
	"github.com/gogpu/accel/caps"
	"github.com/gogpu/accel/handle"
	"github.com/gogpu/accel/mainthread"
	"github.com/gogpu/accel/native"
	"github.com/gogpu/accel/proxy"
	"github.com/gogpu/accel/renderqueue"
	"github.com/gogpu/accel/surface"
)

// Environment acquires graphics configurations from a native backend.
//
// Environment is safe for concurrent use. GetConfig must not be called
// while holding the render queue lock.
type Environment struct {
	backend   native.Backend
	queue     *renderqueue.Queue
	exec      *mainthread.Executor
	registry  *handle.Registry
	alloc     *surface.Allocator
	proxies   *proxy.Cache
	shaderLib string
	meter     metric.Meter
	allocCfg  surface.AllocatorConfig
	proxyCap  int
	noAccel   bool
	available bool

	ownQueue bool
	ownExec  bool
}

// Option configures an Environment.
type Option func(*Environment)

// WithRenderQueue shares q instead of creating a private queue.
func WithRenderQueue(q *renderqueue.Queue) Option {
	return func(e *Environment) { e.queue = q }
}

// WithExecutor runs native configuration calls on ex instead of a private
// UI thread.
func WithExecutor(ex *mainthread.Executor) Option {
	return func(e *Environment) { e.exec = ex }
}

// WithRegistry shares a handle registry between environments over the
// same backend.
func WithRegistry(r *handle.Registry) Option {
	return func(e *Environment) { e.registry = r }
}

// WithShaderLibrary sets the shader library passed to the backend.
func WithShaderLibrary(path string) Option {
	return func(e *Environment) { e.shaderLib = path }
}

// WithMemoryBudget sets the GPU memory budget for surfaces.
func WithMemoryBudget(megabytes int) Option {
	return func(e *Environment) { e.allocCfg.MaxMemoryMB = megabytes }
}

// WithProxyCacheCapacity sets the proxy cache capacity per shard.
func WithProxyCacheCapacity(n int) Option {
	return func(e *Environment) { e.proxyCap = n }
}

// WithAcceleration enables or disables accelerated volatile images. When
// disabled, back buffers and volatile images live in system memory.
func WithAcceleration(enabled bool) Option {
	return func(e *Environment) { e.noAccel = !enabled }
}

// WithMeter records handle and surface metrics on m.
func WithMeter(m metric.Meter) Option {
	return func(e *Environment) { e.meter = m }
}

// NewEnvironment initializes backend and returns an environment over it.
// If initialization fails, every GetConfig returns
// accel.ErrBackendUnavailable for the life of the environment.
func NewEnvironment(backend native.Backend, opts ...Option) *Environment {
	e := &Environment{backend: backend}
	for _, opt := range opts {
		opt(e)
	}
	if e.queue == nil {
		e.queue = renderqueue.New()
		e.ownQueue = true
	}
	if e.exec == nil {
		e.exec = mainthread.New()
		e.ownExec = true
	}
	if e.registry == nil {
		var ropts []handle.Option
		if e.meter != nil {
			ropts = append(ropts, handle.WithMeter(e.meter))
		}
		e.registry = handle.NewRegistry(e.disposeConfig, ropts...)
	}
	e.allocCfg.Meter = e.meter
	e.alloc = surface.NewAllocator(backend, e.allocCfg)
	popts := []proxy.CacheOption{proxy.WithCapacity(e.proxyCap)}
	if e.meter != nil {
		popts = append(popts, proxy.WithMeter(e.meter))
	}
	e.proxies = proxy.NewCache(popts...)

	e.available = backend.Initialize()
	if !e.available {
		accel.Logger().Warn("gfxconfig: acceleration backend unavailable")
	}
	return e
}

// disposeConfig releases a native configuration through the render queue,
// with the configuration's scratch surface current.
func (e *Environment) disposeConfig(h native.ConfigHandle) {
	e.queue.WithLock(func() {
		e.backend.SetScratchSurface(h)
		e.queue.Enqueue(func() { e.backend.ReleaseConfig(h) })
		if err := e.queue.Flush(); err != nil {
			accel.Logger().Warn("gfxconfig: dispose through render queue failed", "handle", h, "err", err)
			e.backend.ReleaseConfig(h)
		}
	})
}

// Available reports whether the backend initialized.
func (e *Environment) Available() bool { return e.available }

// Queue returns the render queue.
func (e *Environment) Queue() *renderqueue.Queue { return e.queue }

// Registry returns the handle registry.
func (e *Environment) Registry() *handle.Registry { return e.registry }

// Allocator returns the surface allocator.
func (e *Environment) Allocator() *surface.Allocator { return e.alloc }

// ProxyCache returns the cache of accelerated copies of software surfaces
// shared by all configurations of the environment.
func (e *Environment) ProxyCache() *proxy.Cache { return e.proxies }

// acquisition is the result of the UI thread sequence.
type acquisition struct {
	handle     native.ConfigHandle
	maxTexture int
	adapterID  string
}

// GetConfig returns a configuration for device and pixel format.
//
// The native configuration is acquired on the UI thread while holding the
// render queue lock: the current context is invalidated first, then the
// configuration, texture limit and adapter identity are queried. GetConfig
// blocks until that sequence completes. ctx bounds only the wait for the
// UI thread.
//
// Errors are accel.ErrBackendUnavailable or *accel.ConfigAcquisitionError.
func (e *Environment) GetConfig(ctx context.Context, dev Device, pixfmt int) (*Config, error) {
	if !e.available {
		return nil, accel.ErrBackendUnavailable
	}

	// acquired outlives a panic on the UI thread, so the native
	// configuration is released on every error path.
	acquired := native.InvalidHandle
	acq, err := mainthread.Call(ctx, e.exec, func() (acquisition, error) {
		e.queue.Lock()
		defer e.queue.Unlock()

		e.queue.InvalidateCurrentContext()

		var a acquisition
		a.handle = e.backend.AcquireConfig(dev.DisplayID, e.shaderLib)
		if a.handle == native.InvalidHandle {
			return a, nil
		}
		acquired = a.handle
		a.maxTexture = e.backend.QueryMaxTextureSize()
		e.backend.SetScratchSurface(a.handle)
		err := e.queue.FlushAndInvokeNow(func() {
			a.adapterID = e.backend.AdapterID()
		})
		return a, err
	})
	if err != nil {
		if acquired != native.InvalidHandle {
			e.backend.ReleaseConfig(acquired)
		}
		return nil, &accel.ConfigAcquisitionError{DisplayID: dev.DisplayID, PixelFormat: pixfmt, Err: err}
	}
	if acq.handle == native.InvalidHandle {
		return nil, &accel.ConfigAcquisitionError{DisplayID: dev.DisplayID, PixelFormat: pixfmt}
	}

	bits := e.backend.QueryCapabilities(acq.handle)
	c := &Config{
		env:        e,
		dev:        dev,
		pixfmt:     pixfmt,
		ref:        e.registry.Ref(acq.handle),
		caps:       caps.NewContextCapabilities(bits, acq.adapterID),
		maxTexture: acq.maxTexture,
		ctx:        e.queue.NewContext(fmt.Sprintf("display %d", dev.DisplayID)),
	}
	accel.Logger().Info("gfxconfig: configuration acquired",
		"display", dev.DisplayID, "pixfmt", pixfmt, "handle", acq.handle,
		"caps", bits.String(), "maxTexture", acq.maxTexture)
	return c, nil
}

// Close stops the private render queue and UI thread and releases all
// surfaces. Configurations already handed out stay valid for reference
// counting but can no longer allocate surfaces.
func (e *Environment) Close() error {
	e.proxies.Clear()
	e.alloc.Close()
	if e.ownExec {
		e.exec.Close()
	}
	if e.ownQueue {
		e.queue.Close()
	}
	return nil
}

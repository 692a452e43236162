// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package handle keeps process-wide reference counts for native
// configuration handles.
//
// Many GraphicsConfig values may share one native configuration. Each of
// them holds a Ref; the native configuration is released exactly once,
// when the last Ref is closed.
//
//	reg := handle.NewRegistry(backend.ReleaseConfig)
//	ref := reg.Ref(h)
//	defer ref.Close()
package handle

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/gogpu/accel"
	"github.com/gogpu/accel/native"
)

const meterName = "github.com/gogpu/accel/handle"

// ReleaseFunc destroys a native configuration.
type ReleaseFunc func(native.ConfigHandle)

// Registry maps native configuration handles to live reference counts.
//
// All operations are serialized by one mutex. The release function runs
// with that mutex held, so removal of the entry and the native release are
// a single step as seen by other callers. Do not call Release while holding
// the render queue lock: native teardown may need the rendering pipeline.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	counts  map[native.ConfigHandle]int
	release ReleaseFunc

	acquired metric.Int64Counter
	released metric.Int64Counter
	live     metric.Int64UpDownCounter
}

// Option configures a Registry.
type Option func(*options)

type options struct {
	meter metric.Meter
}

// WithMeter records acquire/release metrics on m.
func WithMeter(m metric.Meter) Option {
	return func(o *options) { o.meter = m }
}

// NewRegistry returns an empty registry that calls release when a count
// drops to zero. A nil release is allowed and does nothing.
func NewRegistry(release ReleaseFunc, opts ...Option) *Registry {
	o := options{meter: noop.NewMeterProvider().Meter(meterName)}
	for _, opt := range opts {
		opt(&o)
	}
	if release == nil {
		release = func(native.ConfigHandle) {}
	}

	r := &Registry{
		counts:  make(map[native.ConfigHandle]int),
		release: release,
	}
	r.initMetrics(o.meter)
	return r
}

func (r *Registry) initMetrics(m metric.Meter) {
	fallback := noop.NewMeterProvider().Meter(meterName)
	var err error
	if r.acquired, err = m.Int64Counter("accel.handle.acquire",
		metric.WithDescription("Native configuration references taken")); err != nil {
		accel.Logger().Warn("handle: metric disabled", "err", err)
		r.acquired, _ = fallback.Int64Counter("accel.handle.acquire")
	}
	if r.released, err = m.Int64Counter("accel.handle.release",
		metric.WithDescription("Native configurations destroyed")); err != nil {
		accel.Logger().Warn("handle: metric disabled", "err", err)
		r.released, _ = fallback.Int64Counter("accel.handle.release")
	}
	if r.live, err = m.Int64UpDownCounter("accel.handle.live",
		metric.WithDescription("Native configuration references currently held")); err != nil {
		accel.Logger().Warn("handle: metric disabled", "err", err)
		r.live, _ = fallback.Int64UpDownCounter("accel.handle.live")
	}
}

// Acquire takes a reference to h, creating its entry with count 1 if it
// is absent. InvalidHandle is ignored.
func (r *Registry) Acquire(h native.ConfigHandle) {
	if h == native.InvalidHandle {
		return
	}
	r.mu.Lock()
	r.counts[h]++
	n := r.counts[h]
	r.mu.Unlock()

	attrs := metric.WithAttributes(attribute.Int64("handle", int64(h)))
	r.acquired.Add(context.Background(), 1, attrs)
	r.live.Add(context.Background(), 1, attrs)
	accel.Logger().Debug("handle: acquire", "handle", h, "count", n)
}

// Release drops a reference to h. When the count reaches zero the entry is
// removed and the native configuration is released, exactly once.
// Releasing an unknown handle does nothing.
func (r *Registry) Release(h native.ConfigHandle) {
	if h == native.InvalidHandle {
		return
	}
	r.mu.Lock()
	n, ok := r.counts[h]
	if !ok {
		r.mu.Unlock()
		return
	}
	n--
	if n > 0 {
		r.counts[h] = n
		r.mu.Unlock()
		r.live.Add(context.Background(), -1, metric.WithAttributes(attribute.Int64("handle", int64(h))))
		accel.Logger().Debug("handle: release", "handle", h, "count", n)
		return
	}
	delete(r.counts, h)
	r.release(h)
	r.mu.Unlock()

	attrs := metric.WithAttributes(attribute.Int64("handle", int64(h)))
	r.live.Add(context.Background(), -1, attrs)
	r.released.Add(context.Background(), 1, attrs)
	accel.Logger().Info("handle: native configuration released", "handle", h)
}

// Count returns the number of live references to h.
func (r *Registry) Count(h native.ConfigHandle) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[h]
}

// Len returns the number of handles with live references.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.counts)
}

// Ref acquires h and returns its owner. Closing the Ref releases h.
func (r *Registry) Ref(h native.ConfigHandle) *Ref {
	r.Acquire(h)
	return &Ref{reg: r, h: h}
}

// Ref owns one reference to a native configuration handle.
// Close releases it exactly once no matter how many times it is called.
// A Ref must not be copied.
type Ref struct {
	reg  *Registry
	h    native.ConfigHandle
	once sync.Once
}

// Handle returns the referenced handle.
func (x *Ref) Handle() native.ConfigHandle {
	return x.h
}

// Close releases the reference. It is safe to call from any goroutine and
// more than once.
func (x *Ref) Close() error {
	x.once.Do(func() {
		x.reg.Release(x.h)
	})
	return nil
}

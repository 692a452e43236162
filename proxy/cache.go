// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package proxy

import (
	"context"
	"errors"
	"image/color"
	"strconv"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"golang.org/x/sync/singleflight"

	"github.com/gogpu/accel"
	"github.com/gogpu/accel/internal/cache"
	"github.com/gogpu/accel/surface"
)

// key identifies one cached copy: a source on a destination at a
// transparency.
type key struct {
	src surface.Surface
	dst Destination
	t   surface.Transparency
}

// entry holds the proxy and cached copy for a key.
type entry struct {
	proxy Proxy

	mu     sync.Mutex
	cached surface.Surface
	serial uint64
	dead   bool
}

// release drops the cached copy. The entry is unusable afterwards.
func (e *entry) release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dead = true
	if e.cached != nil {
		e.cached.Invalidate()
		e.cached = nil
	}
}

// Stats contains cache statistics.
type Stats struct {
	Entries     int
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	Uploads     uint64
	Unavailable uint64
}

// CacheOption configures a Cache.
type CacheOption func(*cacheOptions)

type cacheOptions struct {
	capacity int
	meter    metric.Meter
}

// WithCapacity sets the number of entries per shard.
func WithCapacity(n int) CacheOption {
	return func(o *cacheOptions) { o.capacity = n }
}

// WithMeter records cache metrics on m.
func WithMeter(m metric.Meter) CacheOption {
	return func(o *cacheOptions) { o.meter = m }
}

// Cache maps sources to accelerated copies.
//
// Cache is safe for concurrent use. Concurrent Replace calls for the same
// source, destination and size share one upload.
type Cache struct {
	entries *cache.ShardedCache[key, *entry]
	flight     singleflight.Group
	flightHash cache.Hasher[flightKey]

	uploads     atomic.Uint64
	unavailable atomic.Uint64

	uploadCounter      metric.Int64Counter
	unavailableCounter metric.Int64Counter
	evictionCounter    metric.Int64Counter
}

// NewCache creates an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	var o cacheOptions
	for _, opt := range opts {
		opt(&o)
	}
	c := &Cache{flightHash: cache.ComparableHasher[flightKey]()}
	c.entries = cache.NewSharded(o.capacity, cache.ComparableHasher[key](), c.evict)

	m := o.meter
	if m == nil {
		m = noop.Meter{}
	}
	if err := c.initMetrics(m); err != nil {
		accel.Logger().Warn("proxy: metrics disabled", "err", err)
		_ = c.initMetrics(noop.Meter{})
	}
	return c
}

func (c *Cache) initMetrics(m metric.Meter) error {
	var err1, err2, err3 error
	c.uploadCounter, err1 = m.Int64Counter("accel.proxy.uploads",
		metric.WithDescription("Source uploads into cached surfaces"))
	c.unavailableCounter, err2 = m.Int64Counter("accel.proxy.unavailable",
		metric.WithDescription("Copies that bypassed the cache because no surface could be created"))
	c.evictionCounter, err3 = m.Int64Counter("accel.proxy.evictions",
		metric.WithDescription("Cached surfaces released"))
	return errors.Join(err1, err2, err3)
}

func (c *Cache) evict(k key, e *entry) {
	e.release()
	c.evictionCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("transparency", k.t.String())))
}

// flightKey identifies one coalesced upload. Only operations that can use
// the cache reach the flight, so the composite and background do not
// change its result.
type flightKey struct {
	key
	width, height int
}

// flightResult carries the key a coalesced upload ran for.
type flightResult struct {
	fk flightKey
	s  surface.Surface
}

// Replace returns the surface to copy src from when drawing it onto dst
// with comp and bg at width x height: an up-to-date cached copy when the
// operation can use the cache, otherwise src itself.
func (c *Cache) Replace(src surface.Surface, dst Destination, comp *Composite, bg color.Color, width, height int) surface.Surface {
	if src == nil || dst == nil {
		return src
	}
	k := key{src: src, dst: dst, t: src.Transparency()}
	e := c.entries.GetOrCreate(k, func() *entry {
		return &entry{proxy: CreateProxy(k.src, k.dst)}
	})
	if e.proxy == Uncached || !e.proxy.IsSupportedOperation(src, Identity, comp, bg) {
		return src
	}

	fk := flightKey{key: k, width: width, height: height}
	v, _, _ := c.flight.Do(strconv.FormatUint(c.flightHash(fk), 16), func() (any, error) {
		return flightResult{fk: fk, s: c.upload(e, k, width, height)}, nil
	})
	r := v.(flightResult)
	if r.fk != fk {
		// Another upload with the same hash was in flight.
		return c.upload(e, k, width, height)
	}
	return r.s
}

// upload brings the cached copy in e up to date with k.src.
func (c *Cache) upload(e *entry, k key, width, height int) surface.Surface {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dead {
		return k.src
	}

	if e.cached != nil && (!e.cached.Valid() || e.cached.Width() != width || e.cached.Height() != height) {
		e.cached.Invalidate()
		e.cached = nil
	}
	fresh := e.cached == nil
	e.cached = e.proxy.Validate(k.src, e.cached, width, height)
	if e.cached == nil {
		c.unavailable.Add(1)
		c.unavailableCounter.Add(context.Background(), 1)
		return k.src
	}

	if serial := k.src.Serial(); fresh || serial != e.serial {
		surface.CopyAll(e.cached, k.src)
		e.serial = serial
		c.uploads.Add(1)
		c.uploadCounter.Add(context.Background(), 1,
			metric.WithAttributes(attribute.Bool("fresh", fresh)))
	}
	return e.cached
}

// Invalidate releases every cached copy of src and returns how many were
// released.
func (c *Cache) Invalidate(src surface.Surface) int {
	return c.entries.DeleteFunc(func(k key, _ *entry) bool { return k.src == src })
}

// InvalidateDestination releases every cached copy on dst.
func (c *Cache) InvalidateDestination(dst Destination) int {
	return c.entries.DeleteFunc(func(k key, _ *entry) bool { return k.dst == dst })
}

// Clear releases all cached copies.
func (c *Cache) Clear() {
	c.entries.Clear()
}

// Len returns the number of tracked sources.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Stats returns cache statistics.
func (c *Cache) Stats() Stats {
	s := c.entries.Stats()
	return Stats{
		Entries:     s.Len,
		Hits:        s.Hits,
		Misses:      s.Misses,
		Evictions:   s.Evictions,
		Uploads:     c.uploads.Load(),
		Unavailable: c.unavailable.Load(),
	}
}

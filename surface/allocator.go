// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/gogpu/accel"
	"github.com/gogpu/accel/native"
)

// Allocation errors. Both match accel.ErrOutOfMemory with errors.Is.
var (
	// ErrBudgetExceeded is returned when an allocation cannot fit in the
	// memory budget even after eviction.
	ErrBudgetExceeded = fmt.Errorf("%w: surface memory budget exceeded", accel.ErrOutOfMemory)

	// ErrAllocatorClosed is returned when allocating from a closed
	// allocator.
	ErrAllocatorClosed = fmt.Errorf("%w: surface allocator closed", accel.ErrOutOfMemory)
)

// ErrNotAccelerated is returned when an Allocator is asked for an
// unaccelerated surface.
var ErrNotAccelerated = errors.New("surface: kind is not accelerated")

// Default memory limits.
const (
	// DefaultMaxMemoryMB is the default GPU memory budget (256 MB).
	DefaultMaxMemoryMB = 256

	// DefaultEvictionThreshold is when eviction starts (80% of budget).
	DefaultEvictionThreshold = 0.8

	// MinMemoryMB is the smallest accepted budget.
	MinMemoryMB = 1

	bytesPerPixel = 4
)

// Stats contains GPU memory usage statistics.
type Stats struct {
	TotalBytes     uint64
	UsedBytes      uint64
	AvailableBytes uint64
	SurfaceCount   int
	EvictionCount  uint64
	Utilization    float64 // 0.0 to 1.0
}

// String returns a human-readable form of the stats.
func (s Stats) String() string {
	return fmt.Sprintf("Memory[%.1f%% used, %d/%d KB, %d surfaces, %d evictions]",
		s.Utilization*100,
		s.UsedBytes/1024,
		s.TotalBytes/1024,
		s.SurfaceCount,
		s.EvictionCount)
}

// AllocatorConfig holds configuration for creating an Allocator.
type AllocatorConfig struct {
	// MaxMemoryMB is the memory budget in megabytes.
	// Defaults to DefaultMaxMemoryMB if <= 0.
	MaxMemoryMB int

	// EvictionThreshold is the usage fraction at which eviction starts.
	// Defaults to DefaultEvictionThreshold if not in (0, 1].
	EvictionThreshold float64

	// Meter records allocator metrics. Defaults to a no-op meter.
	Meter metric.Meter
}

// Request describes an accelerated surface allocation.
type Request struct {
	Width, Height int
	Transparency  Transparency
	Kind          Kind
	Label         string

	// Target binds flip back buffers and window surfaces to their window.
	Target any
}

// Allocator creates accelerated surfaces within a GPU memory budget.
// When the budget is exceeded, least recently used surfaces are evicted:
// they become invalid and their owners recreate them on next validation.
//
// Allocator is safe for concurrent use.
type Allocator struct {
	mu sync.Mutex

	backend native.Backend

	budgetBytes uint64
	usedBytes   uint64
	threshold   float64

	// front = most recently used
	surfaces map[*AccelSurface]*list.Element
	lru      *list.List

	evictionCount uint64
	closed        bool

	allocated metric.Int64Counter
	evicted   metric.Int64Counter
	used      metric.Int64UpDownCounter
}

// NewAllocator creates an allocator that obtains textures from backend.
func NewAllocator(backend native.Backend, config AllocatorConfig) *Allocator {
	maxMB := config.MaxMemoryMB
	if maxMB < MinMemoryMB {
		maxMB = DefaultMaxMemoryMB
	}
	threshold := config.EvictionThreshold
	if threshold <= 0 || threshold > 1.0 {
		threshold = DefaultEvictionThreshold
	}
	meter := config.Meter
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("github.com/gogpu/accel/surface")
	}

	//nolint:gosec // G115: maxMB is at least MinMemoryMB
	a := &Allocator{
		backend:     backend,
		budgetBytes: uint64(maxMB) * 1024 * 1024,
		threshold:   threshold,
		surfaces:    make(map[*AccelSurface]*list.Element),
		lru:         list.New(),
	}
	if err := a.initMetrics(meter); err != nil {
		accel.Logger().Warn("surface: metrics disabled", "err", err)
		_ = a.initMetrics(noop.Meter{})
	}
	return a
}

func (a *Allocator) initMetrics(m metric.Meter) error {
	var err1, err2, err3 error
	a.allocated, err1 = m.Int64Counter("accel.surface.allocations",
		metric.WithDescription("Accelerated surfaces allocated"))
	a.evicted, err2 = m.Int64Counter("accel.surface.evictions",
		metric.WithDescription("Accelerated surfaces evicted to stay within budget"))
	a.used, err3 = m.Int64UpDownCounter("accel.surface.bytes",
		metric.WithDescription("GPU memory held by accelerated surfaces"), metric.WithUnit("By"))
	return errors.Join(err1, err2, err3)
}

// Allocate creates an accelerated surface on configuration h. Sizes below
// 1 are clamped to 1. Failures caused by memory pressure match
// accel.ErrOutOfMemory.
func (a *Allocator) Allocate(h native.ConfigHandle, req Request) (*AccelSurface, error) {
	if !req.Kind.IsAccelerated() {
		return nil, fmt.Errorf("%w: %s", ErrNotAccelerated, req.Kind)
	}
	w, ht := max(req.Width, 1), max(req.Height, 1)
	model := ColorModelFor(req.Transparency)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, ErrAllocatorClosed
	}

	//nolint:gosec // G115: dimensions are positive
	required := uint64(w) * uint64(ht) * bytesPerPixel
	if required > a.budgetBytes {
		return nil, fmt.Errorf("%w: surface needs %d KB, budget is %d KB",
			ErrBudgetExceeded, required/1024, a.budgetBytes/1024)
	}
	if err := a.evictIfNeeded(required); err != nil {
		return nil, err
	}

	tex, err := a.backend.CreateTexture(h, native.TextureDesc{
		Label:  req.Label,
		Width:  w,
		Height: ht,
		Format: model.Format,
		Usage:  req.Kind.Usage(),
	})
	if err != nil {
		return nil, fmt.Errorf("surface: allocate %s %dx%d: %w", req.Kind, w, ht, err)
	}

	s := &AccelSurface{
		kind:      req.Kind,
		config:    h,
		texture:   tex,
		model:     model,
		label:     req.Label,
		pix:       image.NewRGBA(image.Rect(0, 0, w, ht)),
		sizeBytes: required,
		alloc:     a,
		target:    req.Target,
	}
	s.valid.Store(true)
	a.surfaces[s] = a.lru.PushFront(s)
	a.usedBytes += required

	attrs := metric.WithAttributes(attribute.String("kind", req.Kind.String()))
	a.allocated.Add(context.Background(), 1, attrs)
	a.used.Add(context.Background(), int64(required), attrs)
	accel.Logger().Debug("surface: allocated", "kind", req.Kind, "width", w, "height", ht, "texture", tex)
	return s, nil
}

// Touch marks s as recently used.
func (a *Allocator) Touch(s *AccelSurface) {
	if s == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.surfaces[s]; ok {
		a.lru.MoveToFront(e)
	}
}

// release is called by AccelSurface.Invalidate.
func (a *Allocator) release(s *AccelSurface) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.removeLocked(s) {
		a.backend.DestroyTexture(s.texture)
	}
}

// removeLocked forgets s. Caller must hold mu.
func (a *Allocator) removeLocked(s *AccelSurface) bool {
	e, ok := a.surfaces[s]
	if !ok {
		return false
	}
	a.lru.Remove(e)
	delete(a.surfaces, s)
	a.usedBytes -= s.sizeBytes
	a.used.Add(context.Background(), -int64(s.sizeBytes),
		metric.WithAttributes(attribute.String("kind", s.kind.String())))
	return true
}

// evictIfNeeded evicts surfaces until requested bytes fit. Caller must
// hold mu.
func (a *Allocator) evictIfNeeded(requested uint64) error {
	target := a.usedBytes + requested
	thresholdBytes := uint64(float64(a.budgetBytes) * a.threshold)
	if target <= a.budgetBytes && a.usedBytes < thresholdBytes {
		return nil
	}

	for target > a.budgetBytes && a.lru.Len() > 0 {
		s, _ := a.lru.Back().Value.(*AccelSurface)
		a.removeLocked(s)
		s.valid.Store(false)
		a.backend.DestroyTexture(s.texture)
		a.evictionCount++
		a.evicted.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("kind", s.kind.String())))
		accel.Logger().Debug("surface: evicted", "surface", s.String())
		target = a.usedBytes + requested
	}

	if target > a.budgetBytes {
		return fmt.Errorf("%w: need %d bytes, have %d bytes available",
			ErrBudgetExceeded, requested, a.budgetBytes-a.usedBytes)
	}
	return nil
}

// Stats returns current memory usage statistics.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	var utilization float64
	if a.budgetBytes > 0 {
		utilization = float64(a.usedBytes) / float64(a.budgetBytes)
	}
	return Stats{
		TotalBytes:     a.budgetBytes,
		UsedBytes:      a.usedBytes,
		AvailableBytes: a.budgetBytes - a.usedBytes,
		SurfaceCount:   len(a.surfaces),
		EvictionCount:  a.evictionCount,
		Utilization:    utilization,
	}
}

// SetBudget updates the memory budget, evicting if usage is now over it.
func (a *Allocator) SetBudget(megabytes int) error {
	megabytes = max(megabytes, MinMemoryMB)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrAllocatorClosed
	}
	//nolint:gosec // G115: megabytes is at least MinMemoryMB
	a.budgetBytes = uint64(megabytes) * 1024 * 1024
	return a.evictIfNeeded(0)
}

// Contains reports whether s is live in this allocator.
func (a *Allocator) Contains(s *AccelSurface) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.surfaces[s]
	return ok
}

// Close invalidates every live surface. Later allocations fail.
func (a *Allocator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	for s := range a.surfaces {
		s.valid.Store(false)
		a.backend.DestroyTexture(s.texture)
	}
	a.surfaces = nil
	a.lru = nil
	a.usedBytes = 0
	a.closed = true
}

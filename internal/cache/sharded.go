// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package cache provides the sharded LRU map behind the surface proxy
// cache.
//
//	c := cache.NewSharded[key, *entry](64, cache.ComparableHasher[key](), release)
//	e := c.GetOrCreate(k, newEntry)
package cache

import (
	"hash/maphash"
	"sync"
	"sync/atomic"
)

const (
	// ShardCount is the number of shards. Must be a power of 2.
	ShardCount = 16

	// DefaultCapacity is the default maximum entries per shard.
	DefaultCapacity = 64

	shardMask = ShardCount - 1
)

// Hasher computes the shard hash of a key.
type Hasher[K any] func(K) uint64

// ComparableHasher returns a Hasher for any comparable key, seeded once per
// call.
func ComparableHasher[K comparable]() Hasher[K] {
	seed := maphash.MakeSeed()
	return func(k K) uint64 {
		return maphash.Comparable(seed, k)
	}
}

// EvictFunc is called when an entry leaves the cache through LRU
// eviction, Delete, DeleteFunc or Clear. It runs with the shard lock held
// and must not call back into the cache.
type EvictFunc[K comparable, V any] func(K, V)

// Stats contains cache statistics.
type Stats struct {
	Len           int
	Capacity      int // per shard
	TotalCapacity int
	Hits          uint64
	Misses        uint64
	HitRate       float64 // 0.0 to 1.0
	Evictions     uint64
}

// ShardedCache is a thread-safe LRU cache split into ShardCount shards,
// each with its own lock and capacity.
type ShardedCache[K comparable, V any] struct {
	shards   [ShardCount]*shard[K, V]
	hasher   Hasher[K]
	capacity int
	onEvict  EvictFunc[K, V]

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type shard[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*shardEntry[K, V]
	lru     *lruList[K]
}

type shardEntry[K comparable, V any] struct {
	value V
	node  *lruNode[K]
}

// NewSharded creates a cache holding up to capacity entries per shard.
// If capacity <= 0, DefaultCapacity is used. onEvict may be nil.
func NewSharded[K comparable, V any](capacity int, hasher Hasher[K], onEvict EvictFunc[K, V]) *ShardedCache[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &ShardedCache[K, V]{
		hasher:   hasher,
		capacity: capacity,
		onEvict:  onEvict,
	}
	for i := range c.shards {
		c.shards[i] = &shard[K, V]{
			entries: make(map[K]*shardEntry[K, V]),
			lru:     newLRUList[K](),
		}
	}
	return c
}

func (c *ShardedCache[K, V]) shardFor(key K) *shard[K, V] {
	return c.shards[c.hasher(key)&shardMask]
}

// Get returns the value for key and marks it recently used.
func (c *ShardedCache[K, V]) Get(key K) (V, bool) {
	s := c.shardFor(key)
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	s.lru.MoveToFront(e.node)
	v := e.value
	s.mu.Unlock()

	c.hits.Add(1)
	return v, true
}

// GetOrCreate returns the value for key, creating it with create on a
// miss. create runs with the shard lock held and must be fast.
func (c *ShardedCache[K, V]) GetOrCreate(key K, create func() V) V {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		s.lru.MoveToFront(e.node)
		c.hits.Add(1)
		return e.value
	}
	c.misses.Add(1)

	v := create()
	c.evictLocked(s)
	s.entries[key] = &shardEntry[K, V]{value: v, node: s.lru.PushFront(key)}
	return v
}

// evictLocked makes room for one entry. Caller must hold s.mu.
func (c *ShardedCache[K, V]) evictLocked(s *shard[K, V]) {
	for s.lru.Len() >= c.capacity {
		oldest, ok := s.lru.RemoveOldest()
		if !ok {
			return
		}
		e := s.entries[oldest]
		delete(s.entries, oldest)
		c.evictions.Add(1)
		if c.onEvict != nil && e != nil {
			c.onEvict(oldest, e.value)
		}
	}
}

// Delete removes key. It reports whether the key was present.
func (c *ShardedCache[K, V]) Delete(key K) bool {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return false
	}
	s.lru.Remove(e.node)
	delete(s.entries, key)
	if c.onEvict != nil {
		c.onEvict(key, e.value)
	}
	return true
}

// DeleteFunc removes every entry for which del returns true and returns
// how many were removed.
func (c *ShardedCache[K, V]) DeleteFunc(del func(K, V) bool) int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for k, e := range s.entries {
			if !del(k, e.value) {
				continue
			}
			s.lru.Remove(e.node)
			delete(s.entries, k)
			n++
			if c.onEvict != nil {
				c.onEvict(k, e.value)
			}
		}
		s.mu.Unlock()
	}
	return n
}

// Clear removes all entries.
func (c *ShardedCache[K, V]) Clear() {
	c.DeleteFunc(func(K, V) bool { return true })
}

// Len returns the number of entries across all shards.
func (c *ShardedCache[K, V]) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.Lock()
		total += len(s.entries)
		s.mu.Unlock()
	}
	return total
}

// Stats returns current cache statistics.
func (c *ShardedCache[K, V]) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return Stats{
		Len:           c.Len(),
		Capacity:      c.capacity,
		TotalCapacity: c.capacity * ShardCount,
		Hits:          hits,
		Misses:        misses,
		HitRate:       hitRate,
		Evictions:     c.evictions.Load(),
	}
}

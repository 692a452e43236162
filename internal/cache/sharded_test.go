// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package cache

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// oneShard puts every key in shard 0 so capacity is exact.
func oneShard(int) uint64 { return 0 }

func TestShardedGetOrCreate(t *testing.T) {
	c := NewSharded[string, int](10, ComparableHasher[string](), nil)
	created := 0

	val := c.GetOrCreate("key1", func() int { created++; return 100 })
	if val != 100 || created != 1 {
		t.Errorf("first GetOrCreate = %d (created %d)", val, created)
	}
	val = c.GetOrCreate("key1", func() int { created++; return 200 })
	if val != 100 || created != 1 {
		t.Errorf("second GetOrCreate = %d (created %d), want cached 100", val, created)
	}

	if v, ok := c.Get("key1"); !ok || v != 100 {
		t.Errorf("Get() = %d, %v", v, ok)
	}
	if _, ok := c.Get("nonexistent"); ok {
		t.Error("expected miss")
	}

	st := c.Stats()
	if st.Hits != 2 || st.Misses != 2 || st.Len != 1 {
		t.Errorf("stats = %+v", st)
	}
	if st.TotalCapacity != 10*ShardCount {
		t.Errorf("TotalCapacity = %d", st.TotalCapacity)
	}
}

func TestShardedEvictionOrder(t *testing.T) {
	var evicted []int
	c := NewSharded[int, string](2, oneShard, func(k int, _ string) {
		evicted = append(evicted, k)
	})

	c.GetOrCreate(1, func() string { return "a" })
	c.GetOrCreate(2, func() string { return "b" })
	c.Get(1) // 2 is now least recently used
	c.GetOrCreate(3, func() string { return "c" })

	if diff := cmp.Diff([]int{2}, evicted); diff != "" {
		t.Errorf("evicted mismatch (-want +got):\n%s", diff)
	}
	if _, ok := c.Get(2); ok {
		t.Error("evicted key still present")
	}
	if c.Stats().Evictions != 1 {
		t.Errorf("Evictions = %d", c.Stats().Evictions)
	}
}

func TestShardedDelete(t *testing.T) {
	var evicted []int
	c := NewSharded[int, int](8, oneShard, func(k, _ int) { evicted = append(evicted, k) })
	for i := range 5 {
		c.GetOrCreate(i, func() int { return i * 10 })
	}

	if !c.Delete(0) || c.Delete(0) {
		t.Error("Delete should report presence exactly once")
	}
	n := c.DeleteFunc(func(k, v int) bool { return v >= 30 })
	if n != 2 || c.Len() != 2 {
		t.Errorf("DeleteFunc removed %d, Len() = %d", n, c.Len())
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d", c.Len())
	}
	if len(evicted) != 5 {
		t.Errorf("onEvict called %d times, want 5", len(evicted))
	}
}

func TestShardedConcurrent(t *testing.T) {
	c := NewSharded[int, int](100, ComparableHasher[int](), nil)
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				c.GetOrCreate(i*100+j, func() int { return j })
				c.Get(i * 100)
			}
		}()
	}
	wg.Wait()
	if c.Len() == 0 {
		t.Error("expected entries after concurrent use")
	}
}

func TestComparableHasher(t *testing.T) {
	type key struct {
		p *int
		n int
	}
	h := ComparableHasher[key]()
	x := 1
	if h(key{&x, 1}) != h(key{&x, 1}) {
		t.Error("hasher not deterministic")
	}
}

func TestLRUList(t *testing.T) {
	l := newLRUList[string]()
	a := l.PushFront("a")
	b := l.PushFront("b")
	l.PushFront("c")
	if l.Len() != 3 {
		t.Fatalf("Len() = %d", l.Len())
	}

	l.MoveToFront(a) // order: a c b
	l.Remove(b)      // order: a c
	if k, ok := l.RemoveOldest(); !ok || k != "c" {
		t.Errorf("RemoveOldest() = %q, %v; want c", k, ok)
	}
	if k, _ := l.RemoveOldest(); k != "a" {
		t.Errorf("RemoveOldest() = %q, want a", k)
	}
	if _, ok := l.RemoveOldest(); ok {
		t.Error("empty list should report false")
	}
	l.Remove(nil)
	l.MoveToFront(nil)
}

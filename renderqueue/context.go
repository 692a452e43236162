// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package renderqueue

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/accel"
)

// Context is a native rendering context owned by one graphics
// configuration. At most one context per queue is current.
type Context struct {
	id    uint64
	label string
	q     *Queue
	valid atomic.Bool
}

// NewContext creates a context bound to q. It is not made current.
func (q *Queue) NewContext(label string) *Context {
	c := &Context{id: q.nextCtx.Add(1), label: label, q: q}
	c.valid.Store(true)
	return c
}

// ID returns the context identifier, unique per queue.
func (c *Context) ID() uint64 { return c.id }

// Label returns the label given at creation.
func (c *Context) Label() string { return c.label }

// Valid reports whether the context has not been invalidated since it was
// last made current.
func (c *Context) Valid() bool { return c.valid.Load() }

// MakeCurrent makes c the queue's current context.
func (c *Context) MakeCurrent() {
	c.q.ctxMu.Lock()
	c.q.current = c
	c.valid.Store(true)
	c.q.ctxMu.Unlock()
}

func (c *Context) String() string {
	return fmt.Sprintf("Context[%d %s]", c.id, c.label)
}

// Current returns the current context, or nil if none is current.
func (q *Queue) Current() *Context {
	q.ctxMu.Lock()
	defer q.ctxMu.Unlock()
	return q.current
}

// InvalidateCurrentContext flushes pending commands and forgets the
// current context, so the next operation cannot render through a context
// that is about to be replaced. Callers hold the queue lock.
func (q *Queue) InvalidateCurrentContext() {
	if err := q.Flush(); err != nil {
		// The context is dropped either way.
		accel.Logger().Debug("renderqueue: flush before invalidate", "err", err)
	}
	q.ctxMu.Lock()
	if q.current != nil {
		q.current.valid.Store(false)
		q.current = nil
	}
	q.ctxMu.Unlock()
	q.invalidations.Add(1)
}

// Invalidations returns how many times the current context was
// invalidated.
func (q *Queue) Invalidations() uint64 {
	return q.invalidations.Load()
}

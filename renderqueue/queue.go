// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package renderqueue serializes rendering commands and native context
// state.
//
// A Queue batches commands enqueued by any goroutine and executes them on a
// single worker goroutine. Its Lock guards native context state: callers
// that create or destroy native surfaces hold it for the duration.
//
// The lock is not reentrant. A goroutine that holds it must not call Lock
// again, and must not block on work that itself takes the lock (for
// example a configuration acquisition on the UI thread).
package renderqueue

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/accel"
)

// ErrClosed is returned by operations on a closed queue.
var ErrClosed = errors.New("renderqueue: queue closed")

// job is a unit of work for the worker goroutine.
type job struct {
	cmds []func()
	fn   func()
	done chan error
}

// Queue is a render command queue with a single worker goroutine.
//
// Queue is safe for concurrent use.
type Queue struct {
	mu sync.Mutex // render queue lock, see Lock

	pendingMu sync.Mutex
	pending   []func()

	ctxMu   sync.Mutex
	current *Context
	nextCtx atomic.Uint64

	invalidations atomic.Uint64

	jobs      chan job
	closeOnce sync.Once
	closed    chan struct{}
	stopped   chan struct{}
}

// New starts a queue and its worker goroutine. Close stops it.
func New() *Queue {
	q := &Queue{
		jobs:    make(chan job),
		closed:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.stopped)
	for {
		select {
		case j := <-q.jobs:
			j.done <- execute(j)
		case <-q.closed:
			return
		}
	}
}

func execute(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("renderqueue: command panicked: %v", r)
		}
	}()
	for _, cmd := range j.cmds {
		cmd()
	}
	if j.fn != nil {
		j.fn()
	}
	return nil
}

// Lock acquires the render queue lock.
func (q *Queue) Lock() { q.mu.Lock() }

// Unlock releases the render queue lock.
func (q *Queue) Unlock() { q.mu.Unlock() }

// TryLock reports whether it acquired the render queue lock without
// blocking.
func (q *Queue) TryLock() bool { return q.mu.TryLock() }

// WithLock runs fn while holding the render queue lock.
func (q *Queue) WithLock(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	fn()
}

// Enqueue appends a command to the pending batch. Commands run in order on
// the worker goroutine at the next Flush.
func (q *Queue) Enqueue(cmd func()) {
	if cmd == nil {
		return
	}
	q.pendingMu.Lock()
	q.pending = append(q.pending, cmd)
	q.pendingMu.Unlock()
}

// Pending returns the number of commands waiting for a flush.
func (q *Queue) Pending() int {
	q.pendingMu.Lock()
	defer q.pendingMu.Unlock()
	return len(q.pending)
}

// Flush executes all pending commands and waits for them to finish.
func (q *Queue) Flush() error {
	return q.FlushAndInvokeNow(nil)
}

// FlushAndInvokeNow drains pending commands, then runs fn on the worker
// goroutine and returns once fn has completed. A panic in a command or in
// fn is returned as an error.
func (q *Queue) FlushAndInvokeNow(fn func()) error {
	q.pendingMu.Lock()
	cmds := q.pending
	q.pending = nil
	q.pendingMu.Unlock()

	if len(cmds) == 0 && fn == nil {
		return nil
	}

	j := job{cmds: cmds, fn: fn, done: make(chan error, 1)}
	select {
	case q.jobs <- j:
	case <-q.closed:
		return ErrClosed
	}
	return <-j.done
}

// Close stops the worker goroutine. Pending commands are discarded.
// Close is idempotent.
func (q *Queue) Close() error {
	q.closeOnce.Do(func() {
		close(q.closed)
		<-q.stopped
		q.pendingMu.Lock()
		if n := len(q.pending); n > 0 {
			accel.Logger().Warn("renderqueue: discarding pending commands", "count", n)
		}
		q.pending = nil
		q.pendingMu.Unlock()
	})
	return nil
}

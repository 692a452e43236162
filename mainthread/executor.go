// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package mainthread runs functions on one designated OS thread.
//
// Native configuration calls must all happen on the platform UI thread.
// An Executor owns such a thread: submitted functions run there one at a
// time and the submitter blocks until its function returns.
//
//	ex := mainthread.New()
//	defer ex.Close()
//	id, err := mainthread.Call(ctx, ex, func() (string, error) {
//		return backend.AdapterID(), nil
//	})
//
// Never submit work from a goroutine that holds the render queue lock if
// the work takes that lock too: the two would wait for each other.
package mainthread

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned when submitting to a closed executor.
var ErrClosed = errors.New("mainthread: executor closed")

// PanicError carries a panic raised by a submitted function.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("mainthread: function panicked: %v", e.Value)
}

// Unwrap returns the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Executor runs submitted functions on a single locked OS thread.
//
// Executor is safe for concurrent use.
type Executor struct {
	funcs     chan func()
	closeOnce sync.Once
	closed    chan struct{}
	stopped   chan struct{}
	looping   atomic.Bool
}

// New starts an executor on a fresh goroutine locked to its OS thread.
func New() *Executor {
	e := newExecutor()
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		e.Loop()
	}()
	return e
}

// NewOnCaller returns an executor whose functions run only while the
// caller is inside Loop. Use it to dedicate the process main thread:
// call it from main (after runtime.LockOSThread in init) and then Loop.
func NewOnCaller() *Executor {
	return newExecutor()
}

func newExecutor() *Executor {
	return &Executor{
		funcs:   make(chan func()),
		closed:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Loop runs submitted functions until Close is called. It must be called
// exactly once, on the designated thread.
func (e *Executor) Loop() {
	if !e.looping.CompareAndSwap(false, true) {
		panic("mainthread: Loop called twice")
	}
	defer close(e.stopped)
	for {
		select {
		case f := <-e.funcs:
			f()
		case <-e.closed:
			return
		}
	}
}

// Run executes fn on the executor thread and waits for it to return.
//
// ctx bounds only the wait for the thread to pick fn up. Once fn is
// running, Run waits for it to finish: native calls cannot be abandoned
// half way. A panic in fn is returned as a *PanicError.
func (e *Executor) Run(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	wrapped := func() {
		defer func() {
			if r := recover(); r != nil {
				done <- &PanicError{Value: r}
			}
		}()
		done <- fn()
	}

	select {
	case e.funcs <- wrapped:
	case <-e.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-done
}

// Call executes fn on the executor thread and returns its result.
func Call[T any](ctx context.Context, e *Executor, fn func() (T, error)) (T, error) {
	var v T
	err := e.Run(ctx, func() error {
		var err error
		v, err = fn()
		return err
	})
	return v, err
}

// Close stops the loop after the running function, if any, returns.
// Close is idempotent. It must not be called from the executor thread.
func (e *Executor) Close() error {
	e.closeOnce.Do(func() {
		close(e.closed)
	})
	if e.looping.Load() {
		<-e.stopped
	}
	return nil
}

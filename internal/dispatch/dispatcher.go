// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package dispatch marshals callbacks from arbitrary goroutines onto a single
// owner goroutine.
//
// Go has no thread identity, so owner affinity travels in the context: the
// owner binds its context with Bind, and every callback the dispatcher runs
// receives an owner context. Posting with an owner context runs inline.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	xglog "github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ErrClosed is returned by Post after Close.
var ErrClosed = errors.New("dispatcher closed")

// Func is a callback executed on the owner goroutine.
type Func func(ctx context.Context)

type ownerKey struct{}

type entry struct {
	fn   Func
	done chan struct{} // nil for fire-and-forget
}

// Dispatcher is a FIFO of callbacks drained by the owner once per tick.
type Dispatcher struct {
	mu     sync.Mutex
	queue  []entry
	closed bool

	// ownerCtx is the context callbacks run with; set by Bind.
	ownerCtx context.Context

	logger     zerolog.Logger
	refusedLog rate.Sometimes
}

// New creates a dispatcher. Call Bind from the owner goroutine before Tick.
func New() *Dispatcher {
	return &Dispatcher{
		ownerCtx:   context.Background(),
		logger:     xglog.WithComponent("dispatch"),
		refusedLog: rate.Sometimes{First: 1, Interval: 5 * time.Second},
	}
}

// Bind returns ctx marked as running on d's owner goroutine.
func (d *Dispatcher) Bind(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	owned := context.WithValue(ctx, ownerKey{}, d)
	d.mu.Lock()
	d.ownerCtx = owned
	d.mu.Unlock()
	return owned
}

// IsOwner reports whether ctx was bound to d.
func (d *Dispatcher) IsOwner(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	owner, _ := ctx.Value(ownerKey{}).(*Dispatcher)
	return owner == d
}

// Post runs fn on the owner goroutine. With an owner context it runs inline.
// Otherwise fn is queued; when wait is true Post blocks until fn has run or
// ctx is done (fn still runs later). Panics in fn never reach the caller.
func (d *Dispatcher) Post(ctx context.Context, fn Func, wait bool) error {
	if fn == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.IsOwner(ctx) {
		d.mu.Lock()
		closed := d.closed
		d.mu.Unlock()
		if closed {
			return d.refuse()
		}
		metrics.IncPosted(metrics.PostModeInline)
		d.run(ctx, fn)
		return nil
	}

	e := entry{fn: fn}
	if wait {
		e.done = make(chan struct{})
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return d.refuse()
	}
	d.queue = append(d.queue, e)
	depth := len(d.queue)
	d.mu.Unlock()

	metrics.DispatchQueueDepth.Set(float64(depth))
	if !wait {
		metrics.IncPosted(metrics.PostModeAsync)
		return nil
	}
	metrics.IncPosted(metrics.PostModeWait)

	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for owner: %w", ctx.Err())
	}
}

func (d *Dispatcher) refuse() error {
	metrics.DispatchRefusedTotal.Inc()
	d.refusedLog.Do(func() {
		d.logger.Warn().
			Str(xglog.FieldEvent, "dispatch.post_refused").
			Msg("post after close refused")
	})
	return ErrClosed
}

// Tick drains the callbacks queued before the call, in order, and returns how
// many ran. Callbacks posted while draining run on the next tick.
func (d *Dispatcher) Tick(ctx context.Context) int {
	if !d.IsOwner(ctx) {
		ctx = d.bound()
	}
	d.mu.Lock()
	batch := d.queue
	d.queue = nil
	d.mu.Unlock()

	for _, e := range batch {
		d.execute(ctx, e)
	}
	if len(batch) > 0 {
		metrics.DispatchQueueDepth.Set(float64(d.Len()))
	}
	return len(batch)
}

// Close refuses further posts, then drains everything still queued. Must be
// called from the owner goroutine. Idempotent.
func (d *Dispatcher) Close(ctx context.Context) int {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return 0
	}
	d.closed = true
	d.mu.Unlock()

	// No entry can be appended once closed is set, so one pass drains all.
	drained := d.Tick(ctx)
	metrics.DispatchQueueDepth.Set(0)
	d.logger.Debug().
		Int("drained", drained).
		Str(xglog.FieldEvent, "dispatch.closed").
		Msg("dispatcher closed")
	return drained
}

// Closed reports whether Close has been called.
func (d *Dispatcher) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Len returns the number of queued callbacks.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

func (d *Dispatcher) bound() context.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.IsOwner(d.ownerCtx) {
		return d.ownerCtx
	}
	return context.WithValue(d.ownerCtx, ownerKey{}, d)
}

func (d *Dispatcher) execute(ctx context.Context, e entry) {
	defer func() {
		if e.done != nil {
			close(e.done)
		}
	}()
	d.run(ctx, e.fn)
}

func (d *Dispatcher) run(ctx context.Context, fn Func) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.DispatchPanicsTotal.Inc()
			d.logger.Error().
				Interface("panic", rec).
				Str(xglog.FieldEvent, "dispatch.callback_panic").
				Msg("owner callback panicked")
		}
	}()
	fn(ctx)
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package events delivers host-facing playback events to registered observers.
package events

import (
	"sync"

	xglog "github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/metrics"
)

// Observers is an ordered list of handlers for one event kind.
type Observers[T any] struct {
	mu    sync.RWMutex
	kind  Kind
	next  uint64
	items []observer[T]
}

type observer[T any] struct {
	id uint64
	fn func(T)
}

// Subscribe registers fn and returns a function that removes it.
func (o *Observers[T]) Subscribe(fn func(T)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	o.mu.Lock()
	o.next++
	id := o.next
	o.items = append(o.items, observer[T]{id: id, fn: fn})
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { o.remove(id) })
	}
}

func (o *Observers[T]) remove(id uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.items[:0]
	for _, it := range o.items {
		if it.id != id {
			out = append(out, it)
		}
	}
	// Clear the tail so removed closures can be collected.
	for i := len(out); i < len(o.items); i++ {
		o.items[i] = observer[T]{}
	}
	o.items = out
}

// Len returns the number of registered observers.
func (o *Observers[T]) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.items)
}

// Emit calls every observer in registration order. A panicking observer is
// logged and skipped; the rest still run.
func (o *Observers[T]) Emit(v T) {
	o.mu.RLock()
	items := append([]observer[T](nil), o.items...)
	o.mu.RUnlock()
	for _, it := range items {
		o.call(it.fn, v)
	}
}

func (o *Observers[T]) call(fn func(T), v T) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.IncObserverPanic(string(o.kind))
			l := xglog.WithComponent("events")
			l.Error().
				Interface("panic", rec).
				Str("kind", string(o.kind)).
				Str(xglog.FieldEvent, "events.observer_panic").
				Msg("event observer panicked")
		}
	}()
	fn(v)
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package engine

import (
	"context"
	"fmt"
	"sync"

	xglog "github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/metrics"
	"github.com/ManuGH/playcore/internal/model"
	"github.com/rs/zerolog"
)

// Entry point names used in logs and metrics.
const (
	EntryState      = "state"
	EntryLicense    = "drm"
	EntryCueEntered = "subtitle_entered"
	EntryCueExited  = "subtitle_exited"
)

// Sink receives native callbacks for one session. Methods are called on the
// native goroutine; implementations must hand off to their owner.
type Sink interface {
	OnNativeState(args StateArgs)
	OnNativeLicenseRequested()
	OnNativeCueEntered(cue model.SubtitleCue)
	OnNativeCueExited(trackID, cueID string)
}

// Registry maps callback tokens to sinks. Native code only ever sees the
// token; every callback resolves it here.
type Registry struct {
	mu      sync.RWMutex
	next    uint64
	entries map[Token]*registration
	logger  zerolog.Logger
}

type registration struct {
	sink  Sink
	guard entryGuard
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[Token]*registration),
		logger:  xglog.WithComponent("engine.registry"),
	}
}

// DefaultRegistry serves sessions that do not bring their own.
var DefaultRegistry = NewRegistry()

// Register issues a fresh token for sink.
func (r *Registry) Register(sink Sink) (Token, error) {
	if sink == nil {
		return 0, ErrNilSink
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	tok := Token(r.next)
	r.entries[tok] = &registration{sink: sink}
	return tok, nil
}

// Unregister stops deliveries for token and waits, bounded by ctx, for entry
// calls already in progress. Unknown tokens are ignored.
func (r *Registry) Unregister(ctx context.Context, token Token) error {
	r.mu.Lock()
	reg, ok := r.entries[token]
	delete(r.entries, token)
	r.mu.Unlock()
	if !ok {
		return nil
	}
	if err := reg.guard.closeAndWait(ctx); err != nil {
		return fmt.Errorf("unregister token %d: %w", token, err)
	}
	return nil
}

// Len returns the number of registered sinks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Callbacks returns the static entry points to hand to the engine.
func (r *Registry) Callbacks() Callbacks {
	return Callbacks{
		StateChanged: func(token Token, args StateArgs) {
			r.deliver(EntryState, token, func(s Sink) { s.OnNativeState(args) })
		},
		LicenseRequested: func(token Token) {
			r.deliver(EntryLicense, token, func(s Sink) { s.OnNativeLicenseRequested() })
		},
		CueEntered: func(token Token, cue model.SubtitleCue) {
			r.deliver(EntryCueEntered, token, func(s Sink) { s.OnNativeCueEntered(cue) })
		},
		CueExited: func(token Token, trackID, cueID string) {
			r.deliver(EntryCueExited, token, func(s Sink) { s.OnNativeCueExited(trackID, cueID) })
		},
	}
}

func (r *Registry) deliver(entry string, token Token, fn func(Sink)) {
	if token == 0 {
		r.drop(entry, token, "zero_token")
		return
	}
	r.mu.RLock()
	reg, ok := r.entries[token]
	r.mu.RUnlock()
	if !ok {
		r.drop(entry, token, "unknown_token")
		return
	}
	if !reg.guard.enter() {
		r.drop(entry, token, "unregistered")
		return
	}
	defer reg.guard.leave()

	defer func() {
		if rec := recover(); rec != nil {
			metrics.IncCallbackDropped(entry, "panic")
			r.logger.Error().
				Interface("panic", rec).
				Str(xglog.FieldEntry, entry).
				Uint64(xglog.FieldToken, uint64(token)).
				Str(xglog.FieldEvent, "engine.callback_panic").
				Msg("native callback panicked")
		}
	}()
	fn(reg.sink)
}

func (r *Registry) drop(entry string, token Token, reason string) {
	metrics.IncCallbackDropped(entry, reason)
	r.logger.Error().
		Str(xglog.FieldEntry, entry).
		Uint64(xglog.FieldToken, uint64(token)).
		Str("reason", reason).
		Str(xglog.FieldEvent, "engine.callback_dropped").
		Msg("native callback dropped")
}

// entryGuard counts entry calls in flight for one token. Once closing, no new
// call enters and drained is closed when the last one leaves. A timed-out
// waiter leaves nothing behind.
type entryGuard struct {
	mu      sync.Mutex
	closing bool
	active  int
	drained chan struct{}
}

func (g *entryGuard) enter() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closing {
		return false
	}
	g.active++
	return true
}

func (g *entryGuard) leave() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.active--
	if g.closing && g.active == 0 {
		close(g.drained)
	}
}

func (g *entryGuard) closeAndWait(ctx context.Context) error {
	g.mu.Lock()
	if !g.closing {
		g.closing = true
		g.drained = make(chan struct{})
		if g.active == 0 {
			close(g.drained)
		}
	}
	drained := g.drained
	g.mu.Unlock()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("callback drain timeout: %w", ctx.Err())
	}
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/playcore/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recordingSink struct {
	mu      sync.Mutex
	states  []StateArgs
	license int
	entered []model.SubtitleCue
	exited  []string
	started chan struct{}
	block   chan struct{}
}

func (s *recordingSink) OnNativeState(args StateArgs) {
	if s.started != nil {
		close(s.started)
	}
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, args)
}

func (s *recordingSink) OnNativeLicenseRequested() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.license++
}

func (s *recordingSink) OnNativeCueEntered(cue model.SubtitleCue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entered = append(s.entered, cue)
}

func (s *recordingSink) OnNativeCueExited(_, cueID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exited = append(s.exited, cueID)
}

func TestRegistryRoutesByToken(t *testing.T) {
	reg := NewRegistry()
	a, b := &recordingSink{}, &recordingSink{}

	ta, err := reg.Register(a)
	require.NoError(t, err)
	tb, err := reg.Register(b)
	require.NoError(t, err)
	require.NotEqual(t, ta, tb)
	require.NotZero(t, ta)

	cb := reg.Callbacks()
	cb.StateChanged(ta, StateArgs{Type: StateTypeOpened})
	cb.LicenseRequested(tb)
	cb.CueEntered(ta, model.SubtitleCue{CueID: "c1"})
	cb.CueExited(ta, "t1", "c1")

	assert.Len(t, a.states, 1)
	assert.Equal(t, 0, a.license)
	assert.Equal(t, 1, b.license)
	assert.Equal(t, []string{"c1"}, a.exited)
	assert.Len(t, a.entered, 1)
}

func TestRegistryDropsMisuse(t *testing.T) {
	reg := NewRegistry()
	sink := &recordingSink{}
	tok, err := reg.Register(sink)
	require.NoError(t, err)

	cb := reg.Callbacks()
	assert.NotPanics(t, func() {
		cb.StateChanged(0, StateArgs{})
		cb.StateChanged(tok+100, StateArgs{})
	})
	assert.Empty(t, sink.states)

	_, err = reg.Register(nil)
	assert.ErrorIs(t, err, ErrNilSink)
}

func TestRegistryUnregisterStopsDelivery(t *testing.T) {
	reg := NewRegistry()
	sink := &recordingSink{}
	tok, _ := reg.Register(sink)

	require.NoError(t, reg.Unregister(context.Background(), tok))
	require.NoError(t, reg.Unregister(context.Background(), tok), "second unregister is a no-op")
	assert.Equal(t, 0, reg.Len())

	reg.Callbacks().StateChanged(tok, StateArgs{})
	assert.Empty(t, sink.states)
}

func TestRegistryUnregisterWaitsForInFlightCallback(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	reg := NewRegistry()
	sink := &recordingSink{started: make(chan struct{}), block: make(chan struct{})}
	tok, _ := reg.Register(sink)

	go reg.Callbacks().StateChanged(tok, StateArgs{Type: StateTypeStateChanged})
	<-sink.started

	short, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.Error(t, reg.Unregister(short, tok), "in-flight callback must hold unregister")

	close(sink.block)
	// The token is already gone; waiting again is a no-op, so poll the sink.
	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.states) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRegistryUnregisterTimeoutLeavesNoWaiter(t *testing.T) {
	reg := NewRegistry()
	sink := &recordingSink{started: make(chan struct{}), block: make(chan struct{})}
	tok, _ := reg.Register(sink)

	go reg.Callbacks().StateChanged(tok, StateArgs{Type: StateTypeStateChanged})
	<-sink.started
	ignoreBlocked := goleak.IgnoreCurrent()

	short, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	require.Error(t, reg.Unregister(short, tok))
	goleak.VerifyNone(t, ignoreBlocked)

	close(sink.block)
	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.states) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRegistryRecoversSinkPanic(t *testing.T) {
	reg := NewRegistry()
	tok, _ := reg.Register(&panicSink{})
	assert.NotPanics(t, func() {
		reg.Callbacks().LicenseRequested(tok)
	})
}

type panicSink struct{ recordingSink }

func (*panicSink) OnNativeLicenseRequested() { panic("boom") }

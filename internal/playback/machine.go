// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package playback tracks the public playback state from native engine
// notifications.
package playback

import (
	"github.com/ManuGH/playcore/internal/engine"
	xglog "github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/metrics"
	"github.com/ManuGH/playcore/internal/model"
	"github.com/rs/zerolog"
)

// Emitter receives the host-facing events raised by the machine.
type Emitter interface {
	StateChanged(t model.StateTransition)
	PlaybackFailed(code engine.Result)
}

// Effect reports work the caller must do after a notification was applied.
type Effect struct {
	TextureDirty bool
	DeviceLost   bool
	DeviceReady  bool
}

// Machine holds the playback state. It is not safe for concurrent use; the
// owner goroutine drives it.
type Machine struct {
	state    model.PlaybackState
	previous model.PlaybackState
	desc     model.MediaDescription
	loaded   bool
	item     string

	emit   Emitter
	logger zerolog.Logger
}

// NewMachine returns a machine in StateNone. emit may be nil.
func NewMachine(emit Emitter, logger zerolog.Logger) *Machine {
	return &Machine{emit: emit, logger: logger}
}

func (m *Machine) State() model.PlaybackState { return m.state }
func (m *Machine) Previous() model.PlaybackState { return m.previous }
func (m *Machine) Description() model.MediaDescription { return m.desc }
func (m *Machine) Loaded() bool { return m.loaded }
func (m *Machine) CurrentItem() string { return m.item }

// MarkLoaded records a successful engine load of item.
func (m *Machine) MarkLoaded(item string) {
	m.loaded = true
	m.item = item
}

// Reset forgets the current item and moves to StateNone.
func (m *Machine) Reset() {
	m.desc = model.MediaDescription{}
	m.item = ""
	m.loaded = false
	m.transition(model.StateNone)
}

// HandleNative applies one native state notification.
func (m *Machine) HandleNative(args engine.StateArgs) Effect {
	var eff Effect
	switch args.Type {
	case engine.StateTypeOpened:
		m.desc = args.Description
	case engine.StateTypeStateChanged:
		m.stateChanged(args)
	case engine.StateTypeFailed:
		m.loaded = false
		m.desc = model.MediaDescription{}
		m.logger.Warn().
			Str(xglog.FieldResult, args.HResult.String()).
			Str(xglog.FieldEvent, "playback.failed").
			Msg("playback failed")
		metrics.PlaybackFailuresTotal.Inc()
		if m.emit != nil {
			m.emit.PlaybackFailed(args.HResult)
		}
		m.transition(model.StateNone)
	case engine.StateTypeNone:
		m.desc = model.MediaDescription{}
		m.loaded = false
		m.transition(model.StateNone)
	case engine.StateTypeNewFrameTexture:
		m.desc = args.Description
		eff.TextureDirty = true
	case engine.StateTypeGraphicsDeviceShutdown:
		eff.DeviceLost = true
	case engine.StateTypeGraphicsDeviceReady:
		eff.DeviceReady = true
	default:
		m.logger.Warn().
			Uint32(xglog.FieldRawType, uint32(args.Type)).
			Str(xglog.FieldEvent, "playback.unknown_notification").
			Msg("ignoring unknown native notification")
	}
	return eff
}

func (m *Machine) stateChanged(args engine.StateArgs) {
	target := args.State
	if !target.Valid() {
		m.logger.Warn().
			Uint32(xglog.FieldRawState, uint32(target)).
			Str(xglog.FieldEvent, "playback.unknown_state").
			Msg("native state outside known vocabulary")
		target = model.StateNA
	}

	switch {
	case target == model.StateNone && m.state.IsActive():
		// A return to None mid-stream is the end of the item.
		target = model.StateEnded
		m.desc = model.MediaDescription{}
		m.loaded = false
	case target == model.StateNone, target == model.StateEnded:
		m.desc = model.MediaDescription{}
		m.loaded = false
	case target != model.StateBuffering && args.Description.HasGeometry():
		m.desc = args.Description
	}
	m.transition(target)
}

// transition moves to next unconditionally and raises StateChanged only when
// the state actually differs.
func (m *Machine) transition(next model.PlaybackState) {
	prev := m.state
	m.previous = prev
	m.state = next
	if prev == next {
		return
	}

	metrics.IncStateTransition(prev.String(), next.String())
	m.logger.Info().
		Str(xglog.FieldOldState, prev.String()).
		Str(xglog.FieldNewState, next.String()).
		Str(xglog.FieldEvent, "playback.state_changed").
		Msg("playback state changed")
	if m.emit != nil {
		m.emit.StateChanged(model.StateTransition{Previous: prev, Current: next})
	}
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"context"
	"errors"

	"github.com/ManuGH/playcore/internal/dispatch"
	"github.com/ManuGH/playcore/internal/engine"
	"github.com/ManuGH/playcore/internal/events"
	xglog "github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/model"
)

var _ engine.Sink = (*Session)(nil)

// OnNativeState runs on the engine's goroutine and waits for the owner to
// apply the notification, unless an engine call is in flight.
func (s *Session) OnNativeState(args engine.StateArgs) {
	s.post(engine.EntryState, func(ctx context.Context) { s.applyNative(args) }, true)
}

// OnNativeLicenseRequested waits until the license has been submitted.
func (s *Session) OnNativeLicenseRequested() {
	s.post(engine.EntryLicense, func(ctx context.Context) {
		if s.drm != nil {
			s.drm.OnLicenseRequested(ctx)
		}
	}, true)
}

func (s *Session) OnNativeCueEntered(cue model.SubtitleCue) {
	s.post(engine.EntryCueEntered, func(context.Context) {
		if s.subs != nil {
			s.subs.OnCueEntered(cue)
		}
	}, false)
}

func (s *Session) OnNativeCueExited(trackID, cueID string) {
	s.post(engine.EntryCueExited, func(context.Context) {
		if s.subs != nil {
			s.subs.OnCueExited(trackID, cueID)
		}
	}, false)
}

func (s *Session) post(entry string, fn dispatch.Func, wait bool) {
	d := s.disp.Load()
	if d == nil {
		s.logger.Debug().Str(xglog.FieldEntry, entry).Str(xglog.FieldEvent, "session.callback_dropped").Msg("callback while disabled")
		return
	}
	if wait && s.calls.Active() {
		// A callback fired from inside an owner engine call cannot wait for the owner.
		wait = false
		s.logger.Debug().Str(xglog.FieldEntry, entry).Str(xglog.FieldEvent, "session.callback_deferred").Msg("callback during engine call")
	}
	if err := d.Post(context.Background(), fn, wait); err != nil && !errors.Is(err, dispatch.ErrClosed) {
		s.logger.Warn().Err(err).Str(xglog.FieldEntry, entry).Str(xglog.FieldEvent, "session.post_failed").Msg("callback not delivered")
	}
}

// applyNative runs on the owner goroutine.
func (s *Session) applyNative(args engine.StateArgs) {
	eff := s.machine.HandleNative(args)
	if eff.TextureDirty || (args.Type == engine.StateTypeOpened && args.Description.HasGeometry()) {
		s.textureDirty = true
	}
	if s.frames == nil {
		return
	}
	if eff.DeviceLost {
		s.frames.OnDeviceLost()
	}
	if eff.DeviceReady {
		s.frames.OnDeviceReady()
	}
}

// hubEmitter adapts the hub to the state machine.
type hubEmitter struct {
	hub *events.Hub
}

func (e hubEmitter) StateChanged(t model.StateTransition) {
	e.hub.EmitStateChanged(t)
}

func (e hubEmitter) PlaybackFailed(code engine.Result) {
	e.hub.EmitPlaybackFailed(events.PlaybackFailure{Code: int64(code), Hex: code.String()})
}

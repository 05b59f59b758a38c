// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package engine

import (
	"sync"
	"time"

	xglog "github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/metrics"
	"github.com/ManuGH/playcore/internal/model"
	"github.com/rs/zerolog"
)

// Handle exclusively owns one engine Instance. Passthroughs may be called from
// any goroutine; Open and Release belong to the owner goroutine.
// A non-zero result is logged and returned, never escalated.
type Handle struct {
	mu       sync.RWMutex
	inst     Instance
	token    Token
	released bool
	calls    *Calls
	logger   zerolog.Logger
}

// Open creates an engine instance for token. The returned Handle is never nil,
// so Release is safe even when creation failed.
func Open(lib Library, token Token, onState StateFunc, logger zerolog.Logger) (*Handle, Result) {
	return OpenCounted(lib, token, onState, &Calls{}, logger)
}

// OpenCounted is Open with a caller-owned counter that tracks every call the
// handle makes into the engine, creation and release included.
func OpenCounted(lib Library, token Token, onState StateFunc, calls *Calls, logger zerolog.Logger) (*Handle, Result) {
	if calls == nil {
		calls = &Calls{}
	}
	h := &Handle{
		token:  token,
		calls:  calls,
		logger: logger.With().Uint64(xglog.FieldToken, uint64(token)).Logger(),
	}
	if lib == nil {
		h.logger.Error().Err(ErrNilLibrary).Str(xglog.FieldEvent, "engine.create_failed").Msg("no engine library")
		return h, ResultInvalidArg
	}

	calls.enter()
	inst, r := lib.Create(token, onState)
	if r.Failed() || inst == nil {
		if !r.Failed() {
			r = ResultNotCreated
		}
		if inst != nil {
			inst.Release()
		}
		calls.exit()
		h.check("create", r)
		return h, r
	}
	calls.exit()
	h.inst = inst
	h.logger.Debug().Str(xglog.FieldEvent, "engine.created").Msg("engine instance created")
	return h, OK
}

// Token returns the callback token the instance was created with.
func (h *Handle) Token() Token {
	if h == nil {
		return 0
	}
	return h.token
}

// Created reports whether the handle holds a live instance.
func (h *Handle) Created() bool {
	if h == nil {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.inst != nil && !h.released
}

// Release destroys the instance. Idempotent; safe on a nil or failed handle.
// It waits for in-flight passthroughs to return.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return
	}
	h.released = true
	inst := h.inst
	h.inst = nil
	if inst == nil {
		return
	}
	h.calls.enter()
	defer h.calls.exit()
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.Error().
					Interface("panic", rec).
					Str(xglog.FieldEvent, "engine.release_panic").
					Msg("engine release panicked")
			}
		}()
		inst.Release()
	}()
	h.logger.Debug().Str(xglog.FieldEvent, "engine.released").Msg("engine instance released")
}

// check logs and counts a non-zero result. It returns r unchanged.
func (h *Handle) check(op string, r Result) Result {
	if r.Failed() {
		metrics.IncEngineCallFailure(op)
		h.logger.Warn().
			Str(xglog.FieldOp, op).
			Str(xglog.FieldResult, r.String()).
			Str(xglog.FieldEvent, "engine.call_failed").
			Msg("engine call failed")
	}
	return r
}

// with runs fn against the live instance under the read lock.
func (h *Handle) with(op string, fn func(Instance) Result) Result {
	if h == nil {
		return ResultNotCreated
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	switch {
	case h.released:
		return h.check(op, ResultReleased)
	case h.inst == nil:
		return h.check(op, ResultNotCreated)
	}
	h.calls.enter()
	defer h.calls.exit()
	return h.check(op, fn(h.inst))
}

// InCall reports whether an engine call issued through h has not returned.
func (h *Handle) InCall() bool {
	return h != nil && h.calls.Active()
}

func (h *Handle) Load(uri string) Result {
	return h.with("load", func(i Instance) Result { return i.Load(uri) })
}

func (h *Handle) Play() Result {
	return h.with("play", func(i Instance) Result { return i.Play() })
}

func (h *Handle) Pause() Result {
	return h.with("pause", func(i Instance) Result { return i.Pause() })
}

func (h *Handle) Stop() Result {
	return h.with("stop", func(i Instance) Result { return i.Stop() })
}

func (h *Handle) SeekTo(ticks int64) Result {
	return h.with("seek", func(i Instance) Result { return i.SeekTo(ticks) })
}

func (h *Handle) SetVolume(volume float64) Result {
	return h.with("set_volume", func(i Instance) Result { return i.SetVolume(volume) })
}

// DurationAndPosition returns zeros when the call fails.
func (h *Handle) DurationAndPosition() (duration, position int64, r Result) {
	r = h.with("duration_and_position", func(i Instance) Result {
		var res Result
		duration, position, res = i.DurationAndPosition()
		return res
	})
	if r.Failed() {
		return 0, 0, r
	}
	return duration, position, r
}

// FrameBuffer returns the engine's current native frame buffer reference.
func (h *Handle) FrameBuffer() (nativeRef uintptr, stereoscopic bool, r Result) {
	r = h.with("frame_buffer", func(i Instance) Result {
		var res Result
		nativeRef, stereoscopic, res = i.FrameBuffer()
		return res
	})
	if r.Failed() {
		return 0, false, r
	}
	return nativeRef, stereoscopic, r
}

func (h *Handle) SetDRMLicenseCallback(fn LicenseFunc) Result {
	return h.with("set_drm_license_callback", func(i Instance) Result { return i.SetDRMLicenseCallback(fn) })
}

func (h *Handle) SetDRMLicense(serviceURL, customChallengeData string) Result {
	return h.with("set_drm_license", func(i Instance) Result {
		return i.SetDRMLicense(serviceURL, customChallengeData)
	})
}

func (h *Handle) SetSubtitleCallbacks(entered CueEnteredFunc, exited CueExitedFunc) Result {
	return h.with("set_subtitle_callbacks", func(i Instance) Result {
		return i.SetSubtitleCallbacks(entered, exited)
	})
}

func (h *Handle) SubtitleTrackCount() (uint32, Result) {
	var count uint32
	r := h.with("subtitle_track_count", func(i Instance) Result {
		var res Result
		count, res = i.SubtitleTrackCount()
		return res
	})
	if r.Failed() {
		return 0, r
	}
	return count, r
}

func (h *Handle) SubtitleTrack(index uint32) (model.SubtitleTrack, Result) {
	var track model.SubtitleTrack
	r := h.with("subtitle_track", func(i Instance) Result {
		var res Result
		track, res = i.SubtitleTrack(index)
		return res
	})
	if r.Failed() {
		return model.SubtitleTrack{}, r
	}
	return track, r
}

func (h *Handle) PumpFrame(elapsed time.Duration) Result {
	return h.with("pump_frame", func(i Instance) Result { return i.PumpFrame(elapsed) })
}

func (h *Handle) IsHardware4KDecodingSupported() (bool, Result) {
	var supported bool
	r := h.with("hw_4k_decoding", func(i Instance) Result {
		var res Result
		supported, res = i.IsHardware4KDecodingSupported()
		return res
	})
	return supported && !r.Failed(), r
}

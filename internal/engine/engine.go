// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package engine defines the boundary to the native media engine and owns
// the handle to one engine instance.
package engine

import (
	"time"

	"github.com/ManuGH/playcore/internal/model"
)

// StateType is the kind of a native state notification.
type StateType uint32

const (
	StateTypeNone StateType = iota
	StateTypeOpened
	StateTypeStateChanged
	StateTypeFailed
	StateTypeNewFrameTexture
	StateTypeGraphicsDeviceShutdown
	StateTypeGraphicsDeviceReady
)

func (t StateType) String() string {
	switch t {
	case StateTypeNone:
		return "none"
	case StateTypeOpened:
		return "opened"
	case StateTypeStateChanged:
		return "state-changed"
	case StateTypeFailed:
		return "failed"
	case StateTypeNewFrameTexture:
		return "new-frame-texture"
	case StateTypeGraphicsDeviceShutdown:
		return "device-shutdown"
	case StateTypeGraphicsDeviceReady:
		return "device-ready"
	default:
		return "unknown"
	}
}

// StateArgs is the payload of a native state notification.
type StateArgs struct {
	Type        StateType
	State       model.PlaybackState
	HResult     Result
	Description model.MediaDescription
}

// Token identifies the session a native callback belongs to.
// Zero is never issued.
type Token uint64

// Native callback shapes. They may be invoked from any goroutine.
type (
	StateFunc      func(token Token, args StateArgs)
	LicenseFunc    func(token Token)
	CueEnteredFunc func(token Token, cue model.SubtitleCue)
	CueExitedFunc  func(token Token, trackID, cueID string)
)

// Callbacks bundles the four native entry points.
type Callbacks struct {
	StateChanged     StateFunc
	LicenseRequested LicenseFunc
	CueEntered       CueEnteredFunc
	CueExited        CueExitedFunc
}

// Library is the native engine entry: it creates instances.
type Library interface {
	Create(token Token, onState StateFunc) (Instance, Result)
}

// Instance is one native engine object. Implementations must be safe for
// concurrent use of the passthrough operations; Release is called once.
type Instance interface {
	Load(uri string) Result
	Play() Result
	Pause() Result
	Stop() Result
	SeekTo(ticks int64) Result
	SetVolume(volume float64) Result
	DurationAndPosition() (duration, position int64, r Result)
	FrameBuffer() (nativeRef uintptr, stereoscopic bool, r Result)
	SetDRMLicenseCallback(fn LicenseFunc) Result
	SetDRMLicense(serviceURL, customChallengeData string) Result
	SetSubtitleCallbacks(entered CueEnteredFunc, exited CueExitedFunc) Result
	SubtitleTrackCount() (uint32, Result)
	SubtitleTrack(index uint32) (model.SubtitleTrack, Result)
	PumpFrame(elapsed time.Duration) Result
	IsHardware4KDecodingSupported() (bool, Result)
	Release()
}

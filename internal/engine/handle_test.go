// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package engine

import (
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ManuGH/playcore/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInstance struct {
	loadResult Result
	releases   atomic.Int32
	loads      atomic.Int32
	onLoad     func()
}

func (f *fakeInstance) Load(string) Result {
	f.loads.Add(1)
	if f.onLoad != nil {
		f.onLoad()
	}
	return f.loadResult
}
func (f *fakeInstance) Play() Result { return OK }
func (f *fakeInstance) Pause() Result { return OK }
func (f *fakeInstance) Stop() Result { return OK }
func (f *fakeInstance) SeekTo(int64) Result { return OK }
func (f *fakeInstance) SetVolume(float64) Result { return OK }
func (f *fakeInstance) DurationAndPosition() (int64, int64, Result) {
	return 100, 40, OK
}
func (f *fakeInstance) FrameBuffer() (uintptr, bool, Result) { return 0xBEEF, true, OK }
func (f *fakeInstance) SetDRMLicenseCallback(LicenseFunc) Result { return OK }
func (f *fakeInstance) SetDRMLicense(string, string) Result { return OK }
func (f *fakeInstance) SetSubtitleCallbacks(CueEnteredFunc, CueExitedFunc) Result {
	return OK
}
func (f *fakeInstance) SubtitleTrackCount() (uint32, Result) { return 0, ResultNotImplemented }
func (f *fakeInstance) SubtitleTrack(uint32) (model.SubtitleTrack, Result) {
	return model.SubtitleTrack{ID: "x"}, ResultNotImplemented
}
func (f *fakeInstance) PumpFrame(time.Duration) Result { return OK }
func (f *fakeInstance) IsHardware4KDecodingSupported() (bool, Result) { return true, OK }
func (f *fakeInstance) Release() { f.releases.Add(1) }

type fakeLibrary struct {
	inst   *fakeInstance
	result Result
}

func (l *fakeLibrary) Create(Token, StateFunc) (Instance, Result) {
	if l.result.Failed() {
		return nil, l.result
	}
	return l.inst, OK
}

func quietLogger() zerolog.Logger { return zerolog.New(io.Discard) }

func TestOpenAndPassthrough(t *testing.T) {
	inst := &fakeInstance{}
	h, r := Open(&fakeLibrary{inst: inst}, 7, nil, quietLogger())
	require.Equal(t, OK, r)
	require.True(t, h.Created())
	assert.Equal(t, Token(7), h.Token())

	d, p, r := h.DurationAndPosition()
	assert.Equal(t, OK, r)
	assert.Equal(t, int64(100), d)
	assert.Equal(t, int64(40), p)

	ref, stereo, r := h.FrameBuffer()
	assert.Equal(t, OK, r)
	assert.Equal(t, uintptr(0xBEEF), ref)
	assert.True(t, stereo)

	supported, r := h.IsHardware4KDecodingSupported()
	assert.Equal(t, OK, r)
	assert.True(t, supported)
}

func TestFailedCallReturnsZeroValues(t *testing.T) {
	h, _ := Open(&fakeLibrary{inst: &fakeInstance{}}, 1, nil, quietLogger())

	count, r := h.SubtitleTrackCount()
	assert.Equal(t, ResultNotImplemented, r)
	assert.Zero(t, count)

	track, r := h.SubtitleTrack(0)
	assert.True(t, r.Failed())
	assert.Equal(t, model.SubtitleTrack{}, track)
}

func TestReleaseIsIdempotent(t *testing.T) {
	inst := &fakeInstance{}
	h, _ := Open(&fakeLibrary{inst: inst}, 1, nil, quietLogger())

	h.Release()
	h.Release()
	assert.Equal(t, int32(1), inst.releases.Load())
	assert.False(t, h.Created())

	assert.Equal(t, ResultReleased, h.Load("file:///clip.mp4"))
	assert.Equal(t, int32(0), inst.loads.Load(), "released handle must not reach the instance")
}

func TestReleaseAfterFailedCreate(t *testing.T) {
	h, r := Open(&fakeLibrary{result: ResultInvalidArg}, 1, nil, quietLogger())
	require.Equal(t, ResultInvalidArg, r)
	require.NotNil(t, h)
	assert.False(t, h.Created())
	assert.Equal(t, ResultNotCreated, h.Play())

	assert.NotPanics(t, func() {
		h.Release()
		h.Release()
	})
}

func TestCallsTrackEngineCallsInFlight(t *testing.T) {
	var calls Calls
	inst := &fakeInstance{}
	h, r := OpenCounted(&fakeLibrary{inst: inst}, 1, nil, &calls, quietLogger())
	require.Equal(t, OK, r)
	assert.False(t, calls.Active())

	var during bool
	inst.onLoad = func() { during = h.InCall() }
	h.Load("file:///clip.mp4")
	assert.True(t, during, "active while the instance runs")
	assert.False(t, calls.Active(), "inactive once the call returned")

	h.Release()
	assert.False(t, h.InCall())

	var none *Calls
	assert.False(t, none.Active())
}

func TestNilHandleIsSafe(t *testing.T) {
	var h *Handle
	assert.NotPanics(t, func() { h.Release() })
	assert.Equal(t, ResultNotCreated, h.Stop())
	assert.False(t, h.Created())
}

func TestOpenWithoutLibrary(t *testing.T) {
	h, r := Open(nil, 1, nil, quietLogger())
	assert.Equal(t, ResultInvalidArg, r)
	assert.False(t, h.Created())
}

func TestResultErr(t *testing.T) {
	assert.NoError(t, OK.Err("load"))

	err := Result(0x80070057).Err("load")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEngineCall))
	assert.Contains(t, err.Error(), "0x80070057")

	var re *ResultError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "load", re.Op)

	assert.ErrorIs(t, ResultNotCreated.Err("play"), ErrNotCreated)
	assert.Equal(t, "0x8004B895", Result(0x8004B895).String())
}

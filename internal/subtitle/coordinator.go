// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package subtitle exposes the engine's subtitle tracks and relays cue
// notifications to the host.
package subtitle

import (
	"errors"
	"fmt"

	"github.com/ManuGH/playcore/internal/engine"
	xglog "github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/metrics"
	"github.com/ManuGH/playcore/internal/model"
	"github.com/rs/zerolog"
)

// ErrOutOfRange is returned by TrackAt for an index past the track count.
var ErrOutOfRange = errors.New("subtitle: track index out of range")

// Source is the engine side of subtitle track enumeration.
type Source interface {
	SubtitleTrackCount() (uint32, engine.Result)
	SubtitleTrack(index uint32) (model.SubtitleTrack, engine.Result)
}

// Coordinator relays cues without filtering or deduplication; host
// observers decide what to show.
type Coordinator struct {
	src     Source
	entered func(model.SubtitleCue)
	exited  func(model.CueExit)
	logger  zerolog.Logger
}

// New creates a coordinator. entered and exited may be nil.
func New(src Source, entered func(model.SubtitleCue), exited func(model.CueExit), logger zerolog.Logger) *Coordinator {
	return &Coordinator{src: src, entered: entered, exited: exited, logger: logger}
}

// TrackCount returns the number of subtitle tracks, or 0 when the engine
// call fails.
func (c *Coordinator) TrackCount() uint32 {
	if c.src == nil {
		return 0
	}
	n, r := c.src.SubtitleTrackCount()
	if r.Failed() {
		return 0
	}
	return n
}

// TrackAt returns the track at index.
func (c *Coordinator) TrackAt(index uint32) (model.SubtitleTrack, error) {
	if index >= c.TrackCount() {
		return model.SubtitleTrack{}, fmt.Errorf("%w: %d", ErrOutOfRange, index)
	}
	track, r := c.src.SubtitleTrack(index)
	if err := r.Err("subtitle_track"); err != nil {
		return model.SubtitleTrack{}, err
	}
	return track, nil
}

// Tracks lists every track the engine can describe. Tracks that fail to
// load are skipped.
func (c *Coordinator) Tracks() []model.SubtitleTrack {
	n := c.TrackCount()
	tracks := make([]model.SubtitleTrack, 0, n)
	for i := uint32(0); i < n; i++ {
		track, err := c.TrackAt(i)
		if err != nil {
			continue
		}
		tracks = append(tracks, track)
	}
	return tracks
}

func (c *Coordinator) OnCueEntered(cue model.SubtitleCue) {
	metrics.IncSubtitleCue("entered")
	c.logger.Debug().
		Str(xglog.FieldTrackID, cue.TrackID).
		Str(xglog.FieldCueID, cue.CueID).
		Str(xglog.FieldLanguage, cue.Language).
		Str(xglog.FieldEvent, "subtitle.cue_entered").
		Msg("subtitle cue entered")
	if c.entered != nil {
		c.entered(cue)
	}
}

func (c *Coordinator) OnCueExited(trackID, cueID string) {
	metrics.IncSubtitleCue("exited")
	c.logger.Debug().
		Str(xglog.FieldTrackID, trackID).
		Str(xglog.FieldCueID, cueID).
		Str(xglog.FieldEvent, "subtitle.cue_exited").
		Msg("subtitle cue exited")
	if c.exited != nil {
		c.exited(model.CueExit{TrackID: trackID, CueID: cueID})
	}
}

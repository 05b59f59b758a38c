// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package subtitle

import (
	"strings"
	"sync"

	xglog "github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/model"
	"github.com/rs/zerolog"
)

// Tracker is a host listener that keeps the one cue currently on screen.
// Event methods run on the owner goroutine; Text and Current may be read
// from anywhere.
type Tracker struct {
	mu       sync.RWMutex
	language string
	current  *model.SubtitleCue
	reported bool

	tracks func() []model.SubtitleTrack
	logger zerolog.Logger
}

// NewTracker shows cues in language (case-insensitive; empty shows all).
// tracks is consulted once per item when playback first starts.
func NewTracker(language string, tracks func() []model.SubtitleTrack, logger zerolog.Logger) *Tracker {
	return &Tracker{language: language, tracks: tracks, logger: logger}
}

func (t *Tracker) SetLanguage(language string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.language = language
}

func (t *Tracker) Language() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.language
}

// Current returns the displayed cue.
func (t *Tracker) Current() (model.SubtitleCue, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.current == nil {
		return model.SubtitleCue{}, false
	}
	return *t.current, true
}

// Text returns the displayed text, or "".
func (t *Tracker) Text() string {
	cue, ok := t.Current()
	if !ok {
		return ""
	}
	return cue.Text()
}

// OnCueEntered shows cue unless another is displayed or the language does
// not match.
func (t *Tracker) OnCueEntered(cue model.SubtitleCue) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != nil {
		return
	}
	if t.language != "" && !strings.EqualFold(t.language, cue.Language) {
		return
	}
	cp := cue
	cp.Lines = append([]string(nil), cue.Lines...)
	t.current = &cp
}

// OnCueExited clears the display when the displayed cue exits.
func (t *Tracker) OnCueExited(exit model.CueExit) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != nil && t.current.CueID == exit.CueID {
		t.current = nil
	}
}

// OnStateChanged resets on None/Ended and logs the track list when playback
// first starts.
func (t *Tracker) OnStateChanged(tr model.StateTransition) {
	switch tr.Current {
	case model.StateNone, model.StateEnded:
		t.mu.Lock()
		t.current = nil
		t.reported = false
		t.mu.Unlock()
	case model.StatePlaying:
		t.mu.Lock()
		report := !t.reported
		t.reported = true
		t.mu.Unlock()
		if report && t.tracks != nil {
			for _, track := range t.tracks() {
				t.logger.Info().
					Str(xglog.FieldTrackID, track.ID).
					Str("title", track.Title).
					Str(xglog.FieldLanguage, track.Language).
					Str(xglog.FieldEvent, "subtitle.track").
					Msg("subtitle track available")
			}
		}
	}
}

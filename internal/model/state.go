// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package model holds the value types shared by the playback core.
package model

import "fmt"

// PlaybackState is the public playback state. The engine never reports Ended
// on its own; it is synthesized from a return to None while playing.
type PlaybackState uint32

const (
	StateNone PlaybackState = iota
	StateOpening
	StateBuffering
	StatePlaying
	StatePaused
	StateEnded

	// StateNA marks a native value outside the known vocabulary.
	StateNA PlaybackState = 255
)

// String returns a human-readable label for the playback state.
func (s PlaybackState) String() string {
	switch s {
	case StateNone:
		return "None"
	case StateOpening:
		return "Opening"
	case StateBuffering:
		return "Buffering"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	case StateEnded:
		return "Ended"
	default:
		return "NA"
	}
}

// MarshalText encodes the state by its label so JSON payloads stay readable.
func (s PlaybackState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the labels produced by MarshalText.
func (s *PlaybackState) UnmarshalText(text []byte) error {
	for st := StateNone; st <= StateEnded; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	if string(text) == StateNA.String() {
		*s = StateNA
		return nil
	}
	return fmt.Errorf("unknown playback state %q", text)
}

// Valid reports whether s is part of the known vocabulary.
func (s PlaybackState) Valid() bool {
	return s <= StateEnded
}

// IsActive reports whether an item is playing or paused mid-stream.
func (s PlaybackState) IsActive() bool {
	return s == StatePlaying || s == StatePaused
}

// StateTransition is delivered once per accepted state change.
type StateTransition struct {
	Previous PlaybackState `json:"previous"`
	Current  PlaybackState `json:"current"`
}

// Changed reports whether the transition moved to a different state.
func (t StateTransition) Changed() bool {
	return t.Previous != t.Current
}

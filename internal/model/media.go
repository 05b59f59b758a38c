// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"fmt"
	"strings"
	"time"
)

// TicksPerSecond is the engine time resolution (100ns ticks).
const TicksPerSecond int64 = 10_000_000

// TicksToDuration converts engine ticks to a time.Duration.
func TicksToDuration(ticks int64) time.Duration {
	return time.Duration(ticks) * 100 * time.Nanosecond
}

// DurationToTicks converts a time.Duration to engine ticks.
func DurationToTicks(d time.Duration) int64 {
	return int64(d / (100 * time.Nanosecond))
}

// FormatTicks renders ticks as hh:mm:ss.mmm.
func FormatTicks(ticks int64) string {
	d := TicksToDuration(ticks)
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, d/time.Millisecond)
}

// MediaDescription holds the last known properties of the opened item.
type MediaDescription struct {
	Width         uint32 `json:"width"`
	Height        uint32 `json:"height"`
	DurationTicks int64  `json:"duration_ticks"`
	Seekable      bool   `json:"seekable"`
	Stereoscopic  bool   `json:"stereoscopic"`
}

// IsZero reports whether d carries no information.
func (d MediaDescription) IsZero() bool {
	return d == MediaDescription{}
}

// HasGeometry reports whether both dimensions are known.
func (d MediaDescription) HasGeometry() bool {
	return d.Width != 0 && d.Height != 0
}

func (d MediaDescription) Resolution() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// FrameBuffer describes the GPU-visible surface the engine decodes into.
// A new value with a higher Generation supersedes the previous one.
type FrameBuffer struct {
	Width        uint32  `json:"width"`
	Height       uint32  `json:"height"`
	NativeRef    uintptr `json:"-"`
	Stereoscopic bool    `json:"stereoscopic"`
	Generation   uint64  `json:"generation"`
}

// Valid reports whether the buffer references a native resource.
func (f FrameBuffer) Valid() bool {
	return f.NativeRef != 0
}

// LicenseRequest carries the DRM license parameters for one load cycle.
// An empty ServiceURL means no license is available.
type LicenseRequest struct {
	ServiceURL          string  `json:"service_url"`
	CustomChallengeData *string `json:"custom_challenge_data,omitempty"`
}

// CustomData returns the challenge data or "" when unset.
func (r *LicenseRequest) CustomData() string {
	if r == nil || r.CustomChallengeData == nil {
		return ""
	}
	return *r.CustomChallengeData
}

// SubtitleTrack describes one engine-side subtitle track.
type SubtitleTrack struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Language string `json:"language"`
}

// SubtitleCue is a timed text unit announced by a cue-entered notification.
type SubtitleCue struct {
	TrackID  string   `json:"track_id"`
	CueID    string   `json:"cue_id"`
	Language string   `json:"language"`
	Lines    []string `json:"lines"`
}

// Text joins the cue lines with newlines.
func (c SubtitleCue) Text() string {
	return strings.Join(c.Lines, "\n")
}

// CueExit is the payload of a cue-exited notification.
type CueExit struct {
	TrackID string `json:"track_id"`
	CueID   string `json:"cue_id"`
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package events

import (
	"github.com/ManuGH/playcore/internal/model"
)

// Kind names a host-facing event; it doubles as the bus topic.
type Kind string

const (
	KindStateChanged        Kind = "state_changed"
	KindPlaybackFailed      Kind = "playback_failed"
	KindTextureUpdated      Kind = "texture_updated"
	KindSubtitleEntered     Kind = "subtitle_entered"
	KindSubtitleExited      Kind = "subtitle_exited"
	KindDrmLicenseRequested Kind = "drm_license_requested"
)

// Event is the tagged form published on the Bus.
type Event struct {
	Kind    Kind `json:"kind"`
	Payload any  `json:"payload"`
}

// PlaybackFailure is the payload of a PlaybackFailed event. Code is the
// engine status verbatim.
type PlaybackFailure struct {
	Code int64  `json:"code"`
	Hex  string `json:"hex"`
}

// Hub holds one observer list per event kind. Emit* methods are called on the
// owner goroutine only, so observers run there too.
type Hub struct {
	StateChanged        Observers[model.StateTransition]
	PlaybackFailed      Observers[PlaybackFailure]
	TextureUpdated      Observers[model.FrameBuffer]
	SubtitleEntered     Observers[model.SubtitleCue]
	SubtitleExited      Observers[model.CueExit]
	DrmLicenseRequested Observers[*model.LicenseRequest]

	bus *Bus
}

// NewHub creates a hub. bus may be nil.
func NewHub(bus *Bus) *Hub {
	h := &Hub{bus: bus}
	h.StateChanged.kind = KindStateChanged
	h.PlaybackFailed.kind = KindPlaybackFailed
	h.TextureUpdated.kind = KindTextureUpdated
	h.SubtitleEntered.kind = KindSubtitleEntered
	h.SubtitleExited.kind = KindSubtitleExited
	h.DrmLicenseRequested.kind = KindDrmLicenseRequested
	return h
}

// Bus returns the channel fan-out, or nil.
func (h *Hub) Bus() *Bus {
	return h.bus
}

func (h *Hub) EmitStateChanged(t model.StateTransition) {
	h.StateChanged.Emit(t)
	h.publish(KindStateChanged, t)
}

func (h *Hub) EmitPlaybackFailed(f PlaybackFailure) {
	h.PlaybackFailed.Emit(f)
	h.publish(KindPlaybackFailed, f)
}

func (h *Hub) EmitTextureUpdated(fb model.FrameBuffer) {
	h.TextureUpdated.Emit(fb)
	h.publish(KindTextureUpdated, fb)
}

func (h *Hub) EmitSubtitleEntered(cue model.SubtitleCue) {
	h.SubtitleEntered.Emit(cue)
	h.publish(KindSubtitleEntered, cue)
}

func (h *Hub) EmitSubtitleExited(exit model.CueExit) {
	h.SubtitleExited.Emit(exit)
	h.publish(KindSubtitleExited, exit)
}

// EmitDrmLicenseRequested lets every observer fill req in turn. The bus gets
// a copy taken after the observers ran.
func (h *Hub) EmitDrmLicenseRequested(req *model.LicenseRequest) {
	h.DrmLicenseRequested.Emit(req)
	if req != nil {
		h.publish(KindDrmLicenseRequested, model.LicenseRequest{ServiceURL: req.ServiceURL})
	}
}

func (h *Hub) publish(kind Kind, payload any) {
	if h.bus == nil {
		return
	}
	h.bus.Publish(Event{Kind: kind, Payload: payload})
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StateTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_state_transitions_total",
		Help: "Public playback state transitions by from/to state",
	}, []string{"from", "to"})

	PlaybackFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playcore_playback_failures_total",
		Help: "Failed-state notifications reported by the engine",
	})

	EngineCallFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_engine_call_failures_total",
		Help: "Engine passthrough calls that returned a non-zero result, by operation",
	}, []string{"op"})

	FrameBuffersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playcore_framebuffers_created_total",
		Help: "Frame buffers created (geometry or stereoscopic change)",
	})

	FrameBufferDestroyFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playcore_framebuffer_destroy_failures_total",
		Help: "Best-effort frame buffer releases that failed",
	})

	DRMRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_drm_requests_total",
		Help: "DRM license requests by outcome (license|empty|disabled|failed)",
	}, []string{"outcome"})

	SubtitleCuesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_subtitle_cues_total",
		Help: "Subtitle cue notifications by kind (entered|exited)",
	}, []string{"kind"})
)

// IncStateTransition records a public state change.
func IncStateTransition(from, to string) {
	StateTransitionsTotal.WithLabelValues(from, to).Inc()
}

// IncEngineCallFailure records a non-zero engine result for op.
func IncEngineCallFailure(op string) {
	if op == "" {
		op = "unknown"
	}
	EngineCallFailuresTotal.WithLabelValues(op).Inc()
}

// IncDRMRequest records a negotiated license request.
func IncDRMRequest(outcome string) {
	switch outcome {
	case "license", "empty", "disabled", "failed":
	default:
		outcome = "unknown"
	}
	DRMRequestsTotal.WithLabelValues(outcome).Inc()
}

// IncSubtitleCue records a cue notification.
func IncSubtitleCue(kind string) {
	SubtitleCuesTotal.WithLabelValues(kind).Inc()
}

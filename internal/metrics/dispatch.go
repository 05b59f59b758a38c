// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	PostModeInline = "inline"
	PostModeWait   = "wait"
	PostModeAsync  = "async"
)

var (
	DispatchQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "playcore_dispatch_queue_depth",
		Help: "Callbacks currently queued for the owner goroutine",
	})

	DispatchPostedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_dispatch_posted_total",
		Help: "Callbacks accepted by the dispatcher by mode (inline|wait|async)",
	}, []string{"mode"})

	DispatchRefusedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playcore_dispatch_refused_total",
		Help: "Callbacks refused because the dispatcher was closed",
	})

	DispatchPanicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playcore_dispatch_panics_total",
		Help: "Callbacks that panicked on the owner goroutine",
	})

	CallbackDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_callback_dropped_total",
		Help: "Native callbacks dropped at the entry point, by entry and reason",
	}, []string{"entry", "reason"})
)

// IncPosted counts an accepted dispatcher post.
func IncPosted(mode string) {
	switch mode {
	case PostModeInline, PostModeWait, PostModeAsync:
	default:
		mode = "unknown"
	}
	DispatchPostedTotal.WithLabelValues(mode).Inc()
}

// IncCallbackDropped counts a native callback dropped before it reached a session.
func IncCallbackDropped(entry, reason string) {
	if entry == "" {
		entry = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	CallbackDroppedTotal.WithLabelValues(entry, reason).Inc()
}

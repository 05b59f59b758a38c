// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BusDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_bus_dropped_total",
		Help: "Total number of event bus deliveries dropped by topic and reason",
	}, []string{"topic", "reason"})

	ObserverPanicsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_observer_panics_total",
		Help: "Host observer callbacks that panicked, by event",
	}, []string{"event"})
)

// IncBusDrop records a dropped bus delivery because the subscriber is full.
func IncBusDrop(topic string) {
	IncBusDropReason(topic, "full")
}

// IncBusDropReason records a dropped bus delivery with a concrete reason.
func IncBusDropReason(topic, reason string) {
	if topic == "" {
		topic = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	BusDroppedTotal.WithLabelValues(topic, reason).Inc()
}

// IncObserverPanic records a recovered panic in a host observer.
func IncObserverPanic(event string) {
	if event == "" {
		event = "unknown"
	}
	ObserverPanicsTotal.WithLabelValues(event).Inc()
}

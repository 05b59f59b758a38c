// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package events

import (
	"testing"

	"github.com/ManuGH/playcore/internal/metrics"
	"github.com/ManuGH/playcore/internal/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserversRunInRegistrationOrder(t *testing.T) {
	h := NewHub(nil)
	var order []int
	h.StateChanged.Subscribe(func(model.StateTransition) { order = append(order, 1) })
	h.StateChanged.Subscribe(func(model.StateTransition) { order = append(order, 2) })
	h.StateChanged.Subscribe(func(model.StateTransition) { order = append(order, 3) })

	h.EmitStateChanged(model.StateTransition{Previous: model.StateNone, Current: model.StateOpening})
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestCancelRemovesObserver(t *testing.T) {
	h := NewHub(nil)
	calls := 0
	cancel := h.PlaybackFailed.Subscribe(func(PlaybackFailure) { calls++ })
	h.PlaybackFailed.Subscribe(func(PlaybackFailure) {})

	h.EmitPlaybackFailed(PlaybackFailure{Code: 1})
	cancel()
	cancel()
	h.EmitPlaybackFailed(PlaybackFailure{Code: 1})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, h.PlaybackFailed.Len())
}

func TestNilObserverIgnored(t *testing.T) {
	h := NewHub(nil)
	cancel := h.TextureUpdated.Subscribe(nil)
	cancel()
	assert.Zero(t, h.TextureUpdated.Len())
}

func TestPanickingObserverIsIsolated(t *testing.T) {
	h := NewHub(nil)
	var got []model.SubtitleCue
	h.SubtitleEntered.Subscribe(func(model.SubtitleCue) { panic("boom") })
	h.SubtitleEntered.Subscribe(func(c model.SubtitleCue) { got = append(got, c) })

	before := testutil.ToFloat64(metrics.ObserverPanicsTotal.WithLabelValues(string(KindSubtitleEntered)))
	require.NotPanics(t, func() {
		h.EmitSubtitleEntered(model.SubtitleCue{CueID: "c1"})
	})

	assert.Len(t, got, 1)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ObserverPanicsTotal.WithLabelValues(string(KindSubtitleEntered))))
}

func TestObserverMaySubscribeDuringEmit(t *testing.T) {
	h := NewHub(nil)
	added := 0
	h.SubtitleExited.Subscribe(func(model.CueExit) {
		h.SubtitleExited.Subscribe(func(model.CueExit) { added++ })
	})

	h.EmitSubtitleExited(model.CueExit{CueID: "c"})
	assert.Zero(t, added, "late subscriber misses the event in flight")
	assert.Equal(t, 2, h.SubtitleExited.Len())
}

func TestLicenseObserversShareRequest(t *testing.T) {
	h := NewHub(nil)
	h.DrmLicenseRequested.Subscribe(func(r *model.LicenseRequest) { r.ServiceURL = "https://a.example" })
	h.DrmLicenseRequested.Subscribe(func(r *model.LicenseRequest) { r.ServiceURL += "/license" })

	req := &model.LicenseRequest{}
	h.EmitDrmLicenseRequested(req)
	assert.Equal(t, "https://a.example/license", req.ServiceURL)
}

func TestHubPublishesToBus(t *testing.T) {
	bus := NewBus()
	h := NewHub(bus)
	require.Same(t, bus, h.Bus())

	sub := bus.Subscribe(8)
	defer sub.Close()

	tr := model.StateTransition{Previous: model.StateNone, Current: model.StateOpening}
	h.EmitStateChanged(tr)
	custom := "secret"
	h.EmitDrmLicenseRequested(&model.LicenseRequest{ServiceURL: "https://l.example", CustomChallengeData: &custom})

	ev := <-sub.C()
	assert.Equal(t, Event{Kind: KindStateChanged, Payload: tr}, ev)
	ev = <-sub.C()
	assert.Equal(t, KindDrmLicenseRequested, ev.Kind)
	assert.Equal(t, model.LicenseRequest{ServiceURL: "https://l.example"}, ev.Payload, "challenge data stays off the bus")
}

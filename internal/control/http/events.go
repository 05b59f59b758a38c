// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ManuGH/playcore/internal/control/http/problem"
	"github.com/ManuGH/playcore/internal/events"
	xglog "github.com/ManuGH/playcore/internal/log"
)

const sseBuffer = 256

// handleEvents streams host events as server-sent events. ?kind=a,b limits
// the stream to the named kinds.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	bus := s.session.Events().Bus()
	if bus == nil {
		problem.Write(w, r, http.StatusServiceUnavailable, "events/unavailable", "Events Unavailable", "NO_EVENT_BUS", "session has no event bus")
		return
	}
	rc := http.NewResponseController(w)

	var kinds []events.Kind
	if raw := r.URL.Query().Get("kind"); raw != "" {
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				kinds = append(kinds, events.Kind(k))
			}
		}
	}
	sub := bus.Subscribe(sseBuffer, kinds...)
	defer func() { _ = sub.Close() }()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	logger := xglog.WithContext(r.Context(), s.logger)
	if err := rc.Flush(); err != nil {
		logger.Warn().Err(err).
			Str(xglog.FieldEvent, "api.sse_flush_unsupported").
			Msg("response writer cannot flush")
		return
	}

	logger.Debug().Str(xglog.FieldEvent, "api.sse_open").Msg("event stream opened")
	defer func() {
		logger.Debug().Str(xglog.FieldEvent, "api.sse_closed").Msg("event stream closed")
	}()

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			data, err := json.Marshal(ev.Payload)
			if err != nil {
				logger.Warn().Err(err).Str("kind", string(ev.Kind)).Msg("event payload not encodable")
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

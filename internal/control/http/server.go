// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package http serves the playback control API. Every command is marshaled
// onto the session owner goroutine with Session.Do.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/playcore/internal/control/http/problem"
	"github.com/ManuGH/playcore/internal/control/middleware"
	"github.com/ManuGH/playcore/internal/dispatch"
	"github.com/ManuGH/playcore/internal/health"
	xglog "github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/session"
	"github.com/ManuGH/playcore/internal/version"
)

// DefaultHeartbeat is the interval of SSE keep-alive comments.
const DefaultHeartbeat = 15 * time.Second

const readinessTimeout = time.Second

// Options configure the control API.
type Options struct {
	Session *session.Session

	// RateLimit is requests per minute per client IP; 0 disables limiting.
	RateLimit int
	// TracingService names otelhttp spans; empty disables HTTP tracing.
	TracingService string
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
	// Heartbeat is the SSE keep-alive interval; 0 uses DefaultHeartbeat.
	Heartbeat time.Duration
	// Health backs /healthz and /readyz. A session checker is always added.
	Health *health.Manager
}

// Server is the HTTP control surface of one session.
type Server struct {
	session   *session.Session
	gatherer  prometheus.Gatherer
	heartbeat time.Duration
	health    *health.Manager
	router    *chi.Mux
	logger    zerolog.Logger
}

// New builds the router and middleware stack.
func New(opts Options) *Server {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = DefaultHeartbeat
	}
	if opts.Health == nil {
		opts.Health = health.NewManager(version.Version)
	}
	s := &Server{
		session:   opts.Session,
		gatherer:  opts.Gatherer,
		heartbeat: opts.Heartbeat,
		health:    opts.Health,
		logger:    xglog.WithComponent("api"),
	}
	s.health.RegisterChecker(health.CheckerFunc("session", s.checkSession))

	r := middleware.NewRouter(middleware.StackConfig{
		EnableMetrics:  true,
		TracingService: opts.TracingService,
		EnableLogging:  true,
		RateLimit:      opts.RateLimit,
	})
	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Get("/status", s.handleStatus)
	r.Post("/load", s.handleLoad)
	r.Post("/play", s.handlePlay)
	r.Post("/pause", s.handlePause)
	r.Post("/stop", s.handleStop)
	r.Post("/seek", s.handleSeek)
	r.Post("/volume", s.handleVolume)
	r.Get("/subtitles", s.handleSubtitles)
	r.Get("/events", s.handleEvents)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		problem.Write(w, r, http.StatusNotFound, "system/not_found", "Not Found", "NOT_FOUND", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		problem.Write(w, r, http.StatusMethodNotAllowed, "system/method_not_allowed", "Method Not Allowed", "METHOD_NOT_ALLOWED", "")
	})
	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// checkSession reports whether the owner goroutine is ticking an enabled
// session.
func (s *Server) checkSession(ctx context.Context) health.CheckResult {
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()

	var state string
	err := s.session.Do(ctx, func(context.Context) { state = s.session.State().String() })
	switch {
	case err == nil:
		return health.CheckResult{Status: health.StatusHealthy, Message: state}
	case errors.Is(err, context.DeadlineExceeded):
		return health.CheckResult{Status: health.StatusUnhealthy, Error: "owner goroutine not ticking"}
	default:
		return health.CheckResult{Status: health.StatusUnhealthy, Error: err.Error()}
	}
}

// do runs fn on the owner goroutine, writing a problem response when the
// session cannot accept commands.
func (s *Server) do(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context)) bool {
	err := s.session.Do(r.Context(), fn)
	if err == nil {
		return true
	}
	switch {
	case errors.Is(err, session.ErrNotEnabled), errors.Is(err, dispatch.ErrClosed):
		problem.Write(w, r, http.StatusConflict, "playback/not_enabled", "Session Not Enabled", "NOT_ENABLED", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		problem.Write(w, r, http.StatusGatewayTimeout, "playback/owner_timeout", "Owner Timeout", "OWNER_TIMEOUT", err.Error())
	case errors.Is(err, context.Canceled):
		// client went away; nothing useful to write
		logger := xglog.WithContext(r.Context(), s.logger)
		logger.Debug().
			Str(xglog.FieldEvent, "api.request_canceled").
			Msg("request canceled while waiting for owner")
	default:
		problem.Write(w, r, http.StatusInternalServerError, "system/internal", "Internal Server Error", "INTERNAL", err.Error())
	}
	return false
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		problem.Write(w, r, http.StatusBadRequest, "request/invalid_body", "Invalid Request Body", "INVALID_BODY", err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

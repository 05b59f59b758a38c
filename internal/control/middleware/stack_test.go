// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/playcore/internal/control/http/problem"
	"github.com/ManuGH/playcore/internal/log"
)

func TestStack_RequestIDGeneratedAndPropagated(t *testing.T) {
	r := NewRouter(StackConfig{})
	var seen string
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		seen = log.CorrelationIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(problem.HeaderRequestID))
}

func TestStack_RequestIDFromClient(t *testing.T) {
	r := NewRouter(StackConfig{})
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set(problem.HeaderRequestID, "client-id")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "client-id", w.Header().Get(problem.HeaderRequestID))
}

func TestStack_RecoversPanics(t *testing.T) {
	r := NewRouter(StackConfig{EnableLogging: true})
	r.Get("/boom", func(http.ResponseWriter, *http.Request) {
		panic("engine exploded")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL", body["code"])
	assert.NotEmpty(t, body[problem.JSONKeyRequestID])
}

func TestStack_RateLimit(t *testing.T) {
	r := NewRouter(StackConfig{RateLimit: 2})
	r.Post("/play", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/play", nil)
		req.RemoteAddr = "192.0.2.10:5000"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, "60", w.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	// Other clients have their own window.
	req := httptest.NewRequest(http.MethodPost, "/play", nil)
	req.RemoteAddr = "192.0.2.11:5000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimit_DisabledPassesThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	h := RateLimit(RateLimitConfig{})(next)

	for range 5 {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusTeapot, w.Code)
	}
}

func TestStack_MetricsUseRoutePattern(t *testing.T) {
	r := NewRouter(StackConfig{EnableMetrics: true})
	r.Get("/tracks/{index}", func(w http.ResponseWriter, r *http.Request) {})

	before := testutil.CollectAndCount(httpRequestDuration)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tracks/3", nil))
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tracks/4", nil))

	// Both requests share one series.
	assert.Equal(t, before+1, testutil.CollectAndCount(httpRequestDuration))
}

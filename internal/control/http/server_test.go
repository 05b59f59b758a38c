// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/playcore/internal/engine"
	"github.com/ManuGH/playcore/internal/engine/stub"
	"github.com/ManuGH/playcore/internal/events"
	"github.com/ManuGH/playcore/internal/model"
	"github.com/ManuGH/playcore/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

type apiFixture struct {
	t    *testing.T
	lib  *stub.Library
	sess *session.Session
	srv  *Server
}

func newSession(lib *stub.Library) *session.Session {
	return session.New(session.Options{
		Library:   lib,
		Registry:  engine.NewRegistry(),
		Bus:       events.NewBus(),
		AssetRoot: "/media",
		Settings:  session.DefaultSettings(),
	})
}

// newAPIFixture enables a session on a background owner goroutine that ticks
// every millisecond until the test ends.
func newAPIFixture(t *testing.T, opts stub.Options) *apiFixture {
	t.Helper()
	lib := stub.NewLibrary(opts)
	f := &apiFixture{t: t, lib: lib, sess: newSession(lib)}
	f.srv = New(Options{Session: f.sess, Heartbeat: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		owner := context.Background()
		if err := f.sess.Enable(owner); err != nil {
			ready <- err
			return
		}
		ready <- nil

		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = f.sess.Disable(owner)
				return
			case <-ticker.C:
				f.sess.Tick(owner)
				f.sess.PumpFrame(time.Millisecond)
			}
		}
	}()
	require.NoError(t, <-ready)
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return f
}

func (f *apiFixture) request(method, path, body string) *httptest.ResponseRecorder {
	f.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeStatus(t *testing.T, w *httptest.ResponseRecorder) StatusResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder, status int) map[string]any {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func (f *apiFixture) waitForState(want string) StatusResponse {
	f.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		w := f.request(http.MethodGet, "/status", "")
		require.Equal(f.t, http.StatusOK, w.Code)
		var raw map[string]any
		require.NoError(f.t, json.Unmarshal(w.Body.Bytes(), &raw))
		if raw["state"] == want {
			return decodeStatus(f.t, w)
		}
		if time.Now().After(deadline) {
			f.t.Fatalf("timed out waiting for state %s, last %v", want, raw["state"])
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestCommandAbandonedByClient(t *testing.T) {
	ctx := context.Background()
	sess := newSession(stub.NewLibrary(stub.DefaultOptions()))
	require.NoError(t, sess.Enable(ctx))
	defer func() { _ = sess.Disable(ctx) }()
	srv := New(Options{Session: sess})

	gone, cancel := context.WithCancel(ctx)
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/pause", nil).WithContext(gone)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Empty(t, w.Body.String(), "nothing is written for a departed client")
}

func TestHealthz(t *testing.T) {
	srv := New(Options{Session: newSession(stub.NewLibrary(stub.DefaultOptions()))})
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReflectsSession(t *testing.T) {
	srv := New(Options{Session: newSession(stub.NewLibrary(stub.DefaultOptions()))})
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), session.ErrNotEnabled.Error())

	f := newAPIFixture(t, stub.DefaultOptions())
	w = f.request(http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Ready  bool `json:"ready"`
		Checks map[string]struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Ready)
	assert.Equal(t, "healthy", body.Checks["session"].Status)
	assert.Equal(t, model.StateNone.String(), body.Checks["session"].Message)
}

func TestCommandsRequireEnabledSession(t *testing.T) {
	srv := New(Options{Session: newSession(stub.NewLibrary(stub.DefaultOptions()))})
	for _, path := range []string{"/status", "/subtitles"} {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		body := decodeProblem(t, w, http.StatusConflict)
		assert.Equal(t, "NOT_ENABLED", body["code"], path)
	}

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/load", strings.NewReader(`{"uri":"a.mp4"}`)))
	decodeProblem(t, w, http.StatusConflict)
}

func TestLoadThenPlay(t *testing.T) {
	f := newAPIFixture(t, stub.DefaultOptions())

	resp := decodeStatus(t, f.request(http.MethodPost, "/load", `{"uri":"movie.mp4"}`))
	assert.Equal(t, f.sess.ID(), resp.SessionID)
	assert.Equal(t, "movie.mp4", resp.Item)
	assert.True(t, resp.Ready)
	assert.Equal(t, "file:///media/movie.mp4", f.lib.Last().URI())

	paused := f.waitForState(model.StatePaused.String())
	assert.Equal(t, uint32(1920), paused.Media.Width)
	assert.Equal(t, model.DurationToTicks(30*time.Second), paused.DurationTicks)

	decodeStatus(t, f.request(http.MethodPost, "/play", ""))
	playing := f.waitForState(model.StatePlaying.String())
	assert.Equal(t, "movie.mp4", playing.Item)
	require.NotNil(t, playing.FrameBuffer)
	assert.Equal(t, uint32(1080), playing.FrameBuffer.Height)

	decodeStatus(t, f.request(http.MethodPost, "/pause", ""))
	f.waitForState(model.StatePaused.String())

	stopped := decodeStatus(t, f.request(http.MethodPost, "/stop", ""))
	assert.Equal(t, model.StateNone, stopped.State)
	assert.Empty(t, stopped.Item)
	assert.False(t, stopped.Ready)
}

func TestPlayWithURILoads(t *testing.T) {
	f := newAPIFixture(t, stub.DefaultOptions())

	resp := decodeStatus(t, f.request(http.MethodPost, "/play", `{"uri":"https://cdn.example.com/a.m3u8"}`))
	assert.Equal(t, "https://cdn.example.com/a.m3u8", resp.Item)
	assert.Equal(t, "https://cdn.example.com/a.m3u8", f.lib.Last().URI())
	f.waitForState(model.StatePlaying.String())
}

func TestLoadValidation(t *testing.T) {
	f := newAPIFixture(t, stub.DefaultOptions())

	body := decodeProblem(t, f.request(http.MethodPost, "/load", `{"uri":"  "}`), http.StatusBadRequest)
	assert.Equal(t, "MISSING_URI", body["code"])

	body = decodeProblem(t, f.request(http.MethodPost, "/load", `{"url":"a.mp4"}`), http.StatusBadRequest)
	assert.Equal(t, "INVALID_BODY", body["code"])

	body = decodeProblem(t, f.request(http.MethodPost, "/load", `{`), http.StatusBadRequest)
	assert.Equal(t, "INVALID_BODY", body["code"])
}

func TestLoadRejectedByEngine(t *testing.T) {
	f := newAPIFixture(t, stub.DefaultOptions())
	f.lib.Last().Fail("load", engine.ResultInvalidArg)

	body := decodeProblem(t, f.request(http.MethodPost, "/load", `{"uri":"broken.mp4"}`), http.StatusUnprocessableEntity)
	assert.Equal(t, "playback/load_failed", body["type"])
	assert.Equal(t, "COMMAND_REJECTED", body["code"])
}

func TestSeek(t *testing.T) {
	f := newAPIFixture(t, stub.DefaultOptions())
	decodeStatus(t, f.request(http.MethodPost, "/load", `{"uri":"movie.mp4"}`))
	f.waitForState(model.StatePaused.String())

	resp := decodeStatus(t, f.request(http.MethodPost, "/seek", `{"position":"10s"}`))
	assert.Equal(t, model.DurationToTicks(10*time.Second), resp.PositionTicks)
	assert.Equal(t, "00:00:10.000", resp.Position)

	resp = decodeStatus(t, f.request(http.MethodPost, "/seek", `{"ticks":50000000}`))
	assert.Equal(t, int64(50_000_000), resp.PositionTicks)

	decodeProblem(t, f.request(http.MethodPost, "/seek", `{"ticks":-1}`), http.StatusUnprocessableEntity)
	decodeProblem(t, f.request(http.MethodPost, "/seek", `{"position":"soon"}`), http.StatusBadRequest)
	decodeProblem(t, f.request(http.MethodPost, "/seek", `{}`), http.StatusBadRequest)
}

func TestVolume(t *testing.T) {
	f := newAPIFixture(t, stub.DefaultOptions())

	resp := decodeStatus(t, f.request(http.MethodPost, "/volume", `{"volume":0.4}`))
	assert.Equal(t, 0.4, resp.Volume)
	assert.Equal(t, 0.4, f.lib.Last().Volume())

	resp = decodeStatus(t, f.request(http.MethodPost, "/volume", `{"volume":3}`))
	assert.Equal(t, 1.0, resp.Volume)

	decodeProblem(t, f.request(http.MethodPost, "/volume", `{}`), http.StatusBadRequest)
}

func TestSubtitles(t *testing.T) {
	opts := stub.DefaultOptions()
	opts.Tracks = []model.SubtitleTrack{
		{ID: "1", Title: "English", Language: "en"},
		{ID: "2", Title: "Deutsch", Language: "de"},
	}
	f := newAPIFixture(t, opts)
	decodeStatus(t, f.request(http.MethodPost, "/load", `{"uri":"movie.mp4"}`))

	w := f.request(http.MethodGet, "/subtitles", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp SubtitlesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, opts.Tracks, resp.Tracks)
	assert.Nil(t, resp.Current)
	assert.Empty(t, resp.Text)
}

func TestEventsStream(t *testing.T) {
	f := newAPIFixture(t, stub.DefaultOptions())
	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events?kind=state_changed", nil)
	require.NoError(t, err)
	res, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))

	decodeStatus(t, f.request(http.MethodPost, "/load", `{"uri":"movie.mp4"}`))

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(res.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	var sawEvent, sawOpening bool
	timeout := time.After(3 * time.Second)
	for !sawOpening {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream closed early")
			if line == "event: state_changed" {
				sawEvent = true
			}
			if strings.HasPrefix(line, "data: ") && strings.Contains(line, `"current":"Opening"`) {
				sawOpening = true
			}
		case <-timeout:
			t.Fatal("no state_changed event received")
		}
	}
	assert.True(t, sawEvent)

	cancel()
	for range lines {
	}
	ts.Client().CloseIdleConnections()
}

func TestEventsStreamHeartbeat(t *testing.T) {
	f := newAPIFixture(t, stub.DefaultOptions())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), ": ping")
}

func TestMetricsEndpoint(t *testing.T) {
	f := newAPIFixture(t, stub.DefaultOptions())
	decodeStatus(t, f.request(http.MethodGet, "/status", ""))

	w := f.request(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "playcore_http_request_duration_seconds")
}

func TestNotFound(t *testing.T) {
	f := newAPIFixture(t, stub.DefaultOptions())
	body := decodeProblem(t, f.request(http.MethodGet, "/nope", ""), http.StatusNotFound)
	assert.Equal(t, "NOT_FOUND", body["code"])

	body = decodeProblem(t, f.request(http.MethodGet, "/load", ""), http.StatusMethodNotAllowed)
	assert.Equal(t, "METHOD_NOT_ALLOWED", body["code"])
}

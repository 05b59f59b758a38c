// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ManuGH/playcore/internal/control/http/problem"
	"github.com/ManuGH/playcore/internal/model"
)

// StatusResponse is the snapshot returned by /status and every command.
type StatusResponse struct {
	SessionID     string                 `json:"session_id"`
	State         model.PlaybackState    `json:"state"`
	Item          string                 `json:"item,omitempty"`
	Ready         bool                   `json:"ready"`
	PositionTicks int64                  `json:"position_ticks"`
	DurationTicks int64                  `json:"duration_ticks"`
	Position      string                 `json:"position"`
	Volume        float64                `json:"volume"`
	Media         model.MediaDescription `json:"media"`
	FrameBuffer   *model.FrameBuffer     `json:"frame_buffer,omitempty"`
	Hardware4K    bool                   `json:"hardware_4k"`
}

type loadRequest struct {
	URI string `json:"uri"`
}

type seekRequest struct {
	Ticks    *int64 `json:"ticks,omitempty"`
	Position string `json:"position,omitempty"`
}

type volumeRequest struct {
	Volume *float64 `json:"volume"`
}

// SubtitlesResponse lists the tracks and the cue currently on screen.
type SubtitlesResponse struct {
	Language string                `json:"language"`
	Tracks   []model.SubtitleTrack `json:"tracks"`
	Current  *model.SubtitleCue    `json:"current,omitempty"`
	Text     string                `json:"text"`
}

// snapshot must run on the owner goroutine.
func (s *Server) snapshot() StatusResponse {
	sess := s.session
	pos := model.DurationToTicks(sess.Position())
	resp := StatusResponse{
		SessionID:     sess.ID(),
		State:         sess.State(),
		Item:          sess.CurrentItem(),
		Ready:         sess.IsReady(),
		PositionTicks: pos,
		DurationTicks: model.DurationToTicks(sess.Duration()),
		Position:      model.FormatTicks(pos),
		Volume:        sess.Volume(),
		Media:         sess.Description(),
		Hardware4K:    sess.IsHardware4KDecodingSupported(),
	}
	if fb, ok := sess.FrameBuffer(); ok {
		resp.FrameBuffer = &fb
	}
	return resp
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var resp StatusResponse
	if !s.do(w, r, func(context.Context) { resp = s.snapshot() }) {
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.URI) == "" {
		problem.Write(w, r, http.StatusBadRequest, "request/missing_uri", "Missing URI", "MISSING_URI", "uri is required")
		return
	}
	s.command(w, r, "playback/load_failed", "Load Failed", func(ctx context.Context) bool {
		return s.session.Load(ctx, req.URI)
	})
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.command(w, r, "playback/play_failed", "Play Failed", func(ctx context.Context) bool {
		return s.session.Play(ctx, req.URI)
	})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, "playback/pause_failed", "Pause Failed", func(ctx context.Context) bool {
		return s.session.Pause(ctx)
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, "", "", func(ctx context.Context) bool {
		s.session.Stop(ctx)
		return true
	})
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var ticks int64
	switch {
	case req.Ticks != nil:
		ticks = *req.Ticks
	case req.Position != "":
		d, err := time.ParseDuration(req.Position)
		if err != nil {
			problem.Write(w, r, http.StatusBadRequest, "request/invalid_position", "Invalid Position", "INVALID_POSITION", err.Error())
			return
		}
		ticks = model.DurationToTicks(d)
	default:
		problem.Write(w, r, http.StatusBadRequest, "request/missing_position", "Missing Position", "MISSING_POSITION", "ticks or position is required")
		return
	}
	s.command(w, r, "playback/seek_rejected", "Seek Rejected", func(context.Context) bool {
		return s.session.SeekTo(ticks)
	})
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Volume == nil {
		problem.Write(w, r, http.StatusBadRequest, "request/missing_volume", "Missing Volume", "MISSING_VOLUME", "volume is required")
		return
	}
	s.command(w, r, "", "", func(context.Context) bool {
		s.session.SetVolume(*req.Volume)
		return true
	})
}

func (s *Server) handleSubtitles(w http.ResponseWriter, r *http.Request) {
	var resp SubtitlesResponse
	ok := s.do(w, r, func(context.Context) {
		tracker := s.session.Tracker()
		resp.Language = tracker.Language()
		resp.Tracks = s.session.SubtitleTracks()
		if cue, shown := tracker.Current(); shown {
			resp.Current = &cue
		}
		resp.Text = tracker.Text()
	})
	if !ok {
		return
	}
	if resp.Tracks == nil {
		resp.Tracks = []model.SubtitleTrack{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// command runs fn on the owner and answers with the resulting status. A
// false result becomes a 422 with the given problem type.
func (s *Server) command(w http.ResponseWriter, r *http.Request, problemType, title string, fn func(ctx context.Context) bool) {
	var (
		accepted bool
		resp     StatusResponse
	)
	if !s.do(w, r, func(ctx context.Context) {
		accepted = fn(ctx)
		resp = s.snapshot()
	}) {
		return
	}
	if !accepted {
		problem.Write(w, r, http.StatusUnprocessableEntity, problemType, title, "COMMAND_REJECTED",
			"engine rejected the command in state "+resp.State.String())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

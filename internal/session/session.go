// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package session is the host-facing playback API. A Session owns one engine
// instance and marshals every native callback onto the goroutine that drives
// Tick.
package session

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ManuGH/playcore/internal/dispatch"
	"github.com/ManuGH/playcore/internal/drm"
	"github.com/ManuGH/playcore/internal/engine"
	"github.com/ManuGH/playcore/internal/events"
	"github.com/ManuGH/playcore/internal/framebuffer"
	xglog "github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/model"
	"github.com/ManuGH/playcore/internal/playback"
	"github.com/ManuGH/playcore/internal/subtitle"
	"github.com/ManuGH/playcore/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrNotEnabled     = errors.New("session: not enabled")
	ErrAlreadyEnabled = errors.New("session: already enabled")
)

const defaultTeardownTimeout = 2 * time.Second

// Options configures a Session. Library is required.
type Options struct {
	Library  engine.Library
	Registry *engine.Registry
	Renderer framebuffer.Renderer
	Bus      *events.Bus
	Tracer   trace.Tracer

	AssetRoot       string
	TeardownTimeout time.Duration
	Settings        Settings

	// FrameWidth and FrameHeight size the frame buffer requested on Enable,
	// before any media reports its geometry. Zero skips the request.
	FrameWidth  uint32
	FrameHeight uint32
}

// Settings are the fields a running session can change without restarting.
// A zero Volume mutes.
type Settings struct {
	Volume              float64
	SubtitleLanguage    string
	DRMEnabled          bool
	LicenseServiceURL   string
	CustomChallengeData string
}

// Session is the playback control surface. Except for Do, Events, Tracker
// and ID, methods must be called on the owner goroutine.
type Session struct {
	id      string
	opts    Options
	hub     *events.Hub
	tracker *subtitle.Tracker
	logger  zerolog.Logger
	base    zerolog.Logger
	tracer  trace.Tracer

	disp  atomic.Pointer[dispatch.Dispatcher]
	calls engine.Calls

	enabled      bool
	token        engine.Token
	handle       *engine.Handle
	machine      *playback.Machine
	frames       *framebuffer.Manager
	drm          *drm.Negotiator
	subs         *subtitle.Coordinator
	textureDirty bool

	settings Settings
	preset   *model.LicenseRequest
}

// New creates a disabled session.
func New(opts Options) *Session {
	if opts.Registry == nil {
		opts.Registry = engine.DefaultRegistry
	}
	if opts.Renderer == nil {
		opts.Renderer = framebuffer.NopRenderer{}
	}
	if opts.Tracer == nil {
		opts.Tracer = telemetry.Tracer("playcore/session")
	}
	if opts.TeardownTimeout <= 0 {
		opts.TeardownTimeout = defaultTeardownTimeout
	}

	id := uuid.NewString()
	base := xglog.WithComponent("session")
	s := &Session{
		id:     id,
		opts:   opts,
		hub:    events.NewHub(opts.Bus),
		logger: base.With().Str(xglog.FieldSessionID, id).Logger(),
		base:   base,
		tracer: opts.Tracer,
	}
	s.machine = playback.NewMachine(hubEmitter{s.hub}, s.logger)
	s.tracker = subtitle.NewTracker(opts.Settings.SubtitleLanguage, s.SubtitleTracks, s.logger)
	s.hub.StateChanged.Subscribe(s.tracker.OnStateChanged)
	s.hub.SubtitleEntered.Subscribe(s.tracker.OnCueEntered)
	s.hub.SubtitleExited.Subscribe(s.tracker.OnCueExited)
	s.hub.DrmLicenseRequested.Subscribe(s.fillLicenseFromSettings)
	s.applySettings(clampSettings(opts.Settings))
	return s
}

func (s *Session) ID() string { return s.id }

// Events returns the observer hub. Observers run on the owner goroutine.
func (s *Session) Events() *events.Hub { return s.hub }

// Tracker returns the built-in subtitle display listener.
func (s *Session) Tracker() *subtitle.Tracker { return s.tracker }

// Context annotates ctx with the session id for logging.
func (s *Session) Context(ctx context.Context) context.Context {
	return xglog.ContextWithSessionID(ctx, s.id)
}

// OwnerContext marks ctx as running on the owner goroutine, so Do runs
// inline instead of waiting for the next Tick. Only valid while enabled and
// only on the goroutine that calls Tick.
func (s *Session) OwnerContext(ctx context.Context) context.Context {
	d := s.disp.Load()
	if d == nil {
		return ctx
	}
	return d.Bind(ctx)
}

func (s *Session) startSpan(ctx context.Context, name string) (context.Context, trace.Span, zerolog.Logger) {
	ctx, span := s.tracer.Start(s.Context(ctx), name, trace.WithAttributes(telemetry.SessionAttributes(s.id)...))
	return ctx, span, xglog.WithContext(ctx, s.base)
}

// Enable creates the engine instance and starts accepting native callbacks.
func (s *Session) Enable(ctx context.Context) error {
	ctx, span, logger := s.startSpan(ctx, "session.Enable")
	defer span.End()

	if s.enabled {
		return ErrAlreadyEnabled
	}

	d := dispatch.New()
	d.Bind(ctx)
	s.disp.Store(d)

	token, err := s.opts.Registry.Register(s)
	if err != nil {
		s.disp.Store(nil)
		span.RecordError(err)
		span.SetStatus(codes.Error, "register")
		return err
	}

	cb := s.opts.Registry.Callbacks()
	handle, r := engine.OpenCounted(s.opts.Library, token, cb.StateChanged, &s.calls, s.logger)
	if r.Failed() {
		handle.Release()
		_ = s.opts.Registry.Unregister(ctx, token)
		s.disp.Store(nil)
		err := r.Err("create")
		span.RecordError(err)
		span.SetStatus(codes.Error, "create")
		return err
	}
	handle.SetDRMLicenseCallback(cb.LicenseRequested)
	handle.SetSubtitleCallbacks(cb.CueEntered, cb.CueExited)

	s.token = token
	s.handle = handle
	s.frames = framebuffer.New(handle, s.opts.Renderer, s.hub.EmitTextureUpdated, s.logger)
	s.drm = drm.New(s.settings.DRMEnabled, handle, s.hub.EmitDrmLicenseRequested, s.logger)
	if s.preset != nil {
		s.drm.Preset(*s.preset)
	}
	s.subs = subtitle.New(handle, s.hub.EmitSubtitleEntered, s.hub.EmitSubtitleExited, s.logger)
	s.handle.SetVolume(s.settings.Volume)
	if s.opts.FrameWidth > 0 && s.opts.FrameHeight > 0 {
		// Engines without a native buffer before the first load refuse this.
		s.frames.EnsureBuffer(s.opts.FrameWidth, s.opts.FrameHeight)
	}
	s.enabled = true

	logger.Info().
		Uint64(xglog.FieldToken, uint64(token)).
		Str(xglog.FieldEvent, "session.enabled").
		Msg("session enabled")
	return nil
}

// Disable tears the session down: refuse posts, drain, unregister the
// callback token, stop, release the engine and free frame buffers. Each step
// is best-effort.
func (s *Session) Disable(ctx context.Context) error {
	ctx, span, logger := s.startSpan(ctx, "session.Disable")
	defer span.End()

	if !s.enabled {
		return ErrNotEnabled
	}
	d := s.disp.Load()
	drained := d.Close(d.Bind(ctx))
	s.applyTexture()

	tctx, cancel := context.WithTimeout(ctx, s.opts.TeardownTimeout)
	defer cancel()
	if err := s.opts.Registry.Unregister(tctx, s.token); err != nil {
		span.RecordError(err)
		logger.Warn().Err(err).Str(xglog.FieldEvent, "session.unregister_failed").Msg("callback token still in use")
	}

	if s.machine.State().IsActive() {
		s.stop()
	}
	s.machine.Reset()
	s.handle.Release()
	s.frames.Close()

	s.disp.Store(nil)
	s.enabled = false
	logger.Info().
		Int("drained", drained).
		Str(xglog.FieldEvent, "session.disabled").
		Msg("session disabled")
	return nil
}

// Tick runs queued callbacks and applies pending frame buffer work. Call it
// once per render frame from the owner goroutine.
func (s *Session) Tick(ctx context.Context) int {
	d := s.disp.Load()
	if d == nil {
		return 0
	}
	n := d.Tick(ctx)
	s.applyTexture()
	return n
}

// PumpFrame lets the engine advance its clock by elapsed.
func (s *Session) PumpFrame(elapsed time.Duration) {
	if !s.enabled {
		return
	}
	s.handle.PumpFrame(elapsed)
}

// Do runs fn on the owner goroutine and waits for it. Safe from any
// goroutine; from the owner goroutine pass an OwnerContext.
func (s *Session) Do(ctx context.Context, fn func(ctx context.Context)) error {
	d := s.disp.Load()
	if d == nil {
		return ErrNotEnabled
	}
	return d.Post(ctx, fn, true)
}

func (s *Session) applyTexture() {
	if !s.textureDirty || s.frames == nil {
		return
	}
	s.textureDirty = false
	desc := s.machine.Description()
	if !desc.HasGeometry() {
		return
	}
	s.frames.EnsureBuffer(desc.Width, desc.Height)
}

// Load stops the current item and opens uri. It reports whether the engine
// accepted the item.
func (s *Session) Load(ctx context.Context, uri string) bool {
	ctx, span, logger := s.startSpan(ctx, "session.Load")
	defer span.End()
	if !s.enabled {
		span.SetStatus(codes.Error, ErrNotEnabled.Error())
		return false
	}
	return s.load(ctx, span, logger, uri)
}

func (s *Session) load(_ context.Context, span trace.Span, logger zerolog.Logger, uri string) bool {
	s.stop()

	item := strings.TrimSpace(uri)
	resolved, err := playback.ResolveURI(item, s.opts.AssetRoot)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve")
		logger.Warn().Err(err).Str(xglog.FieldURI, uri).Str(xglog.FieldEvent, "session.resolve_failed").Msg("cannot resolve media uri")
		return false
	}
	span.SetAttributes(telemetry.MediaAttributes(resolved)...)

	s.drm.Reset()
	if r := s.handle.Load(resolved); r.Failed() {
		span.SetAttributes(telemetry.EngineResultAttributes("load", r.String())...)
		span.SetStatus(codes.Error, "load")
		return false
	}
	s.machine.MarkLoaded(item)
	logger.Info().Str(xglog.FieldURI, resolved).Str(xglog.FieldEvent, "session.loaded").Msg("media loaded")
	return true
}

// Play starts playback. A non-empty item that differs from the current one,
// or any item while nothing is loaded, is loaded first. Play with "" resumes.
func (s *Session) Play(ctx context.Context, item string) bool {
	ctx, span, logger := s.startSpan(ctx, "session.Play")
	defer span.End()
	if !s.enabled {
		span.SetStatus(codes.Error, ErrNotEnabled.Error())
		return false
	}

	item = strings.TrimSpace(item)
	if item != "" && (item != s.machine.CurrentItem() || !s.machine.Loaded()) {
		if !s.load(ctx, span, logger, item) {
			return false
		}
	}
	if !s.machine.Loaded() {
		return false
	}
	return !s.handle.Play().Failed()
}

func (s *Session) Pause(ctx context.Context) bool {
	_, span, _ := s.startSpan(ctx, "session.Pause")
	defer span.End()
	if !s.enabled {
		return false
	}
	return !s.handle.Pause().Failed()
}

// Stop halts playback and forgets the current item. It never fails.
func (s *Session) Stop(ctx context.Context) {
	_, span, _ := s.startSpan(ctx, "session.Stop")
	defer span.End()
	if !s.enabled {
		return
	}
	from := s.machine.State()
	s.stop()
	span.SetAttributes(telemetry.StateAttributes(from.String(), s.machine.State().String())...)
}

func (s *Session) stop() {
	s.handle.Stop()
	s.machine.Reset()
	s.frames.Clear()
}

// SeekTo moves the playback position to ticks (100ns units).
func (s *Session) SeekTo(ticks int64) bool {
	if !s.enabled {
		return false
	}
	return !s.handle.SeekTo(ticks).Failed()
}

// SetVolume clamps volume to [0,1] and applies it.
func (s *Session) SetVolume(volume float64) {
	s.settings.Volume = clampVolume(volume)
	if s.enabled {
		s.handle.SetVolume(s.settings.Volume)
	}
}

func (s *Session) Volume() float64 { return s.settings.Volume }

// Duration returns zero when unknown.
func (s *Session) Duration() time.Duration {
	d, _ := s.durationAndPosition()
	return d
}

func (s *Session) Position() time.Duration {
	_, p := s.durationAndPosition()
	return p
}

func (s *Session) durationAndPosition() (time.Duration, time.Duration) {
	if !s.enabled {
		return 0, 0
	}
	d, p, r := s.handle.DurationAndPosition()
	if r.Failed() {
		return 0, 0
	}
	return model.TicksToDuration(d), model.TicksToDuration(p)
}

func (s *Session) State() model.PlaybackState { return s.machine.State() }

func (s *Session) Description() model.MediaDescription { return s.machine.Description() }

func (s *Session) VideoWidth() uint32 { return s.machine.Description().Width }

func (s *Session) VideoHeight() uint32 { return s.machine.Description().Height }

func (s *Session) IsStereo() bool { return s.machine.Description().Stereoscopic }

// IsReady reports whether an item is loaded on a live engine instance.
func (s *Session) IsReady() bool {
	return s.enabled && s.handle.Created() && s.machine.Loaded()
}

func (s *Session) CurrentItem() string { return s.machine.CurrentItem() }

func (s *Session) IsHardware4KDecodingSupported() bool {
	if !s.enabled {
		return false
	}
	ok, _ := s.handle.IsHardware4KDecodingSupported()
	return ok
}

func (s *Session) SubtitleTrackCount() uint32 {
	if !s.enabled {
		return 0
	}
	return s.subs.TrackCount()
}

func (s *Session) SubtitleTrack(index uint32) (model.SubtitleTrack, error) {
	if !s.enabled {
		return model.SubtitleTrack{}, ErrNotEnabled
	}
	return s.subs.TrackAt(index)
}

func (s *Session) SubtitleTracks() []model.SubtitleTrack {
	if !s.enabled {
		return nil
	}
	return s.subs.Tracks()
}

// FrameBuffer returns the installed frame buffer.
func (s *Session) FrameBuffer() (model.FrameBuffer, bool) {
	if s.frames == nil {
		return model.FrameBuffer{}, false
	}
	return s.frames.Current()
}

// AcquireFrameBuffer pins the frame buffer for a renderer; see
// framebuffer.Manager.Acquire.
func (s *Session) AcquireFrameBuffer() (model.FrameBuffer, func(), bool) {
	if s.frames == nil {
		return model.FrameBuffer{}, func() {}, false
	}
	return s.frames.Acquire()
}

// PresetLicense pre-populates the DRM request for following load cycles.
func (s *Session) PresetLicense(req model.LicenseRequest) {
	s.preset = &req
	if s.drm != nil {
		s.drm.Preset(req)
	}
}

// LicenseRequest returns the DRM request of the current load cycle.
func (s *Session) LicenseRequest() *model.LicenseRequest {
	if s.drm == nil {
		return nil
	}
	return s.drm.Request()
}

// Apply updates the reloadable settings.
func (s *Session) Apply(ctx context.Context, settings Settings) {
	settings = clampSettings(settings)
	s.applySettings(settings)
	if s.enabled {
		s.handle.SetVolume(settings.Volume)
		s.drm.SetEnabled(settings.DRMEnabled)
	}
	logger := xglog.WithContext(s.Context(ctx), s.base)
	logger.Info().
		Float64("volume", settings.Volume).
		Str(xglog.FieldLanguage, settings.SubtitleLanguage).
		Bool("drm", settings.DRMEnabled).
		Str(xglog.FieldEvent, "session.settings_applied").
		Msg("settings applied")
}

func (s *Session) applySettings(settings Settings) {
	s.settings = settings
	s.tracker.SetLanguage(settings.SubtitleLanguage)
}

// fillLicenseFromSettings is the first DRM observer; host observers run
// after it and may override.
func (s *Session) fillLicenseFromSettings(req *model.LicenseRequest) {
	drm.ConfigHandler(s.settings.LicenseServiceURL, s.settings.CustomChallengeData)(req)
}

// DefaultSettings plays at full volume with DRM and subtitle filtering off.
func DefaultSettings() Settings {
	return Settings{Volume: 1}
}

func clampSettings(s Settings) Settings {
	s.Volume = clampVolume(s.Volume)
	return s
}

func clampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

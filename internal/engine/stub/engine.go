// Package stub is an in-process engine used by the daemon and by tests. It
// simulates opening, playback progress, end of stream, subtitle cues and DRM
// license requests, and calls back from its own goroutine.
package stub

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/ManuGH/playcore/internal/engine"
	"github.com/ManuGH/playcore/internal/model"
	"github.com/google/uuid"
)

// Cue is a scripted subtitle cue active in [Start, End).
type Cue struct {
	Start time.Duration
	End   time.Duration
	Cue   model.SubtitleCue
}

// Options shapes every media item the stub opens.
type Options struct {
	// AutoEvents makes commands emit the notifications a real engine would.
	// When false only injected notifications are delivered.
	AutoEvents bool

	Duration       time.Duration
	Width          uint32
	Height         uint32
	Stereoscopic   bool
	Seekable       bool
	RequireLicense bool
	Hardware4K     bool
	Tracks         []model.SubtitleTrack
	Cues           []Cue
}

// DefaultOptions describes a short seekable 1080p item.
func DefaultOptions() Options {
	return Options{
		AutoEvents: true,
		Duration:   30 * time.Second,
		Width:      1920,
		Height:     1080,
		Seekable:   true,
	}
}

// Library creates stub engines.
type Library struct {
	mu        sync.Mutex
	opts      Options
	createErr engine.Result
	instances []*Engine
}

func NewLibrary(opts Options) *Library {
	return &Library{opts: opts}
}

// FailCreate makes subsequent Create calls return r. OK restores success.
func (l *Library) FailCreate(r engine.Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.createErr = r
}

func (l *Library) Create(token engine.Token, onState engine.StateFunc) (engine.Instance, engine.Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.createErr.Failed() {
		return nil, l.createErr
	}
	e := newEngine(token, onState, l.opts)
	l.instances = append(l.instances, e)
	return e, engine.OK
}

// Last returns the most recently created engine, or nil.
func (l *Library) Last() *Engine {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.instances) == 0 {
		return nil
	}
	return l.instances[len(l.instances)-1]
}

// Created returns how many engines the library has handed out.
func (l *Library) Created() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.instances)
}

// Engine is one simulated engine instance.
type Engine struct {
	mu   sync.Mutex
	opts Options
	emit *emitter

	token        engine.Token
	onState      engine.StateFunc
	onLicense    engine.LicenseFunc
	onCueEntered engine.CueEnteredFunc
	onCueExited  engine.CueExitedFunc

	uri      string
	state    model.PlaybackState
	desc     model.MediaDescription
	position time.Duration
	volume   float64
	ref      uintptr
	active   map[int]bool

	licenseURL    string
	licenseCustom string

	forced   map[string]engine.Result
	calls    map[string]int
	released bool
}

func newEngine(token engine.Token, onState engine.StateFunc, opts Options) *Engine {
	return &Engine{
		opts:    opts,
		emit:    newEmitter(),
		token:   token,
		onState: onState,
		volume:  1,
		active:  make(map[int]bool),
		forced:  make(map[string]engine.Result),
		calls:   make(map[string]int),
	}
}

// newRef derives a non-zero native reference from a random UUID.
func newRef() uintptr {
	u := uuid.New()
	ref := uintptr(binary.BigEndian.Uint64(u[:8]))
	if ref == 0 {
		ref = 1
	}
	return ref
}

// begin records a call and returns the forced result for op, if any.
// Callers hold e.mu.
func (e *Engine) begin(op string) engine.Result {
	e.calls[op]++
	if e.released {
		return engine.ResultReleased
	}
	return e.forced[op]
}

// Fail forces op to return r until cleared with OK.
func (e *Engine) Fail(op string, r engine.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r.Failed() {
		e.forced[op] = r
		return
	}
	delete(e.forced, op)
}

// Calls returns how often op was invoked.
func (e *Engine) Calls(op string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[op]
}

func (e *Engine) Token() engine.Token { return e.token }

func (e *Engine) URI() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.uri
}

func (e *Engine) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

// License returns the last license submitted with SetDRMLicense.
func (e *Engine) License() (serviceURL, customChallengeData string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.licenseURL, e.licenseCustom
}

func (e *Engine) Released() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.released
}

// Pending returns the number of callbacks not yet delivered.
func (e *Engine) Pending() int {
	return e.emit.pending()
}

// notify queues a state notification. Callers hold e.mu.
func (e *Engine) notify(args engine.StateArgs) {
	fn, tok := e.onState, e.token
	if fn == nil {
		return
	}
	e.emit.push(func() { fn(tok, args) })
}

func (e *Engine) notifyState(s model.PlaybackState) {
	e.state = s
	e.notify(engine.StateArgs{Type: engine.StateTypeStateChanged, State: s, Description: e.desc})
}

func (e *Engine) Load(uri string) engine.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r := e.begin("load"); r.Failed() {
		return r
	}
	if uri == "" {
		return engine.ResultInvalidArg
	}
	e.uri = uri
	e.position = 0
	e.active = make(map[int]bool)
	e.desc = model.MediaDescription{
		Width:         e.opts.Width,
		Height:        e.opts.Height,
		DurationTicks: model.DurationToTicks(e.opts.Duration),
		Seekable:      e.opts.Seekable,
		Stereoscopic:  e.opts.Stereoscopic,
	}
	e.ref = newRef()
	if !e.opts.AutoEvents {
		return engine.OK
	}

	e.notifyState(model.StateOpening)
	if e.opts.RequireLicense {
		e.requestLicense()
	}
	e.notify(engine.StateArgs{Type: engine.StateTypeOpened, Description: e.desc})
	e.notifyState(model.StateBuffering)
	e.notifyState(model.StatePaused)
	e.notify(engine.StateArgs{Type: engine.StateTypeNewFrameTexture, Description: e.desc})
	return engine.OK
}

func (e *Engine) Play() engine.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r := e.begin("play"); r.Failed() {
		return r
	}
	if e.uri == "" {
		return engine.OK
	}
	if e.opts.AutoEvents {
		e.notifyState(model.StatePlaying)
	} else {
		e.state = model.StatePlaying
	}
	return engine.OK
}

func (e *Engine) Pause() engine.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r := e.begin("pause"); r.Failed() {
		return r
	}
	if e.uri == "" {
		return engine.OK
	}
	if e.opts.AutoEvents {
		e.notifyState(model.StatePaused)
	} else {
		e.state = model.StatePaused
	}
	return engine.OK
}

func (e *Engine) Stop() engine.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r := e.begin("stop"); r.Failed() {
		return r
	}
	hadItem := e.uri != ""
	e.reset()
	if hadItem && e.opts.AutoEvents {
		e.notifyState(model.StateNone)
	}
	return engine.OK
}

// reset forgets the current item. Callers hold e.mu.
func (e *Engine) reset() {
	e.uri = ""
	e.state = model.StateNone
	e.desc = model.MediaDescription{}
	e.position = 0
	e.ref = 0
	e.active = make(map[int]bool)
}

func (e *Engine) SeekTo(ticks int64) engine.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r := e.begin("seek"); r.Failed() {
		return r
	}
	if e.uri == "" || !e.desc.Seekable || ticks < 0 || ticks > e.desc.DurationTicks {
		return engine.ResultInvalidArg
	}
	e.position = model.TicksToDuration(ticks)
	return engine.OK
}

func (e *Engine) SetVolume(volume float64) engine.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r := e.begin("set_volume"); r.Failed() {
		return r
	}
	if volume < 0 || volume > 1 {
		return engine.ResultInvalidArg
	}
	e.volume = volume
	return engine.OK
}

func (e *Engine) DurationAndPosition() (duration, position int64, r engine.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r := e.begin("duration_and_position"); r.Failed() {
		return 0, 0, r
	}
	return e.desc.DurationTicks, model.DurationToTicks(e.position), engine.OK
}

func (e *Engine) FrameBuffer() (nativeRef uintptr, stereoscopic bool, r engine.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r := e.begin("frame_buffer"); r.Failed() {
		return 0, false, r
	}
	return e.ref, e.desc.Stereoscopic, engine.OK
}

func (e *Engine) SetDRMLicenseCallback(fn engine.LicenseFunc) engine.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r := e.begin("set_drm_license_callback"); r.Failed() {
		return r
	}
	e.onLicense = fn
	return engine.OK
}

func (e *Engine) SetDRMLicense(serviceURL, customChallengeData string) engine.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r := e.begin("set_drm_license"); r.Failed() {
		return r
	}
	e.licenseURL = serviceURL
	e.licenseCustom = customChallengeData
	return engine.OK
}

func (e *Engine) SetSubtitleCallbacks(entered engine.CueEnteredFunc, exited engine.CueExitedFunc) engine.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r := e.begin("set_subtitle_callbacks"); r.Failed() {
		return r
	}
	e.onCueEntered = entered
	e.onCueExited = exited
	return engine.OK
}

func (e *Engine) SubtitleTrackCount() (uint32, engine.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r := e.begin("subtitle_track_count"); r.Failed() {
		return 0, r
	}
	if e.uri == "" {
		return 0, engine.OK
	}
	return uint32(len(e.opts.Tracks)), engine.OK
}

func (e *Engine) SubtitleTrack(index uint32) (model.SubtitleTrack, engine.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r := e.begin("subtitle_track"); r.Failed() {
		return model.SubtitleTrack{}, r
	}
	if e.uri == "" || int(index) >= len(e.opts.Tracks) {
		return model.SubtitleTrack{}, engine.ResultInvalidArg
	}
	return e.opts.Tracks[index], engine.OK
}

// PumpFrame advances the playback clock while playing, fires scripted cues
// and reports end of stream as a bare None.
func (e *Engine) PumpFrame(elapsed time.Duration) engine.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r := e.begin("pump_frame"); r.Failed() {
		return r
	}
	if e.state != model.StatePlaying || elapsed <= 0 {
		return engine.OK
	}
	e.position += elapsed
	e.checkCues()

	if e.opts.Duration > 0 && e.position >= e.opts.Duration {
		e.position = e.opts.Duration
		if e.opts.AutoEvents {
			e.notifyState(model.StateNone)
		} else {
			e.state = model.StateNone
		}
		e.uri = ""
		e.active = make(map[int]bool)
	}
	return engine.OK
}

// checkCues emits enter/exit for scripted cues crossing the clock.
// Callers hold e.mu.
func (e *Engine) checkCues() {
	for i, c := range e.opts.Cues {
		in := e.position >= c.Start && e.position < c.End
		switch {
		case in && !e.active[i]:
			e.active[i] = true
			e.enterCue(c.Cue)
		case !in && e.active[i]:
			delete(e.active, i)
			e.exitCue(c.Cue.TrackID, c.Cue.CueID)
		}
	}
}

func (e *Engine) enterCue(cue model.SubtitleCue) {
	fn, tok := e.onCueEntered, e.token
	if fn == nil {
		return
	}
	cue.Lines = append([]string(nil), cue.Lines...)
	e.emit.push(func() { fn(tok, cue) })
}

func (e *Engine) exitCue(trackID, cueID string) {
	fn, tok := e.onCueExited, e.token
	if fn == nil {
		return
	}
	e.emit.push(func() { fn(tok, trackID, cueID) })
}

func (e *Engine) requestLicense() {
	fn, tok := e.onLicense, e.token
	if fn == nil {
		return
	}
	e.emit.push(func() { fn(tok) })
}

func (e *Engine) IsHardware4KDecodingSupported() (bool, engine.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r := e.begin("hw_4k_decoding"); r.Failed() {
		return false, r
	}
	return e.opts.Hardware4K, engine.OK
}

// Release stops callback delivery. Undelivered callbacks are discarded.
func (e *Engine) Release() {
	e.mu.Lock()
	e.calls["release"]++
	e.released = true
	e.reset()
	e.mu.Unlock()
	e.emit.close()
}

// Inject delivers an arbitrary state notification.
func (e *Engine) Inject(args engine.StateArgs) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notify(args)
}

// InjectCueEntered delivers a cue-entered notification.
func (e *Engine) InjectCueEntered(cue model.SubtitleCue) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enterCue(cue)
}

// InjectCueExited delivers a cue-exited notification.
func (e *Engine) InjectCueExited(trackID, cueID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exitCue(trackID, cueID)
}

// RequestLicense delivers a DRM license request.
func (e *Engine) RequestLicense() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requestLicense()
}

// Resize changes the decoded geometry and announces a new frame texture.
func (e *Engine) Resize(width, height uint32, stereoscopic bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.desc.Width = width
	e.desc.Height = height
	e.desc.Stereoscopic = stereoscopic
	e.ref = newRef()
	e.notify(engine.StateArgs{Type: engine.StateTypeNewFrameTexture, Description: e.desc})
}

// DeviceLost announces a graphics device shutdown.
func (e *Engine) DeviceLost() {
	e.Inject(engine.StateArgs{Type: engine.StateTypeGraphicsDeviceShutdown})
}

// DeviceReady announces a recreated graphics device with a fresh native ref.
func (e *Engine) DeviceReady() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.uri != "" {
		e.ref = newRef()
	}
	e.notify(engine.StateArgs{Type: engine.StateTypeGraphicsDeviceReady})
}

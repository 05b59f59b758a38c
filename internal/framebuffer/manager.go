// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package framebuffer manages the GPU-visible frame buffer shared between the
// engine and the renderer.
package framebuffer

import (
	"fmt"
	"sync"

	"github.com/ManuGH/playcore/internal/engine"
	xglog "github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/metrics"
	"github.com/ManuGH/playcore/internal/model"
	"github.com/rs/zerolog"
)

// Source reports the engine's current native frame buffer.
type Source interface {
	FrameBuffer() (nativeRef uintptr, stereoscopic bool, r engine.Result)
}

// Renderer owns the graphics side of a frame buffer.
type Renderer interface {
	DestroyFrameBuffer(fb model.FrameBuffer) error
	ClearFrameBuffer(fb model.FrameBuffer) error
}

// Manager installs, supersedes and retires frame buffers. Install and
// teardown happen on the owner goroutine; Acquire may be called from any
// goroutine.
type Manager struct {
	mu       sync.Mutex
	source   Source
	renderer Renderer
	emit     func(model.FrameBuffer)
	logger   zerolog.Logger

	current    *slot
	retired    []*slot
	generation uint64
	invalid    bool
	lastWidth  uint32
	lastHeight uint32
}

type slot struct {
	fb      model.FrameBuffer
	refs    int
	retired bool
}

// New creates a manager. renderer and emit may be nil.
func New(source Source, renderer Renderer, emit func(model.FrameBuffer), logger zerolog.Logger) *Manager {
	return &Manager{
		source:   source,
		renderer: renderer,
		emit:     emit,
		logger:   logger,
	}
}

// EnsureBuffer makes sure a buffer matching width x height is installed. A
// geometry or stereoscopic change creates a new buffer and retires the old
// one after TextureUpdated has been raised.
func (m *Manager) EnsureBuffer(width, height uint32) (model.FrameBuffer, bool) {
	if m.source == nil {
		return model.FrameBuffer{}, false
	}
	ref, stereo, r := m.source.FrameBuffer()
	if r.Failed() || ref == 0 {
		return model.FrameBuffer{}, false
	}

	m.mu.Lock()
	m.lastWidth, m.lastHeight = width, height
	m.invalid = false

	var old *slot
	cur := m.current
	if cur == nil || cur.fb.Width != width || cur.fb.Height != height || cur.fb.Stereoscopic != stereo {
		m.generation++
		old = cur
		cur = &slot{fb: model.FrameBuffer{
			Width:        width,
			Height:       height,
			NativeRef:    ref,
			Stereoscopic: stereo,
			Generation:   m.generation,
		}}
		m.current = cur
		metrics.FrameBuffersCreatedTotal.Inc()
		m.logger.Debug().
			Str(xglog.FieldResolution, fmt.Sprintf("%dx%d", width, height)).
			Bool(xglog.FieldStereo, stereo).
			Uint64(xglog.FieldGeneration, cur.fb.Generation).
			Str(xglog.FieldEvent, "framebuffer.created").
			Msg("frame buffer created")
	} else {
		cur.fb.NativeRef = ref
	}
	fb := cur.fb
	m.mu.Unlock()

	if m.emit != nil {
		m.emit(fb)
	}
	if old != nil {
		m.retire(old)
	}
	return fb, true
}

// Current returns the installed buffer.
func (m *Manager) Current() (model.FrameBuffer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || m.invalid {
		return model.FrameBuffer{}, false
	}
	return m.current.fb, true
}

// Acquire pins the current buffer. It stays alive until release is called,
// even if superseded in the meantime. release is idempotent.
func (m *Manager) Acquire() (model.FrameBuffer, func(), bool) {
	m.mu.Lock()
	s := m.current
	if s == nil || m.invalid {
		m.mu.Unlock()
		return model.FrameBuffer{}, func() {}, false
	}
	s.refs++
	fb := s.fb
	m.mu.Unlock()

	var once sync.Once
	return fb, func() { once.Do(func() { m.release(s) }) }, true
}

func (m *Manager) release(s *slot) {
	m.mu.Lock()
	s.refs--
	destroy := s.retired && s.refs == 0 && m.unlinkRetired(s)
	m.mu.Unlock()
	if destroy {
		m.destroy(s.fb)
	}
}

// retire destroys s now, or once its last consumer releases it.
func (m *Manager) retire(s *slot) {
	m.mu.Lock()
	s.retired = true
	if s.refs > 0 {
		m.retired = append(m.retired, s)
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	m.destroy(s.fb)
}

// unlinkRetired removes s from the retired list. Callers hold m.mu.
func (m *Manager) unlinkRetired(s *slot) bool {
	for i, r := range m.retired {
		if r == s {
			m.retired = append(m.retired[:i], m.retired[i+1:]...)
			return true
		}
	}
	return false
}

// Retired returns the number of superseded buffers still pinned.
func (m *Manager) Retired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.retired)
}

func (m *Manager) destroy(fb model.FrameBuffer) {
	if m.renderer == nil {
		return
	}
	if err := m.renderer.DestroyFrameBuffer(fb); err != nil {
		metrics.FrameBufferDestroyFailuresTotal.Inc()
		m.logger.Warn().
			Err(err).
			Uint64(xglog.FieldGeneration, fb.Generation).
			Str(xglog.FieldEvent, "framebuffer.destroy_failed").
			Msg("frame buffer destroy failed")
	}
}

// OnDeviceLost marks the current buffer unusable without freeing it.
func (m *Manager) OnDeviceLost() {
	m.mu.Lock()
	m.invalid = m.current != nil
	m.mu.Unlock()
	m.logger.Info().Str(xglog.FieldEvent, "framebuffer.device_lost").Msg("graphics device lost")
}

// OnDeviceReady revalidates the buffer after a device loss. When the engine
// still reports the same native ref and layout, the buffer is kept in place;
// otherwise a new one is built with the last known geometry.
func (m *Manager) OnDeviceReady() (model.FrameBuffer, bool) {
	m.mu.Lock()
	if !m.invalid || m.source == nil {
		m.mu.Unlock()
		return model.FrameBuffer{}, false
	}
	w, h := m.lastWidth, m.lastHeight
	old := m.current
	m.mu.Unlock()

	ref, stereo, r := m.source.FrameBuffer()
	if r.Failed() || ref == 0 {
		return model.FrameBuffer{}, false
	}
	if old != nil && old.fb.NativeRef == ref && old.fb.Stereoscopic == stereo {
		m.mu.Lock()
		m.invalid = false
		fb := old.fb
		m.mu.Unlock()
		m.logger.Debug().
			Uint64(xglog.FieldGeneration, fb.Generation).
			Str(xglog.FieldEvent, "framebuffer.restored").
			Msg("frame buffer restored")
		if m.emit != nil {
			m.emit(fb)
		}
		return fb, true
	}

	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
	fb, ok := m.EnsureBuffer(w, h)
	if !ok {
		m.mu.Lock()
		if m.current == nil {
			m.current = old
		}
		m.mu.Unlock()
		return fb, false
	}
	if old != nil {
		m.retire(old)
	}
	return fb, true
}

// Clear paints the current buffer black. Failures are logged.
func (m *Manager) Clear() {
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()
	if s == nil || m.renderer == nil {
		return
	}
	if err := m.renderer.ClearFrameBuffer(s.fb); err != nil {
		m.logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "framebuffer.clear_failed").
			Msg("frame buffer clear failed")
	}
}

// Close destroys the current and every retired buffer regardless of
// outstanding references.
func (m *Manager) Close() {
	m.mu.Lock()
	var doomed []*slot
	if m.current != nil {
		doomed = append(doomed, m.current)
	}
	doomed = append(doomed, m.retired...)
	for _, s := range doomed {
		s.retired = true
	}
	m.current = nil
	m.retired = nil
	m.invalid = false
	m.mu.Unlock()

	for _, s := range doomed {
		m.destroy(s.fb)
	}
}

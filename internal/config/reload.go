// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"sync"
	"time"

	xglog "github.com/ManuGH/playcore/internal/log"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce coalesces bursts of file events into one reload.
const DefaultDebounce = 500 * time.Millisecond

// Holder holds configuration with atomic reloading capability.
// It provides thread-safe access to configuration and supports hot reloading
// from file or manual trigger.
type Holder struct {
	mu      sync.RWMutex
	current Config
	loader  *Loader
	logger  zerolog.Logger

	debounce time.Duration
	watcher  *fsnotify.Watcher
	wg       sync.WaitGroup
	stopOnce sync.Once

	listenersMu sync.RWMutex
	listeners   []chan<- Config
}

// NewHolder creates a new configuration holder with initial config.
func NewHolder(initial Config, loader *Loader) *Holder {
	return &Holder{
		current:  initial,
		loader:   loader,
		logger:   xglog.WithComponent("config"),
		debounce: DefaultDebounce,
	}
}

// SetDebounce changes the watcher debounce; call before StartWatcher.
func (h *Holder) SetDebounce(d time.Duration) {
	if d > 0 {
		h.debounce = d
	}
}

// Get returns the current configuration (thread-safe read).
func (h *Holder) Get() Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload reloads and validates configuration. On failure the old configuration is kept.
func (h *Holder) Reload(_ context.Context) error {
	h.logger.Info().Str(xglog.FieldEvent, "config.reload_start").Msg("reloading configuration")

	newCfg, err := h.loader.Load()
	if err != nil {
		h.logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "config.reload_failed").
			Msg("failed to load new configuration")
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.current
	h.current = newCfg
	h.mu.Unlock()

	h.notifyListeners(newCfg)
	h.logChanges(oldCfg, newCfg)

	h.logger.Info().
		Str(xglog.FieldEvent, "config.reload_success").
		Msg("configuration reloaded successfully")
	return nil
}

// StartWatcher watches the config file for changes.
// If the loader has no file, this is a no-op (config comes from ENV only).
// The parent directory is watched so editors that replace the file are seen.
func (h *Holder) StartWatcher(ctx context.Context) error {
	path := h.loader.Path()
	if path == "" {
		h.logger.Info().
			Str(xglog.FieldEvent, "config.watcher_disabled").
			Msg("config file watcher disabled (using ENV-only configuration)")
		return nil
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}
	h.watcher = watcher

	h.logger.Info().
		Str(xglog.FieldEvent, "config.watcher_started").
		Str("path", path).
		Msg("watching config file for changes")

	h.wg.Add(1)
	go h.watchLoop(ctx, watcher, path)
	return nil
}

func (h *Holder) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string) {
	defer h.wg.Done()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str(xglog.FieldEvent, "config.watcher_stopped").Msg("config watcher stopped")
			_ = watcher.Close()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			h.logger.Debug().
				Str(xglog.FieldEvent, "config.file_changed").
				Str("op", event.Op.String()).
				Msg("config file changed")

			if timer == nil {
				timer = time.NewTimer(h.debounce)
			} else {
				timer.Reset(h.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if err := h.Reload(ctx); err != nil {
				h.logger.Error().
					Err(err).
					Str(xglog.FieldEvent, "config.auto_reload_failed").
					Msg("automatic config reload failed")
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "config.watcher_error").
				Msg("config watcher error")
		}
	}
}

// Stop stops the config watcher (if running) and waits for it to exit.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		if h.watcher != nil {
			_ = h.watcher.Close()
		}
	})
	h.wg.Wait()
}

// RegisterListener registers a channel to receive config reload notifications.
// The channel will receive the new config whenever a reload succeeds.
// The caller is responsible for closing the channel.
func (h *Holder) RegisterListener(ch chan<- Config) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	h.listeners = append(h.listeners, ch)
}

// notifyListeners sends the new config to all registered listeners (non-blocking).
func (h *Holder) notifyListeners(newCfg Config) {
	h.listenersMu.RLock()
	defer h.listenersMu.RUnlock()

	for _, ch := range h.listeners {
		select {
		case ch <- newCfg:
		default:
			h.logger.Warn().
				Str(xglog.FieldEvent, "config.listener_skip").
				Msg("skipped notifying listener (channel full)")
		}
	}
}

// RestartRequired lists changed fields that only take effect on restart.
func RestartRequired(old, newCfg Config) []string {
	var out []string
	if old.Assets.Root != newCfg.Assets.Root {
		out = append(out, "assets.root")
	}
	if old.Playback.TickRate != newCfg.Playback.TickRate {
		out = append(out, "playback.tickRate")
	}
	if old.Playback.TeardownTimeout != newCfg.Playback.TeardownTimeout {
		out = append(out, "playback.teardownTimeout")
	}
	if old.Playback.FrameWidth != newCfg.Playback.FrameWidth || old.Playback.FrameHeight != newCfg.Playback.FrameHeight {
		out = append(out, "playback.frameSize")
	}
	if old.API != newCfg.API {
		out = append(out, "api")
	}
	if old.Telemetry != newCfg.Telemetry {
		out = append(out, "telemetry")
	}
	return out
}

// logChanges logs the differences between old and new configuration.
func (h *Holder) logChanges(old, newCfg Config) {
	if old.Log.Level != newCfg.Log.Level {
		h.logger.Info().
			Str("old", old.Log.Level).
			Str("new", newCfg.Log.Level).
			Msg("config changed: log.level")
	}
	if old.Playback.Volume != newCfg.Playback.Volume {
		h.logger.Info().
			Float64("old", old.Playback.Volume).
			Float64("new", newCfg.Playback.Volume).
			Msg("config changed: playback.volume")
	}
	if old.DRM.Enabled != newCfg.DRM.Enabled {
		h.logger.Info().
			Bool("old", old.DRM.Enabled).
			Bool("new", newCfg.DRM.Enabled).
			Msg("config changed: drm.enabled")
	}
	if old.DRM.LicenseServiceURL != newCfg.DRM.LicenseServiceURL {
		h.logger.Info().
			Str("old", maskURL(old.DRM.LicenseServiceURL)).
			Str("new", maskURL(newCfg.DRM.LicenseServiceURL)).
			Msg("config changed: drm.licenseServiceURL")
	}
	if old.DRM.CustomChallengeData != newCfg.DRM.CustomChallengeData {
		h.logger.Info().Msg("config changed: drm.customChallengeData")
	}
	if old.Subtitles.Language != newCfg.Subtitles.Language {
		h.logger.Info().
			Str("old", old.Subtitles.Language).
			Str("new", newCfg.Subtitles.Language).
			Msg("config changed: subtitles.language")
	}
	if fields := RestartRequired(old, newCfg); len(fields) > 0 {
		h.logger.Warn().
			Strs("fields", fields).
			Str(xglog.FieldEvent, "config.restart_required").
			Msg("changed fields take effect after restart")
	}
}

// maskURL keeps only scheme and host of a URL for logging.
func maskURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "***redacted***"
	}
	return u.Scheme + "://" + u.Host
}

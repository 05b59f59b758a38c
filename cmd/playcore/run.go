// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/playcore/internal/config"
	controlhttp "github.com/ManuGH/playcore/internal/control/http"
	"github.com/ManuGH/playcore/internal/engine/stub"
	"github.com/ManuGH/playcore/internal/events"
	"github.com/ManuGH/playcore/internal/health"
	xglog "github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/session"
	"github.com/ManuGH/playcore/internal/telemetry"
	"github.com/ManuGH/playcore/internal/version"
)

const shutdownTimeout = 5 * time.Second

// run wires the session, the owner loop and the control API and blocks until
// ctx is canceled or one of them fails.
func run(ctx context.Context, cfg config.Config, holder *config.Holder, autoplay string) error {
	logger := xglog.WithComponent("daemon")

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		return fmt.Errorf("startup checks: %w", err)
	}

	tp, err := telemetry.NewProvider(ctx, telemetryConfig(cfg))
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(sctx); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	sess := session.New(session.Options{
		Library:         stub.NewLibrary(stub.DefaultOptions()),
		Bus:             events.NewBus(),
		AssetRoot:       cfg.Assets.Root,
		TeardownTimeout: cfg.Playback.TeardownTimeout,
		Settings:        settingsFromConfig(cfg),
		FrameWidth:      uint32(cfg.Playback.FrameWidth),
		FrameHeight:     uint32(cfg.Playback.FrameHeight),
	})

	reloads := make(chan config.Config, 1)
	holder.RegisterListener(reloads)
	if err := holder.StartWatcher(ctx); err != nil {
		logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watcher_failed").Msg("config hot reload disabled")
	}
	defer holder.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ownerLoop(gctx, sess, cfg.Playback.TickInterval(), reloads, autoplay)
	})

	if cfg.API.Listen != "" {
		hm := health.NewManager(version.Version)
		hm.RegisterChecker(health.NewDirChecker("assets", cfg.Assets.Root))
		api := controlhttp.New(controlhttp.Options{
			Session:        sess,
			RateLimit:      cfg.API.RateLimit,
			TracingService: tracingService(tp),
			Health:         hm,
		})
		srv := &http.Server{
			Addr:              cfg.API.Listen,
			Handler:           api.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return gctx },
		}
		g.Go(func() error {
			logger.Info().
				Str(xglog.FieldEvent, "api.listening").
				Str("addr", cfg.API.Listen).
				Msg("control API listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("control API: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	return g.Wait()
}

// ownerLoop is the single goroutine that owns the session: it enables it,
// ticks it at interval, applies config reloads and disables it on exit.
func ownerLoop(ctx context.Context, sess *session.Session, interval time.Duration, reloads <-chan config.Config, autoplay string) error {
	logger := xglog.WithComponent("owner")
	owner := context.WithoutCancel(ctx)

	if err := sess.Enable(owner); err != nil {
		return fmt.Errorf("enable session: %w", err)
	}
	defer func() {
		if err := sess.Disable(owner); err != nil {
			logger.Warn().Err(err).Msg("session disable failed")
		}
	}()

	if autoplay != "" && !sess.Play(owner, autoplay) {
		logger.Warn().Str(xglog.FieldURI, autoplay).Msg("autoplay rejected by engine")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg := <-reloads:
			applyReload(owner, sess, cfg)
		case now := <-ticker.C:
			sess.Tick(owner)
			sess.PumpFrame(now.Sub(last))
			last = now
		}
	}
}

func applyReload(ctx context.Context, sess *session.Session, cfg config.Config) {
	if err := xglog.SetLevel(cfg.Log.Level); err != nil {
		logger := xglog.WithComponent("owner")
		logger.Warn().Err(err).Msg("ignoring invalid log level")
	}
	sess.Apply(ctx, settingsFromConfig(cfg))
}

func settingsFromConfig(cfg config.Config) session.Settings {
	return session.Settings{
		Volume:              cfg.Playback.Volume,
		SubtitleLanguage:    cfg.Subtitles.Language,
		DRMEnabled:          cfg.DRM.Enabled,
		LicenseServiceURL:   cfg.DRM.LicenseServiceURL,
		CustomChallengeData: cfg.DRM.CustomChallengeData,
	}
}

func telemetryConfig(cfg config.Config) telemetry.Config {
	return telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "playcore",
		ServiceVersion: version.Version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	}
}

func tracingService(tp *telemetry.Provider) string {
	if tp.Enabled() {
		return "playcore"
	}
	return ""
}

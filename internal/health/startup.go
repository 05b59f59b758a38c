// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/rs/zerolog"

	"github.com/ManuGH/playcore/internal/config"
	"github.com/ManuGH/playcore/internal/log"
)

// PerformStartupChecks verifies the environment before the session starts.
// Hard failures return an error; questionable settings only warn.
func PerformStartupChecks(_ context.Context, cfg config.Config) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Str(log.FieldEvent, "startup.checks_begin").Msg("running startup checks")

	if err := checkAssetRoot(logger, cfg.Assets.Root); err != nil {
		return fmt.Errorf("asset root check failed: %w", err)
	}
	checkTargetedSettings(logger, cfg)

	logger.Info().Str(log.FieldEvent, "startup.checks_passed").Msg("all startup checks passed")
	return nil
}

func checkAssetRoot(logger zerolog.Logger, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	f, err := os.Open(path) // #nosec G304 -- path comes from operator config
	if err != nil {
		return fmt.Errorf("directory is not readable: %s (error: %v)", path, err)
	}
	_ = f.Close()

	logger.Info().Str("path", path).Msg("asset root is readable")
	return nil
}

func checkTargetedSettings(logger zerolog.Logger, cfg config.Config) {
	if cfg.API.Listen != "" {
		if host, _, err := net.SplitHostPort(cfg.API.Listen); err == nil && !isLoopback(host) {
			logger.Warn().
				Str("addr", cfg.API.Listen).
				Str(log.FieldEvent, "startup.api_exposed").
				Msg("control API has no authentication and listens on a non-loopback address")
		}
	}

	if cfg.DRM.Enabled && cfg.DRM.LicenseServiceURL == "" {
		logger.Warn().
			Str(log.FieldEvent, "startup.drm_no_license_url").
			Msg("DRM enabled without a license service URL; protected media needs a host observer")
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.SamplingRate == 0 {
		logger.Warn().
			Str(log.FieldEvent, "startup.tracing_sampling_zero").
			Msg("telemetry enabled with sampling rate 0; no spans will be exported")
	}
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

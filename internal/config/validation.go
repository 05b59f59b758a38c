// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/ManuGH/playcore/internal/validate"
)

const maxFrameDimension = 16384

// Validate checks a Config; the error lists every failing field.
func Validate(cfg Config) error {
	v := validate.New()

	v.LogLevel("log.level", cfg.Log.Level)
	v.NotEmpty("assets.root", cfg.Assets.Root)

	v.FloatRange("playback.volume", cfg.Playback.Volume, 0, 1)
	v.Range("playback.tickRate", cfg.Playback.TickRate, 1, 1000)
	v.DurationRange("playback.teardownTimeout", cfg.Playback.TeardownTimeout, 10*time.Millisecond, time.Minute)
	v.Range("playback.frameWidth", cfg.Playback.FrameWidth, 0, maxFrameDimension)
	v.Range("playback.frameHeight", cfg.Playback.FrameHeight, 0, maxFrameDimension)

	if cfg.DRM.LicenseServiceURL != "" {
		v.URL("drm.licenseServiceURL", cfg.DRM.LicenseServiceURL, []string{"http", "https"})
	}

	if cfg.API.Listen != "" {
		v.ListenAddr("api.listen", cfg.API.Listen)
	}
	v.NonNegative("api.rateLimit", cfg.API.RateLimit)

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("telemetry.samplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	return v.Err()
}

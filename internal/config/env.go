// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/playcore/internal/log"
	"github.com/rs/zerolog"
)

// Environment variables, applied after the config file.
const (
	EnvLogLevel            = "PLAYCORE_LOG_LEVEL"
	EnvAssetsRoot          = "PLAYCORE_ASSETS_ROOT"
	EnvVolume              = "PLAYCORE_VOLUME"
	EnvTickRate            = "PLAYCORE_TICK_RATE"
	EnvTeardownTimeout     = "PLAYCORE_TEARDOWN_TIMEOUT"
	EnvDRMEnabled          = "PLAYCORE_DRM_ENABLED"
	EnvLicenseServiceURL   = "PLAYCORE_DRM_LICENSE_URL"
	EnvCustomChallengeData = "PLAYCORE_DRM_CHALLENGE_SECRET"
	EnvSubtitleLanguage    = "PLAYCORE_SUBTITLE_LANGUAGE"
	EnvAPIListen           = "PLAYCORE_API_LISTEN"
	EnvAPIRateLimit        = "PLAYCORE_API_RATE_LIMIT"
	EnvTelemetryEnabled    = "PLAYCORE_TELEMETRY_ENABLED"
	EnvTelemetryExporter   = "PLAYCORE_OTLP_EXPORTER"
	EnvTelemetryEndpoint   = "PLAYCORE_OTLP_ENDPOINT"
	EnvTelemetrySampling   = "PLAYCORE_TRACE_SAMPLING_RATE"
)

func applyEnv(cfg *Config) {
	cfg.Log.Level = ParseString(EnvLogLevel, cfg.Log.Level)
	cfg.Assets.Root = ParseString(EnvAssetsRoot, cfg.Assets.Root)

	cfg.Playback.Volume = ParseFloat(EnvVolume, cfg.Playback.Volume)
	cfg.Playback.TickRate = ParseInt(EnvTickRate, cfg.Playback.TickRate)
	cfg.Playback.TeardownTimeout = ParseDuration(EnvTeardownTimeout, cfg.Playback.TeardownTimeout)

	cfg.DRM.Enabled = ParseBool(EnvDRMEnabled, cfg.DRM.Enabled)
	cfg.DRM.LicenseServiceURL = ParseString(EnvLicenseServiceURL, cfg.DRM.LicenseServiceURL)
	cfg.DRM.CustomChallengeData = ParseString(EnvCustomChallengeData, cfg.DRM.CustomChallengeData)

	cfg.Subtitles.Language = ParseString(EnvSubtitleLanguage, cfg.Subtitles.Language)

	cfg.API.Listen = ParseString(EnvAPIListen, cfg.API.Listen)
	cfg.API.RateLimit = ParseInt(EnvAPIRateLimit, cfg.API.RateLimit)

	cfg.Telemetry.Enabled = ParseBool(EnvTelemetryEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = ParseString(EnvTelemetryExporter, cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = ParseString(EnvTelemetryEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat(EnvTelemetrySampling, cfg.Telemetry.SamplingRate)
}

// ParseString reads a string from environment variable or returns default value.
// It logs the source (environment or default) for observability.
func ParseString(key, defaultValue string) string {
	return parseStringWithLogger(log.WithComponent("config"), key, defaultValue)
}

func parseStringWithLogger(logger zerolog.Logger, key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		switch {
		case value == "":
			logger.Debug().
				Str("key", key).
				Str("default", defaultValue).
				Str("source", "default").
				Msg("using default value (environment variable is empty)")
			return defaultValue
		case isSensitive(key):
			logger.Debug().
				Str("key", key).
				Str("source", "environment").
				Bool("sensitive", true).
				Msg("using environment variable")
		default:
			logger.Debug().
				Str("key", key).
				Str("value", value).
				Str("source", "environment").
				Msg("using environment variable")
		}
		return value
	}
	return defaultValue
}

func isSensitive(key string) bool {
	lowerKey := strings.ToLower(key)
	return strings.Contains(lowerKey, "token") ||
		strings.Contains(lowerKey, "password") ||
		strings.Contains(lowerKey, "secret")
}

// ParseInt reads an integer from environment variable or returns default value.
// It validates the input and falls back to default on parse errors.
func ParseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Int("default", defaultValue).
			Msg("invalid integer in environment variable, using default")
		return defaultValue
	}
	logger.Debug().
		Str("key", key).
		Int("value", i).
		Str("source", "environment").
		Msg("using environment variable")
	return i
}

// ParseFloat reads a float from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Float64("default", defaultValue).
			Msg("invalid float in environment variable, using default")
		return defaultValue
	}
	logger.Debug().
		Str("key", key).
		Float64("value", f).
		Str("source", "environment").
		Msg("using environment variable")
	return f
}

// ParseDuration reads a duration from environment variable in Go duration format (e.g. "5s").
// It falls back to default on parse errors or empty variables.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Dur("default", defaultValue).
			Msg("invalid duration in environment variable, using default")
		return defaultValue
	}
	logger.Debug().
		Str("key", key).
		Dur("value", d).
		Str("source", "environment").
		Msg("using environment variable")
	return d
}

// ParseBool reads a boolean from environment variable or returns default value.
// It accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	logger.Warn().
		Str("key", key).
		Str("value", v).
		Bool("default", defaultValue).
		Msg("invalid boolean in environment variable, using default")
	return defaultValue
}

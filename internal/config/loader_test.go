// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := NewLoader("").Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, time.Second/60, cfg.Playback.TickInterval())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, "playcore.yaml", `
log:
  level: debug
playback:
  volume: 0.5
  teardownTimeout: 750ms
drm:
  enabled: true
  licenseServiceURL: https://license.example.com/wv
subtitles:
  language: de
`)

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 0.5, cfg.Playback.Volume)
	assert.Equal(t, 750*time.Millisecond, cfg.Playback.TeardownTimeout)
	assert.True(t, cfg.DRM.Enabled)
	assert.Equal(t, "https://license.example.com/wv", cfg.DRM.LicenseServiceURL)
	assert.Equal(t, "de", cfg.Subtitles.Language)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, DefaultTickRate, cfg.Playback.TickRate)
	assert.Equal(t, DefaultListen, cfg.API.Listen)
	assert.Equal(t, DefaultExporter, cfg.Telemetry.Exporter)
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeConfig(t, "empty.yml", "")
	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoad_StrictUnknownField(t *testing.T) {
	path := writeConfig(t, "playcore.yaml", `
playback:
  volume: 0.5
  loop: true
`)
	_, err := NewLoader(path).Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownConfigField)
	assert.Contains(t, err.Error(), "loop")
}

func TestLoad_MultipleDocuments(t *testing.T) {
	path := writeConfig(t, "playcore.yaml", "log:\n  level: info\n---\nlog:\n  level: debug\n")
	_, err := NewLoader(path).Load()
	assert.ErrorIs(t, err, ErrMultipleDocuments)
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	path := writeConfig(t, "playcore.json", `{}`)
	_, err := NewLoader(path).Load()
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "missing.yaml")).Load()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "playcore.yaml", `
playback:
  volume: 0.5
  tickRate: 30
subtitles:
  language: de
`)
	t.Setenv(EnvVolume, "0.25")
	t.Setenv(EnvSubtitleLanguage, "en")
	t.Setenv(EnvDRMEnabled, "yes")
	t.Setenv(EnvTeardownTimeout, "3s")
	t.Setenv(EnvAPIListen, "")

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 0.25, cfg.Playback.Volume)
	assert.Equal(t, 30, cfg.Playback.TickRate, "file value without env override")
	assert.Equal(t, "en", cfg.Subtitles.Language)
	assert.True(t, cfg.DRM.Enabled)
	assert.Equal(t, 3*time.Second, cfg.Playback.TeardownTimeout)
	assert.Equal(t, DefaultListen, cfg.API.Listen, "empty env value keeps the previous value")
}

func TestLoad_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv(EnvTickRate, "fast")
	t.Setenv(EnvDRMEnabled, "maybe")
	t.Setenv(EnvVolume, "loud")

	cfg, err := NewLoader("").Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultTickRate, cfg.Playback.TickRate)
	assert.False(t, cfg.DRM.Enabled)
	assert.Equal(t, DefaultVolume, cfg.Playback.Volume)
}

func TestLoad_ValidationRunsAfterEnv(t *testing.T) {
	t.Setenv(EnvVolume, "2")
	_, err := NewLoader("").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "playback.volume")
}

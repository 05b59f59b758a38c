// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolder_ReloadNotifiesListeners(t *testing.T) {
	path := writeConfig(t, "playcore.yaml", "playback:\n  volume: 0.5\n")
	loader := NewLoader(path)
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(initial, loader)
	ch := make(chan Config, 1)
	h.RegisterListener(ch)

	require.NoError(t, os.WriteFile(path, []byte("playback:\n  volume: 0.2\n"), 0o600))
	require.NoError(t, h.Reload(context.Background()))

	assert.Equal(t, 0.2, h.Get().Playback.Volume)
	select {
	case got := <-ch:
		assert.Equal(t, 0.2, got.Playback.Volume)
	default:
		t.Fatal("listener was not notified")
	}
}

func TestHolder_FailedReloadKeepsOldConfig(t *testing.T) {
	path := writeConfig(t, "playcore.yaml", "playback:\n  volume: 0.5\n")
	loader := NewLoader(path)
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(initial, loader)
	ch := make(chan Config, 1)
	h.RegisterListener(ch)

	require.NoError(t, os.WriteFile(path, []byte("playback:\n  volume: 3\n"), 0o600))
	require.Error(t, h.Reload(context.Background()))
	assert.Equal(t, 0.5, h.Get().Playback.Volume)
	assert.Empty(t, ch)
}

func TestHolder_FullListenerIsSkipped(t *testing.T) {
	h := NewHolder(Defaults(), NewLoader(""))
	ch := make(chan Config) // unbuffered, nobody reading
	h.RegisterListener(ch)

	done := make(chan error, 1)
	go func() { done <- h.Reload(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Reload blocked on a full listener")
	}
}

func TestHolder_WatcherReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "playcore.yaml", "subtitles:\n  language: de\n")
	loader := NewLoader(path)
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(initial, loader)
	h.SetDebounce(20 * time.Millisecond)
	ch := make(chan Config, 4)
	h.RegisterListener(ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.StartWatcher(ctx))
	defer h.Stop()

	require.NoError(t, os.WriteFile(path, []byte("subtitles:\n  language: fr\n"), 0o600))

	select {
	case got := <-ch:
		assert.Equal(t, "fr", got.Subtitles.Language)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload the config")
	}
	assert.Equal(t, "fr", h.Get().Subtitles.Language)
}

func TestHolder_WatcherDisabledWithoutFile(t *testing.T) {
	h := NewHolder(Defaults(), NewLoader(""))
	require.NoError(t, h.StartWatcher(context.Background()))
	h.Stop()
}

func TestRestartRequired(t *testing.T) {
	old := Defaults()
	next := old
	next.Playback.Volume = 0.3
	next.Subtitles.Language = "en"
	assert.Empty(t, RestartRequired(old, next))

	next.API.Listen = ":9000"
	next.Playback.TickRate = 30
	assert.Equal(t, []string{"playback.tickRate", "api"}, RestartRequired(old, next))

	next.Playback.FrameWidth = 1280
	assert.Equal(t, []string{"playback.tickRate", "playback.frameSize", "api"}, RestartRequired(old, next))
}

func TestMaskURL(t *testing.T) {
	assert.Equal(t, "", maskURL(""))
	assert.Equal(t, "https://license.example.com", maskURL("https://user:pw@license.example.com/wv?token=abc"))
	assert.Equal(t, "***redacted***", maskURL("not a url"))
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveURI(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix paths")
	}
	tests := []struct {
		name string
		raw  string
		root string
		want string
	}{
		{"file uri unchanged", "file:///media/a.mp4", "/assets", "file:///media/a.mp4"},
		{"http unchanged", "https://cdn.example/v.m3u8", "/assets", "https://cdn.example/v.m3u8"},
		{"surrounding space trimmed", "  https://cdn.example/v.mpd \n", "", "https://cdn.example/v.mpd"},
		{"rooted path", "/media/a.mp4", "/assets", "file:///media/a.mp4"},
		{"escaped", "/media/my clip.mp4", "", "file:///media/my%20clip.mp4"},
		{"drive path", `C:\videos\a.mp4`, "/assets", "file:///C:/videos/a.mp4"},
		{"relative to root", "clips/a.mp4", "/assets", "file:///assets/clips/a.mp4"},
		{"cleaned", "./clips/../a.mp4", "/assets", "file:///assets/a.mp4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveURI(tt.raw, tt.root)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveURIRelativeRoot(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix paths")
	}
	got, err := ResolveURI("a.mp4", "assets")
	require.NoError(t, err)

	abs, err := filepath.Abs(filepath.Join("assets", "a.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "file://"+abs, got)
}

func TestResolveURIEmpty(t *testing.T) {
	_, err := ResolveURI("   ", "/assets")
	assert.ErrorIs(t, err, ErrEmptyURI)
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the playcore daemon configuration.
//
// Precedence is defaults, then the YAML file, then PLAYCORE_* environment
// variables. The file is parsed strictly: unknown keys and multiple YAML
// documents are rejected.
package config

import "time"

// Config is the complete daemon configuration.
type Config struct {
	Log       LogConfig       `yaml:"log" json:"log"`
	Assets    AssetsConfig    `yaml:"assets" json:"assets"`
	Playback  PlaybackConfig  `yaml:"playback" json:"playback"`
	DRM       DRMConfig       `yaml:"drm" json:"drm"`
	Subtitles SubtitlesConfig `yaml:"subtitles" json:"subtitles"`
	API       APIConfig       `yaml:"api" json:"api"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
}

type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// AssetsConfig sets the directory that relative media URIs resolve against.
type AssetsConfig struct {
	Root string `yaml:"root" json:"root"`
}

type PlaybackConfig struct {
	// Volume in [0,1]; reloadable.
	Volume float64 `yaml:"volume" json:"volume"`

	// TickRate is the owner loop frequency in Hz.
	TickRate        int           `yaml:"tickRate" json:"tickRate"`
	TeardownTimeout time.Duration `yaml:"teardownTimeout" json:"teardownTimeout"`

	// FrameWidth and FrameHeight size the frame buffer requested when the
	// session is enabled. Zero waits for the first media geometry.
	FrameWidth  int `yaml:"frameWidth" json:"frameWidth"`
	FrameHeight int `yaml:"frameHeight" json:"frameHeight"`
}

// TickInterval converts TickRate to the owner loop period.
func (p PlaybackConfig) TickInterval() time.Duration {
	if p.TickRate <= 0 {
		return time.Second / time.Duration(DefaultTickRate)
	}
	return time.Second / time.Duration(p.TickRate)
}

// DRMConfig presets license requests; all fields are reloadable.
type DRMConfig struct {
	Enabled             bool   `yaml:"enabled" json:"enabled"`
	LicenseServiceURL   string `yaml:"licenseServiceURL" json:"licenseServiceURL"`
	CustomChallengeData string `yaml:"customChallengeData" json:"customChallengeData"`
}

type SubtitlesConfig struct {
	// Language filters displayed cues; empty shows all tracks.
	Language string `yaml:"language" json:"language"`
}

type APIConfig struct {
	// Listen is the HTTP control API address; empty disables the API.
	Listen string `yaml:"listen" json:"listen"`

	// RateLimit is requests per minute per client IP; 0 disables limiting.
	RateLimit int `yaml:"rateLimit" json:"rateLimit"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"`
	Endpoint     string  `yaml:"endpoint" json:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate" json:"samplingRate"`
}

const (
	DefaultLogLevel        = "info"
	DefaultAssetsRoot      = "."
	DefaultVolume          = 1.0
	DefaultTickRate        = 60
	DefaultTeardownTimeout = 2 * time.Second
	DefaultListen          = "127.0.0.1:8088"
	DefaultRateLimit       = 600
	DefaultExporter        = "grpc"
	DefaultEndpoint        = "localhost:4317"
	DefaultSamplingRate    = 1.0
)

// Defaults returns the configuration used when neither file nor environment
// set a field.
func Defaults() Config {
	return Config{
		Log:    LogConfig{Level: DefaultLogLevel},
		Assets: AssetsConfig{Root: DefaultAssetsRoot},
		Playback: PlaybackConfig{
			Volume:          DefaultVolume,
			TickRate:        DefaultTickRate,
			TeardownTimeout: DefaultTeardownTimeout,
		},
		API: APIConfig{
			Listen:    DefaultListen,
			RateLimit: DefaultRateLimit,
		},
		Telemetry: TelemetryConfig{
			Exporter:     DefaultExporter,
			Endpoint:     DefaultEndpoint,
			SamplingRate: DefaultSamplingRate,
		},
	}
}

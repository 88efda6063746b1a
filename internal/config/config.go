// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Provide New() to build a Config with defaults.
//   - Nested sections map to dotted koanf keys (thresholds.stress) and to
//     double-underscore env vars (BEHAVIOR_THRESHOLDS__STRESS).
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// AnalysisIntervalMS is the minimum gap between analyzer calls.
	AnalysisIntervalMS int `koanf:"analysis_interval_ms"`

	// CooldownSeconds suppresses repeated recognition logs of one identity.
	CooldownSeconds int `koanf:"cooldown_seconds"`

	// IdentityThreshold is the minimum confidence (0..100) a recognition needs.
	IdentityThreshold float64 `koanf:"identity_threshold"`

	// HistorySize bounds the emotion history ring.
	HistorySize int `koanf:"history_size"`

	// RedrawIntervalMS paces the websocket snapshot stream.
	RedrawIntervalMS int `koanf:"redraw_interval_ms"`

	// ExportDir is where history CSV files are written.
	ExportDir string `koanf:"export_dir"`

	// SessionName prefixes export file names.
	SessionName string `koanf:"session_name"`

	Thresholds Thresholds `koanf:"thresholds"`
	Source     Source     `koanf:"source"`
	Analyzer   Analyzer   `koanf:"analyzer"`
	MQTT       MQTT       `koanf:"mqtt"`
}

// Thresholds holds the alert levels on the 0..100 score scale.
type Thresholds struct {
	Stress     float64 `koanf:"stress"`
	Engagement float64 `koanf:"engagement"`
	ExtremeJoy float64 `koanf:"extreme_joy"`
	// Focus is carried for dashboards; no alert evaluates it.
	Focus float64 `koanf:"focus"`
}

// Source selects and tunes the frame source.
type Source struct {
	// Kind is one of pattern, dir, webcam, gocv.
	Kind   string `koanf:"kind"`
	Device string `koanf:"device"`
	Dir    string `koanf:"dir"`
	Loop   bool   `koanf:"loop"`
	// Frames caps the pattern source; 0 means endless.
	Frames int `koanf:"frames"`
	Width  int `koanf:"width"`
	Height int `koanf:"height"`
	FPS    int `koanf:"fps"`
}

// Analyzer selects and tunes the face analyzer.
type Analyzer struct {
	// Kind is deepface or fake.
	Kind            string  `koanf:"kind"`
	URL             string  `koanf:"url"`
	Detector        string  `koanf:"detector"`
	Model           string  `koanf:"model"`
	TimeoutMS       int     `koanf:"timeout_ms"`
	GalleryDir      string  `koanf:"gallery_dir"`
	GalleryRefreshS int     `koanf:"gallery_refresh_s"`
	MaxDistance     float64 `koanf:"max_distance"`
}

// MQTT configures the optional event forwarder. An empty Broker disables it.
type MQTT struct {
	Broker      string `koanf:"broker"`
	ClientID    string `koanf:"client_id"`
	TopicPrefix string `koanf:"topic_prefix"`
	QoS         int    `koanf:"qos"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		AnalysisIntervalMS: 2000,
		CooldownSeconds:    30,
		IdentityThreshold:  80,
		HistorySize:        20,
		RedrawIntervalMS:   1000,
		ExportDir:          ".",
		SessionName:        "session",
		Thresholds: Thresholds{
			Stress:     40,
			Engagement: 70,
			ExtremeJoy: 85,
			Focus:      30,
		},
		Source: Source{
			Kind:   "pattern",
			Device: "/dev/video0",
			Width:  640,
			Height: 480,
			FPS:    15,
		},
		Analyzer: Analyzer{
			Kind:            "deepface",
			URL:             "http://localhost:5005",
			Detector:        "opencv",
			Model:           "VGG-Face",
			TimeoutMS:       10000,
			GalleryDir:      "face_database",
			GalleryRefreshS: 300,
			MaxDistance:     0.6,
		},
		MQTT: MQTT{
			ClientID:    "behavior",
			TopicPrefix: "behavior",
			QoS:         1,
		},
	}
}

// AnalysisInterval returns the analyzer cadence.
func (c *Config) AnalysisInterval() time.Duration {
	return time.Duration(c.AnalysisIntervalMS) * time.Millisecond
}

// Cooldown returns the recognition cooldown window.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// RedrawInterval returns the snapshot stream cadence.
func (c *Config) RedrawInterval() time.Duration {
	return time.Duration(c.RedrawIntervalMS) * time.Millisecond
}

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "BEHAVIOR_"
	envFileVar = envPrefix + "CONFIG"
)

var (
	sourceKinds   = map[string]bool{"pattern": true, "dir": true, "webcam": true, "gocv": true}
	analyzerKinds = map[string]bool{"deepface": true, "fake": true}
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if BEHAVIOR_CONFIG is set
//  3. env (prefix BEHAVIOR_, "__" separates nested keys)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// BEHAVIOR_COOLDOWN_SECONDS -> cooldown_seconds
	// BEHAVIOR_THRESHOLDS__STRESS -> thresholds.stress
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.AnalysisIntervalMS <= 0:
		return fmt.Errorf("%w: analysis_interval_ms must be positive", ErrInvalidConfig)
	case c.CooldownSeconds < 0:
		return fmt.Errorf("%w: cooldown_seconds must not be negative", ErrInvalidConfig)
	case c.IdentityThreshold < 0 || c.IdentityThreshold > 100:
		return fmt.Errorf("%w: identity_threshold must be within 0..100", ErrInvalidConfig)
	case c.HistorySize < 1:
		return fmt.Errorf("%w: history_size must be at least 1", ErrInvalidConfig)
	case c.RedrawIntervalMS <= 0:
		return fmt.Errorf("%w: redraw_interval_ms must be positive", ErrInvalidConfig)
	case !sourceKinds[c.Source.Kind]:
		return fmt.Errorf("%w: unknown source.kind %q", ErrInvalidConfig, c.Source.Kind)
	case c.Source.Kind == "dir" && c.Source.Dir == "":
		return fmt.Errorf("%w: source.dir is required for the dir source", ErrInvalidConfig)
	case !analyzerKinds[c.Analyzer.Kind]:
		return fmt.Errorf("%w: unknown analyzer.kind %q", ErrInvalidConfig, c.Analyzer.Kind)
	case c.Analyzer.Kind == "deepface" && c.Analyzer.URL == "":
		return fmt.Errorf("%w: analyzer.url is required for deepface", ErrInvalidConfig)
	case c.Analyzer.MaxDistance <= 0 || c.Analyzer.MaxDistance > 2:
		return fmt.Errorf("%w: analyzer.max_distance must be within (0, 2]", ErrInvalidConfig)
	case c.MQTT.QoS < 0 || c.MQTT.QoS > 2:
		return fmt.Errorf("%w: mqtt.qos must be 0, 1 or 2", ErrInvalidConfig)
	}
	return nil
}

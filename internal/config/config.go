// Package config holds the engine tunables and their defaults, with an
// optional YAML overlay for tooling.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config collects the flow-engine knobs a host application may tune.
type Config struct {
	// HeartsEnabled gates progression on the hearts pool. When false,
	// failed attempts cost nothing and the learner is never blocked.
	HeartsEnabled bool

	// RecordAttemptsWhileBlocked controls whether a failed attempt made
	// while already out of hearts is still reported to the server (for
	// analytics). Local advancement stays suppressed either way.
	RecordAttemptsWhileBlocked bool

	// SaveDebounce is the quiet period before the flow position is
	// persisted after a change.
	SaveDebounce time.Duration

	// HeartsPollInterval is the safety-net ledger refresh period.
	HeartsPollInterval time.Duration
}

// DefaultConfig returns the settings the production web client shipped with.
func DefaultConfig() Config {
	return Config{
		HeartsEnabled:              true,
		RecordAttemptsWhileBlocked: true,
		SaveDebounce:               2 * time.Second,
		HeartsPollInterval:         60 * time.Second,
	}
}

// fileConfig is the YAML shape. Durations are plain integers with the unit
// in the key name, so the file stays editable without duration-string
// parsing rules.
type fileConfig struct {
	HeartsEnabled              *bool `yaml:"hearts_enabled"`
	RecordAttemptsWhileBlocked *bool `yaml:"record_attempts_while_blocked"`
	SaveDebounceMs             *int  `yaml:"save_debounce_ms"`
	HeartsPollSeconds          *int  `yaml:"hearts_poll_seconds"`
}

// Load reads a YAML file over the defaults. Missing keys keep their default
// values.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if file.HeartsEnabled != nil {
		cfg.HeartsEnabled = *file.HeartsEnabled
	}
	if file.RecordAttemptsWhileBlocked != nil {
		cfg.RecordAttemptsWhileBlocked = *file.RecordAttemptsWhileBlocked
	}
	if file.SaveDebounceMs != nil && *file.SaveDebounceMs > 0 {
		cfg.SaveDebounce = time.Duration(*file.SaveDebounceMs) * time.Millisecond
	}
	if file.HeartsPollSeconds != nil && *file.HeartsPollSeconds > 0 {
		cfg.HeartsPollInterval = time.Duration(*file.HeartsPollSeconds) * time.Second
	}
	return cfg, nil
}

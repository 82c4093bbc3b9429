package config

import (
	"fmt"
	"time"
)

// Config holds the application configuration.
type Config struct {
	Capture        CaptureConfig `yaml:"capture"`
	Archive        ArchiveConfig `yaml:"archive"`
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	Proxy          string        `yaml:"proxy"`
	NoProxy        string        `yaml:"no_proxy"`
}

// CaptureConfig controls the in-memory traffic history.
type CaptureConfig struct {
	// Enabled gates whether the interceptor is wired into the pipeline.
	Enabled bool `yaml:"enabled"`

	// Capacity is the number of events kept before FIFO eviction.
	Capacity int `yaml:"capacity"`

	// MaxBodyBytes caps stored body copies. Zero means unlimited.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// ArchiveConfig controls the persistent sqlite archive.
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Capture: CaptureConfig{
			Enabled:  true,
			Capacity: 1000,
		},
		Archive: ArchiveConfig{
			Enabled: true,
		},
		DefaultTimeout: 30 * time.Second,
	}
}

// Validate rejects configurations the capture core cannot be built from.
func (c Config) Validate() error {
	if c.Capture.Capacity <= 0 {
		return fmt.Errorf("capture capacity must be positive, got %d", c.Capture.Capacity)
	}
	if c.Capture.MaxBodyBytes < 0 {
		return fmt.Errorf("max body bytes must not be negative, got %d", c.Capture.MaxBodyBytes)
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from ~/.config/wiretap/config.yaml.
func Load() Config {
	cfg := DefaultConfig()

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg
	}

	path := filepath.Join(home, ".config", "wiretap", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	_ = yaml.Unmarshal(data, &cfg)
	return cfg
}

// DefaultArchivePath returns the archive location used when the config does
// not name one.
func DefaultArchivePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "wiretap-history.db"
	}
	return filepath.Join(home, ".local", "share", "wiretap", "history.db")
}

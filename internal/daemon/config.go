// Package daemon manages the traction daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all daemon configuration.
type Config struct {
	API       APIConfig       `toml:"api"`
	Storage   StorageConfig   `toml:"storage"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Journal   JournalConfig   `toml:"journal"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	DefaultOwner string `toml:"default_owner"`
}

// StorageConfig controls where the sqlite store lives.
type StorageConfig struct {
	Dir string `toml:"dir"`
}

// SchedulerConfig controls the background job runner.
type SchedulerConfig struct {
	Enabled     bool   `toml:"enabled"`
	TickSeconds int    `toml:"tick_seconds"`
	JournalCron string `toml:"journal_cron"`
}

// JournalConfig controls journal generation defaults.
type JournalConfig struct {
	DefaultTime string `toml:"default_time"` // "HH:MM", per-user settings override
}

// TelemetryConfig controls observability endpoints.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:         "127.0.0.1",
			Port:         7430,
			DefaultOwner: "local",
		},
		Storage: StorageConfig{
			Dir: tractionHome(),
		},
		Scheduler: SchedulerConfig{
			Enabled:     true,
			TickSeconds: 60,
			JournalCron: "* * * * *",
		},
		Journal: JournalConfig{
			DefaultTime: "23:55",
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
	}
}

// LoadConfig reads config.toml from the traction home, falling back to
// defaults when the file does not exist.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(tractionHome(), "config.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // No config file yet, use defaults
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes the config to $TRACTION_HOME/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(tractionHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// tractionHome returns the traction data directory.
func tractionHome() string {
	if env := os.Getenv("TRACTION_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".traction")
}

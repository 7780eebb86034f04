// Package config loads venvtrack's YAML configuration and derives the
// filesystem layout of the managed environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/blackwell-systems/venvtrack/internal/remind"
)

// Config is the application configuration. Every field has a usable
// default; the config file and the VENVTRACK_ROOT variable only override.
type Config struct {
	// Root is the directory holding the venv, ledger, and snapshots.
	Root string `yaml:"root"`
	// IndexURL, when set, is recorded as provenance for installs that
	// use a non-default package index.
	IndexURL string         `yaml:"index_url"`
	Reminder ReminderConfig `yaml:"reminder"`
}

// ReminderConfig tunes the snapshot-reminder heuristic.
type ReminderConfig struct {
	MinOperations    int `yaml:"min_operations"`
	MinPackages      int `yaml:"min_packages"`
	RecentWindowDays int `yaml:"recent_window_days"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
	); err != nil {
		return err
	}
	return validation.ValidateStruct(&c.Reminder,
		validation.Field(&c.Reminder.MinOperations, validation.Min(1)),
		validation.Field(&c.Reminder.MinPackages, validation.Min(1)),
		validation.Field(&c.Reminder.RecentWindowDays, validation.Min(1)),
	)
}

// Default returns the built-in configuration.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		Root: filepath.Join(home, ".local", "python-packages"),
		Reminder: ReminderConfig{
			MinOperations:    remind.DefaultThresholds.MinOperations,
			MinPackages:      remind.DefaultThresholds.MinPackages,
			RecentWindowDays: int(remind.DefaultThresholds.RecentWindow / (24 * time.Hour)),
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "venvtrack", "config.yaml")
}

// Load reads the config at path on top of the defaults. A missing file is
// fine; a malformed one is not. VENVTRACK_ROOT overrides the root last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// defaults only
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if root := os.Getenv("VENVTRACK_ROOT"); root != "" {
		cfg.Root = root
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// VenvDir is the managed venv location.
func (c *Config) VenvDir() string { return filepath.Join(c.Root, "venv") }

// HistoryDir holds the ledger's entry files.
func (c *Config) HistoryDir() string { return filepath.Join(c.Root, "history") }

// SnapshotsDir holds named snapshot files.
func (c *Config) SnapshotsDir() string { return filepath.Join(c.Root, "snapshots") }

// DBPath is the SQLite index location.
func (c *Config) DBPath() string { return filepath.Join(c.Root, "venvtrack.db") }

// LockPath is the advisory mutation lock, colocated with the ledger.
func (c *Config) LockPath() string { return filepath.Join(c.Root, "venvtrack.lock") }

// Thresholds converts the reminder settings for the heuristic.
func (c *Config) Thresholds() remind.Thresholds {
	return remind.Thresholds{
		MinOperations: c.Reminder.MinOperations,
		MinPackages:   c.Reminder.MinPackages,
		RecentWindow:  time.Duration(c.Reminder.RecentWindowDays) * 24 * time.Hour,
	}
}

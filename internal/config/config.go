// ABOUTME: Configuration management for data location and recorder tuning
// ABOUTME: Loads and saves XDG config.json and acts as the storage factory

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harper/leash/internal/recorder"
	"github.com/harper/leash/internal/storage"
)

// Config stores leash configuration.
type Config struct {
	// DataDir is the root directory for the database file. Supports ~
	// expansion. Defaults to ~/.local/share/leash.
	DataDir string `json:"data_dir,omitempty"`

	// LogLevel selects the log verbosity: debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// Recorder tunes the route recording pipeline.
	Recorder RecorderConfig `json:"recorder,omitempty"`
}

// RecorderConfig holds route recording tuning knobs.
type RecorderConfig struct {
	MinDistanceMeters float64 `json:"min_distance_meters,omitempty"`
	FlushIntervalSecs int     `json:"flush_interval_secs,omitempty"`
	MaxLivePoints     int     `json:"max_live_points,omitempty"`
	RecoveryPollSecs  int     `json:"recovery_poll_secs,omitempty"`
}

// defaultDBFilename is the SQLite database filename.
const defaultDBFilename = "leash.db"

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return defaultDataDir()
	}
	return ExpandPath(c.DataDir)
}

// DBPath returns the database file path.
func (c *Config) DBPath() string {
	return filepath.Join(c.GetDataDir(), defaultDBFilename)
}

// RecorderOptions converts the config knobs into pipeline options,
// falling back to the recorder defaults for unset fields.
func (c *Config) RecorderOptions() recorder.Options {
	opts := recorder.DefaultOptions()
	if c.Recorder.MinDistanceMeters > 0 {
		opts.MinDistanceMeters = c.Recorder.MinDistanceMeters
	}
	if c.Recorder.FlushIntervalSecs > 0 {
		opts.FlushInterval = time.Duration(c.Recorder.FlushIntervalSecs) * time.Second
	}
	if c.Recorder.MaxLivePoints > 0 {
		opts.MaxLivePoints = c.Recorder.MaxLivePoints
	}
	if c.Recorder.RecoveryPollSecs > 0 {
		opts.RecoveryPollInterval = time.Duration(c.Recorder.RecoveryPollSecs) * time.Second
	}
	return opts
}

// NewManager creates the storage manager for the configured database.
func (c *Config) NewManager() *storage.Manager {
	return storage.NewManager(c.DBPath())
}

func defaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "leash")
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "leash", "config.json")
}

// Load reads config from disk, returning defaults when no file exists.
func Load() (*Config, error) {
	path := GetConfigPath()
	data, err := os.ReadFile(path) //#nosec G304 -- path is derived from user's home directory
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

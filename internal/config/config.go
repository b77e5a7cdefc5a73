// Package config loads and persists application settings through viper.
// The config file lives in the user config directory and is created with
// defaults on first run.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

// Recognized option keys.
const (
	KeyResumeWindowSeconds = "resume_window_seconds"
	KeySingleRunning       = "single_running"
	KeyDriver              = "driver"
	KeyDatabasePath        = "database_path"
	KeyLegacyPath          = "legacy_path"
)

// Config holds the resolved application settings.
type Config struct {
	// ResumeWindow is how soon after stopping a resume reopens the same
	// interval instead of starting a fresh one.
	ResumeWindow time.Duration

	// SingleRunning closes any running interval in a day bucket before a
	// new interval is added to it.
	SingleRunning bool

	// Driver selects the storage backend: "sqlite" or "postgres".
	Driver string

	// DatabasePath is the SQLite file path or, for postgres, the
	// connection string.
	DatabasePath string

	// LegacyPath points at the pre-schema flat JSON store, imported once
	// at startup and deleted afterwards.
	LegacyPath string

	// FilePath is where the config itself was read from or written to.
	FilePath string

	v *viper.Viper
}

// Load reads the config file from the user config directory, creating it
// with defaults on first run. XDG_CONFIG_HOME is honored when set.
func Load() (*Config, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(filepath.Join(dir, "clockbook", "clockbook.yml"))
}

// LoadFrom reads (or creates) the config at an explicit path.
func LoadFrom(path string) (*Config, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)

	dataDir := filepath.Dir(path)
	v.SetDefault(KeyResumeWindowSeconds, 60)
	v.SetDefault(KeySingleRunning, true)
	v.SetDefault(KeyDriver, "sqlite")
	v.SetDefault(KeyDatabasePath, filepath.Join(dataDir, "clockbook.db"))
	v.SetDefault(KeyLegacyPath, filepath.Join(dataDir, "calendar.json"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
			if err := v.WriteConfigAs(path); err != nil {
				return nil, fmt.Errorf("writing default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	return &Config{
		ResumeWindow:  time.Duration(v.GetInt(KeyResumeWindowSeconds)) * time.Second,
		SingleRunning: v.GetBool(KeySingleRunning),
		Driver:        v.GetString(KeyDriver),
		DatabasePath:  v.GetString(KeyDatabasePath),
		LegacyPath:    v.GetString(KeyLegacyPath),
		FilePath:      path,
		v:             v,
	}, nil
}

// Save writes the current settings back to the config file.
func (c *Config) Save() error {
	if c.v == nil {
		return fmt.Errorf("config is not backed by a file")
	}
	c.v.Set(KeyResumeWindowSeconds, int(c.ResumeWindow/time.Second))
	c.v.Set(KeySingleRunning, c.SingleRunning)
	c.v.Set(KeyDriver, c.Driver)
	c.v.Set(KeyDatabasePath, c.DatabasePath)
	c.v.Set(KeyLegacyPath, c.LegacyPath)
	if err := c.v.WriteConfigAs(c.FilePath); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// configDir resolves the platform user config directory.
func configDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(home, "AppData", "Roaming"), nil
	}
	return filepath.Join(home, ".config"), nil
}

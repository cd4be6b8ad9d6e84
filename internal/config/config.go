// Package config loads the banneton settings file.
//
// Configuration lives in a small YAML file, by default at
// ~/.config/banneton/config.yaml. Every key has a sensible default so
// the file is optional; command-line flags override whatever the file
// says.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the settings file contents.
type Config struct {
	// Database is the SQLite database path.
	Database string `yaml:"database"`

	// ExportDir is the default archive directory for export.
	ExportDir string `yaml:"export_dir"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// LogFormat is one of text, json.
	LogFormat string `yaml:"log_format"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Database:  filepath.Join(dataDir(), "bakery.db"),
		ExportDir: filepath.Join(dataDir(), "exports"),
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// DefaultPath returns the standard settings file location,
// ~/.config/banneton/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "banneton", "config.yaml")
}

func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "banneton")
}

// Load reads the settings file at path, or the default location when
// path is empty.
//
// A missing file at the default location is not an error; the defaults
// apply. A missing file at an explicitly given path is an error, since
// the caller asked for that file. Unknown keys are rejected so typos
// fail loudly instead of being silently ignored.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.Database = ExpandHome(cfg.Database)
	cfg.ExportDir = ExpandHome(cfg.ExportDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the enum-valued settings.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q: must be debug, info, warn or error", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log_format %q: must be text or json", c.LogFormat)
	}
	if c.Database == "" {
		return fmt.Errorf("database path is empty")
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ExpandHome replaces a leading ~ or ~/ with the user's home
// directory. Paths without the prefix pass through unchanged.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	return filepath.Join(home, p[2:])
}

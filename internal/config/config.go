// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for sonic.
//
// Configuration is TOML with built-in defaults and environment variable
// overrides. The file lives at ~/.sonic/config.toml.
package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/sonic-tui/internal/model"
	"github.com/jeranaias/sonic-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete sonic configuration.
type Config struct {
	// DefaultModel is the model selected before any user choice.
	DefaultModel string `toml:"default_model"`

	// Runtime configuration
	Runtime RuntimeConfig `toml:"runtime"`

	// UI configuration
	UI UIConfig `toml:"ui"`

	// Export configuration
	Export ExportConfig `toml:"export"`
}

// RuntimeConfig contains inference runtime daemon settings.
type RuntimeConfig struct {
	// URL is the address of the inference runtime daemon.
	URL string `toml:"url"`
	// DataDir is where the session store lives (empty = ~/.sonic).
	DataDir string `toml:"data_dir"`
}

// UIConfig contains interface settings.
type UIConfig struct {
	// Theme selects the color scheme: "dark" or "light".
	Theme string `toml:"theme"`
	// ShowSidebar controls whether the conversation list starts visible.
	ShowSidebar bool `toml:"show_sidebar"`
	// MarkdownRendering enables rich rendering of assistant replies.
	MarkdownRendering bool `toml:"markdown_rendering"`
}

// ExportConfig contains conversation export settings.
type ExportConfig struct {
	// OutputDir is where exported files are written (empty = current dir).
	OutputDir string `toml:"output_dir"`
	// DefaultFormat is the format used when none is given.
	DefaultFormat string `toml:"default_format"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DefaultModel: model.DefaultModelID,
		Runtime: RuntimeConfig{
			URL: "http://127.0.0.1:8090",
		},
		UI: UIConfig{
			Theme:             "dark",
			ShowSidebar:       true,
			MarkdownRendering: true,
		},
		Export: ExportConfig{
			OutputDir:     ".",
			DefaultFormat: "txt",
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the sonic configuration directory (~/.sonic).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".sonic"), nil
}

// ConfigPath returns the path of the TOML configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ResolvedDataDir resolves the session store directory, honoring the
// config value when set.
func (c *Config) ResolvedDataDir() (string, error) {
	if c.Runtime.DataDir != "" {
		return c.Runtime.DataDir, nil
	}
	return ConfigDir()
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads configuration from the default location. A missing file is
// not an error; defaults apply. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads configuration from an explicit file path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides:
//   - SONIC_RUNTIME_URL: overrides runtime.url
//   - SONIC_MODEL: overrides default_model
//   - SONIC_DATA_DIR: overrides runtime.data_dir
//   - SONIC_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SONIC_RUNTIME_URL"); v != "" {
		c.Runtime.URL = v
	}
	if v := os.Getenv("SONIC_MODEL"); v != "" {
		c.DefaultModel = v
	}
	if v := os.Getenv("SONIC_DATA_DIR"); v != "" {
		c.Runtime.DataDir = v
	}
	if v := os.Getenv("SONIC_THEME"); v != "" {
		c.UI.Theme = v
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	if c.Runtime.URL == "" {
		return fmt.Errorf("runtime.url must not be empty")
	}
	u, err := url.Parse(c.Runtime.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("runtime.url %q is not a valid http(s) URL", c.Runtime.URL)
	}
	if c.UI.Theme != "dark" && c.UI.Theme != "light" {
		return fmt.Errorf("ui.theme must be \"dark\" or \"light\", got %q", c.UI.Theme)
	}
	if c.DefaultModel == "" {
		return fmt.Errorf("default_model must not be empty")
	}
	return nil
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration to the default location atomically.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath writes the configuration to an explicit file path.
func SaveToPath(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

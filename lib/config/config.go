// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the configuration for LSMP endpoints.
type Config struct {
	// Environment identifies the deployment type (development, production).
	Environment Environment `yaml:"environment"`

	// Listen is the address a server binds, e.g. "127.0.0.1:7891".
	Listen string `yaml:"listen"`

	// Connect is the address a client dials.
	Connect string `yaml:"connect"`

	// Transport configures packet framing limits and connection setup.
	Transport TransportConfig `yaml:"transport"`

	// Memory configures the guarded arena.
	Memory MemoryConfig `yaml:"memory"`

	// Log configures diagnostics output.
	Log LogConfig `yaml:"log"`

	// Per-environment overrides, applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Listen    string           `yaml:"listen,omitempty"`
	Connect   string           `yaml:"connect,omitempty"`
	Transport *TransportConfig `yaml:"transport,omitempty"`
	Memory    *MemoryOverrides `yaml:"memory,omitempty"`
	Log       *LogConfig       `yaml:"log,omitempty"`
}

// TransportConfig configures connections.
type TransportConfig struct {
	// MaxPayloadBytes is the largest packet payload accepted or sent.
	// Zero disables the bound, which Validate rejects in production.
	// Default: 16 MiB (development), 1 MiB (production)
	MaxPayloadBytes uint64 `yaml:"max_payload_bytes"`

	// DialTimeout bounds outbound connection setup, as a Go duration.
	// Default: 10s
	DialTimeout string `yaml:"dial_timeout"`
}

// MemoryConfig configures the guarded arena.
type MemoryConfig struct {
	// RequireLock makes allocation fail when memory cannot be locked
	// against swapping, instead of continuing with swappable memory.
	// Default: false (development), true (production)
	RequireLock bool `yaml:"require_lock"`
}

// MemoryOverrides distinguishes an explicit false from an absent field.
type MemoryOverrides struct {
	RequireLock *bool `yaml:"require_lock,omitempty"`
}

// LogConfig configures diagnostics output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: info
	Level string `yaml:"level"`

	// Format is one of auto, text, json. Auto picks text when stderr is
	// a terminal and JSON otherwise.
	// Default: auto
	Format string `yaml:"format"`
}

// Production environment defaults applied when the file has no
// production section.
const productionMaxPayloadBytes = 1 << 20

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
func Default() *Config {
	return &Config{
		Environment: Development,
		Listen:      "127.0.0.1:7891",
		Connect:     "127.0.0.1:7891",
		Transport: TransportConfig{
			MaxPayloadBytes: 16 << 20,
			DialTimeout:     "10s",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load loads configuration from the LSMP_CONFIG environment variable.
//
// There are no fallbacks: if LSMP_CONFIG is not set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("LSMP_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("LSMP_CONFIG environment variable not set; " +
			"set it to the path of your lsmp.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The file is the single source of truth. Environment variables only
// appear through ${VAR} expansion in address fields.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
		// Production defaults: locked memory and a tighter payload bound.
		if overrides == nil {
			requireLock := true
			overrides = &ConfigOverrides{
				Transport: &TransportConfig{MaxPayloadBytes: productionMaxPayloadBytes},
				Memory:    &MemoryOverrides{RequireLock: &requireLock},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Listen != "" {
		c.Listen = overrides.Listen
	}
	if overrides.Connect != "" {
		c.Connect = overrides.Connect
	}

	if overrides.Transport != nil {
		if overrides.Transport.MaxPayloadBytes != 0 {
			c.Transport.MaxPayloadBytes = overrides.Transport.MaxPayloadBytes
		}
		if overrides.Transport.DialTimeout != "" {
			c.Transport.DialTimeout = overrides.Transport.DialTimeout
		}
	}

	if overrides.Memory != nil && overrides.Memory.RequireLock != nil {
		c.Memory.RequireLock = *overrides.Memory.RequireLock
	}

	if overrides.Log != nil {
		if overrides.Log.Level != "" {
			c.Log.Level = overrides.Log.Level
		}
		if overrides.Log.Format != "" {
			c.Log.Format = overrides.Log.Format
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} in address fields.
func (c *Config) expandVariables() {
	c.Listen = expandVars(c.Listen, os.Getenv)
	c.Connect = expandVars(c.Connect, os.Getenv)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, lookup func(string) string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := lookup(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// DialTimeout returns the parsed transport.dial_timeout. Call Validate
// first; an unparsable value yields zero.
func (c *Config) DialTimeout() time.Duration {
	timeout, err := time.ParseDuration(c.Transport.DialTimeout)
	if err != nil {
		return 0
	}
	return timeout
}

// LogLevel returns the parsed log.level. Call Validate first; an
// unparsable value yields slog.LevelInfo.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

var logFormats = []string{"auto", "text", "json"}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Listen == "" && c.Connect == "" {
		errs = append(errs, fmt.Errorf("at least one of listen and connect is required"))
	}

	if c.Environment == Production && c.Transport.MaxPayloadBytes == 0 {
		errs = append(errs, fmt.Errorf("transport.max_payload_bytes must be bounded in production"))
	}

	if timeout, err := time.ParseDuration(c.Transport.DialTimeout); err != nil {
		errs = append(errs, fmt.Errorf("transport.dial_timeout: %w", err))
	} else if timeout < 0 {
		errs = append(errs, fmt.Errorf("transport.dial_timeout must not be negative"))
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	if !slices.Contains(logFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", logFormats))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/lsmp/lib/config"
	"github.com/bureau-foundation/lsmp/lib/packet"
	"github.com/bureau-foundation/lsmp/lib/secret"
	"github.com/bureau-foundation/lsmp/transport"
)

// commonFlags are shared by every subcommand.
type commonFlags struct {
	configPath string
	logLevel   string
}

func (f *commonFlags) add(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.configPath, "config", "", "path to lsmp.yaml (default: $LSMP_CONFIG, else built-in defaults)")
	flagSet.StringVar(&f.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
}

// environment is the process state a subcommand runs with.
type environment struct {
	config *config.Config
	logger *slog.Logger
}

// loadConfig resolves the configuration file. An explicit --config
// wins, then LSMP_CONFIG, then the built-in defaults.
func (f *commonFlags) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case f.configPath != "":
		cfg, err = config.LoadFile(f.configPath)
	case os.Getenv("LSMP_CONFIG") != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	return cfg, nil
}

// setup loads configuration, builds the logger, and initializes secure
// memory. It must run before the first secret allocation.
func (f *commonFlags) setup(stderr io.Writer) (*environment, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, usage("invalid config: %v", err)
	}

	logger := newLogger(stderr, cfg.LogLevel(), cfg.Log.Format)
	if err := secret.Initialize(secret.InitOptions{
		Logger:      logger,
		RequireLock: cfg.Memory.RequireLock,
	}); err != nil {
		return nil, fmt.Errorf("initializing secure memory: %w", err)
	}

	return &environment{config: cfg, logger: logger}, nil
}

// transportOptions maps configuration onto connection options.
func (e *environment) transportOptions() transport.Options {
	return transport.Options{
		Limits:      &packet.Limits{MaxPayloadBytes: e.config.Transport.MaxPayloadBytes},
		Logger:      e.logger,
		DialTimeout: e.config.DialTimeout(),
	}
}

// newLogger builds a structured logger on stderr. Format "auto" uses
// slog.TextHandler when stderr is a terminal and slog.JSONHandler when
// it is piped or redirected.
func newLogger(stderr io.Writer, level slog.Level, format string) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	text := format == "text"
	if format == "auto" {
		if file, ok := stderr.(*os.File); ok {
			text = term.IsTerminal(int(file.Fd()))
		}
	}
	if text {
		return slog.New(slog.NewTextHandler(stderr, options))
	}
	return slog.New(slog.NewJSONHandler(stderr, options))
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/multibox/lib/clock"
	"github.com/bureau-foundation/multibox/lib/config"
	"github.com/bureau-foundation/multibox/lib/desktop"
)

// commonFlags are accepted by every command that reads the config.
type commonFlags struct {
	configPath string
	logLevel   string
}

func (c *commonFlags) add(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.configPath, "config", "", "path to the config file (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&c.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
}

// load reads and optionally validates the configuration, then builds
// the logger from it.
func (c *commonFlags) load(validate bool) (*config.Config, *slog.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if c.configPath != "" {
		cfg, err = config.LoadFile(c.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, nil, fmt.Errorf("invalid configuration:\n%w", err)
		}
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, nil, err
	}
	return cfg, newLogger(level), nil
}

// newLogger writes text to an interactive stderr and JSON otherwise,
// so redirected output stays machine-readable.
func newLogger(level slog.Level) *slog.Logger {
	var handler slog.Handler
	options := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}

// openDesktop declares DPI awareness and returns the platform backend.
// DPI awareness must be set before any window geometry is read.
func openDesktop(clk clock.Clock, logger *slog.Logger) (desktop.Backend, error) {
	if err := desktop.DeclareDPIAwareness(); err != nil {
		logger.Warn("could not declare DPI awareness; clicks may be misplaced on scaled displays", "error", err)
	}
	backend, err := desktop.NewSystem(clk)
	if err != nil {
		return nil, fmt.Errorf("opening desktop: %w", err)
	}
	return backend, nil
}

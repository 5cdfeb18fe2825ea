// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/multibox/lib/bot"
	"github.com/bureau-foundation/multibox/lib/capture"
	"github.com/bureau-foundation/multibox/lib/clock"
	"github.com/bureau-foundation/multibox/lib/config"
	"github.com/bureau-foundation/multibox/lib/desktop"
	"github.com/bureau-foundation/multibox/lib/journal"
	"github.com/bureau-foundation/multibox/lib/orchestrator"
	"github.com/bureau-foundation/multibox/lib/status"
	"github.com/bureau-foundation/multibox/lib/version"
	"github.com/bureau-foundation/multibox/lib/vision"
)

func runCommand(ctx context.Context, args []string, _ io.Writer) error {
	var (
		common commonFlags
		debug  bool
	)
	flagSet := pflag.NewFlagSet("multibox run", pflag.ContinueOnError)
	common.add(flagSet)
	flagSet.BoolVar(&debug, "debug-dumps", false, "enable debug image dumps regardless of debug.enabled")
	if done, err := parseFlags(flagSet, args); done || err != nil {
		return err
	}

	cfg, logger, err := common.load(true)
	if err != nil {
		return err
	}
	if debug {
		cfg.Debug.Enabled = true
	}
	logger.Info("multibox starting", "version", version.Info(), "bots", len(cfg.Bots), "tick_rate", cfg.Loop.TickRate)

	clk := clock.Real()
	backend, err := openDesktop(clk, logger)
	if err != nil {
		return err
	}

	windows, err := orchestrator.Discover(ctx, backend, cfg.Discovery(), clk, logger)
	if err != nil {
		return err
	}
	instances, err := orchestrator.Build(windows, cfg.Assignments(), cfg.Grid(), backend, clk.Now(), logger)
	if err != nil {
		return err
	}

	detector, err := vision.NewColorShapeDetector(cfg.Detector)
	if err != nil {
		return err
	}
	probe, err := vision.NewEdgeDensityProbe(cfg.Probe)
	if err != nil {
		return err
	}

	machineConfig := bot.Config{
		Windows:  backend,
		Capturer: capture.NewScreenCapturer(clk),
		Detector: detector,
		Probe:    probe,
		Clicker:  desktop.NewDispatcher(backend, backend),
		Clock:    clk,
		Logger:   logger,
		Timings:  cfg.BotTimings(),
	}
	if cfg.Debug.Enabled {
		dumper, err := vision.NewDumper(vision.DumperConfig{
			Directory: cfg.Debug.Directory,
			Interval:  cfg.Debug.Interval.Std(),
			Detector:  detector,
			Masker:    detector,
			Clock:     clk,
			Logger:    logger,
		})
		if err != nil {
			return err
		}
		machineConfig.Dumper = dumper
		logger.Info("debug dumps enabled", "directory", cfg.Debug.Directory, "interval", cfg.Debug.Interval.String())
	}

	orchestratorConfig := orchestrator.Config{
		Clock:    clk,
		Logger:   logger,
		TickRate: cfg.Loop.TickRate,
	}
	if cfg.Journal.Path != "" {
		writer, err := openJournal(cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("closing journal", "error", err)
			}
		}()
		machineConfig.Recorder = writer
		orchestratorConfig.Recorder = writer
	}

	if cfg.Status.Path != "" {
		publisher := status.NewPublisher(cfg.Status.Path, cfg.Status.Interval.Std(), version.Info(), clk)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("removing status file", "error", err)
			}
		}()
		orchestratorConfig.Publisher = publisher
	}

	machine, err := bot.NewMachine(machineConfig)
	if err != nil {
		return err
	}
	orchestratorConfig.Ticker = machine

	loop, err := orchestrator.New(orchestratorConfig, instances)
	if err != nil {
		return err
	}
	if err := loop.Run(ctx); err != nil {
		return err
	}
	logger.Info("multibox stopped")
	return nil
}

func openJournal(cfg *config.Config, logger *slog.Logger) (*journal.Writer, error) {
	compression, err := journal.ParseCompression(cfg.Journal.Compression)
	if err != nil {
		return nil, err
	}
	writer, err := journal.Open(cfg.Journal.Path, compression)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	logger.Info("journal open", "path", cfg.Journal.Path, "compression", compression.String())
	return writer, nil
}

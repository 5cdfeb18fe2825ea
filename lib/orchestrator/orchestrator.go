// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/multibox/lib/bot"
	"github.com/bureau-foundation/multibox/lib/clock"
	"github.com/bureau-foundation/multibox/lib/desktop"
	"github.com/bureau-foundation/multibox/lib/journal"
)

// Assignment names a bot and the grid cell its window goes in.
type Assignment struct {
	Name      string
	GridIndex int
}

// Mover positions a window without resizing it. [desktop.Registry]
// implements it.
type Mover interface {
	Move(handle desktop.Handle, x, y int) error
}

// Build assigns windows to bots in order, moves each window to its
// cell, and returns one instance per bot. windows must already be in
// registry order; surplus windows are left alone. No instances are
// returned on error.
func Build(windows []desktop.WindowInfo, assignments []Assignment, grid Grid, mover Mover, now time.Time, logger *slog.Logger) ([]*bot.Instance, error) {
	if len(windows) < len(assignments) {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrWindowCount, len(windows), len(assignments))
	}
	if err := grid.Validate(); err != nil {
		return nil, err
	}

	instances := make([]*bot.Instance, 0, len(assignments))
	for i, assignment := range assignments {
		window := windows[i]
		cell, err := grid.Cell(assignment.GridIndex)
		if err != nil {
			return nil, fmt.Errorf("bot %s: %w", assignment.Name, err)
		}
		if err := mover.Move(window.Handle, cell.Min.X, cell.Min.Y); err != nil {
			return nil, fmt.Errorf("moving window of bot %s: %w", assignment.Name, err)
		}
		logger.Info("window placed",
			"bot", assignment.Name,
			"handle", window.Handle.String(),
			"title", window.Title,
			"grid_index", assignment.GridIndex,
			"x", cell.Min.X,
			"y", cell.Min.Y,
		)
		instances = append(instances, bot.NewInstance(assignment.Name, window.Handle, now))
	}
	return instances, nil
}

// Ticker advances one instance. [bot.Machine] implements it.
type Ticker interface {
	Tick(instance *bot.Instance) error
}

// Config configures an [Orchestrator].
type Config struct {
	Ticker Ticker
	Clock  clock.Clock
	Logger *slog.Logger

	// TickRate is ticks per second.
	TickRate float64

	// Recorder, if set, receives a record for every failed tick.
	Recorder bot.Recorder

	// Publisher, if set, is offered the instances after every round.
	Publisher Publisher
}

// Publisher exposes instance state outside the process.
// [status.Publisher] implements it.
type Publisher interface {
	Publish(instances []*bot.Instance) error
}

// Orchestrator runs the tick loop over a fixed set of instances.
type Orchestrator struct {
	ticker    Ticker
	clock     clock.Clock
	logger    *slog.Logger
	recorder  bot.Recorder
	publisher Publisher
	period    time.Duration
	instances []*bot.Instance
}

// New returns an Orchestrator over instances, which it ticks in the
// given order.
func New(config Config, instances []*bot.Instance) (*Orchestrator, error) {
	if config.Ticker == nil || config.Clock == nil {
		return nil, errors.New("orchestrator: Ticker and Clock are required")
	}
	if config.TickRate <= 0 {
		return nil, fmt.Errorf("orchestrator: tick rate must be positive, got %v", config.TickRate)
	}
	if len(instances) == 0 {
		return nil, errors.New("orchestrator: no instances")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		ticker:    config.Ticker,
		clock:     config.Clock,
		logger:    logger,
		recorder:  config.Recorder,
		publisher: config.Publisher,
		period:    time.Duration(float64(time.Second) / config.TickRate),
		instances: instances,
	}, nil
}

// Run ticks every instance once per period until ctx is cancelled,
// then returns nil. Ticks never block, so cancellation is observed
// within one period.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("loop started",
		"instances", len(o.instances),
		"period", o.period.String(),
	)
	for {
		if ctx.Err() != nil {
			o.logger.Info("loop stopped")
			return nil
		}

		start := o.clock.Now()
		o.TickAll()
		o.publish()
		spent := o.clock.Now().Sub(start)
		if spent > o.period {
			o.logger.Debug("tick period overrun", "spent", spent.String(), "period", o.period.String())
		}

		select {
		case <-ctx.Done():
		case <-o.clock.After(max(0, o.period-spent)):
		}
	}
}

// TickAll ticks every instance once, in order. Failures are logged and
// journaled per bot and never stop the remaining instances.
func (o *Orchestrator) TickAll() {
	for _, instance := range o.instances {
		if err := o.tick(instance); err != nil {
			o.logger.Error("tick failed", "bot", instance.Name, "state", instance.State.String(), "error", err)
			o.record(instance, err)
		}
	}
}

func (o *Orchestrator) publish() {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(o.instances); err != nil {
		o.logger.Warn("publishing status failed", "error", err)
	}
}

func (o *Orchestrator) tick(instance *bot.Instance) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("panic in tick: %v", recovered)
		}
	}()
	return o.ticker.Tick(instance)
}

func (o *Orchestrator) record(instance *bot.Instance, tickErr error) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.Record(journal.Record{
		Time:    o.clock.Now(),
		Bot:     instance.Name,
		Kind:    journal.KindError,
		Message: tickErr.Error(),
	}); err != nil {
		o.logger.Warn("journal write failed", "bot", instance.Name, "error", err)
	}
}

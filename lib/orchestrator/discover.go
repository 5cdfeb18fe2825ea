// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/bureau-foundation/multibox/lib/clock"
	"github.com/bureau-foundation/multibox/lib/desktop"
)

// ErrWindowCount is returned when fewer windows match than there are
// bots.
var ErrWindowCount = errors.New("not enough matching windows")

// Lister enumerates matching windows. [desktop.Registry] implements
// it.
type Lister interface {
	List(titleContains string) ([]desktop.WindowInfo, error)
}

// Discovery configures [Discover].
type Discovery struct {
	TitleContains string

	// Count is the number of windows required.
	Count int

	// StableFor is how long the window set must stay unchanged.
	StableFor time.Duration

	// Timeout bounds the whole wait.
	Timeout time.Duration

	PollInterval time.Duration
}

// Discover waits for at least discovery.Count windows whose set has
// been stable for discovery.StableFor, and returns every matching
// window in registry order.
//
// If the timeout passes with enough windows that never settled, the
// current set is returned and a warning logged. If it passes with too
// few windows, the error wraps [ErrWindowCount].
func Discover(ctx context.Context, lister Lister, discovery Discovery, clk clock.Clock, logger *slog.Logger) ([]desktop.WindowInfo, error) {
	if discovery.Count < 1 {
		return nil, fmt.Errorf("discovery needs a positive window count, got %d", discovery.Count)
	}

	start := clk.Now()
	var (
		previous   []desktop.WindowInfo
		lastChange = start
		first      = true
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		windows, err := lister.List(discovery.TitleContains)
		if err != nil {
			return nil, fmt.Errorf("listing windows: %w", err)
		}
		now := clk.Now()
		if first || !sameWindowSet(previous, windows) {
			if !first {
				logger.Debug("window set changed", "count", len(windows))
			}
			previous = windows
			lastChange = now
			first = false
		}

		if len(windows) >= discovery.Count && now.Sub(lastChange) >= discovery.StableFor {
			logger.Info("windows stable",
				"count", len(windows),
				"waited", now.Sub(start).String(),
			)
			return windows, nil
		}
		if now.Sub(start) >= discovery.Timeout {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-clk.After(discovery.PollInterval):
		}
	}

	windows, err := lister.List(discovery.TitleContains)
	if err != nil {
		return nil, fmt.Errorf("listing windows: %w", err)
	}
	if len(windows) < discovery.Count {
		return nil, fmt.Errorf("%w: found %d matching %q after %v, expected %d",
			ErrWindowCount, len(windows), discovery.TitleContains, discovery.Timeout, discovery.Count)
	}
	logger.Warn("window set did not stabilize, continuing with current windows",
		"count", len(windows),
		"timeout", discovery.Timeout.String(),
	)
	return windows, nil
}

// sameWindowSet compares handles and rectangles in order. Titles are
// ignored: a title change alone does not move or replace a window.
func sameWindowSet(a, b []desktop.WindowInfo) bool {
	return slices.EqualFunc(a, b, func(x, y desktop.WindowInfo) bool {
		return x.Handle == y.Handle && x.Rect == y.Rect
	})
}

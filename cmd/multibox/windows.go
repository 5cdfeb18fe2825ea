// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"image"
	"io"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/multibox/lib/clock"
	"github.com/bureau-foundation/multibox/lib/desktop"
	"github.com/bureau-foundation/multibox/lib/orchestrator"
)

func windowsCommand(_ context.Context, args []string, stdout io.Writer) error {
	var (
		common commonFlags
		title  string
	)
	flagSet := pflag.NewFlagSet("multibox windows", pflag.ContinueOnError)
	common.add(flagSet)
	flagSet.StringVar(&title, "title", "", "override window.title_contains")
	if done, err := parseFlags(flagSet, args); done || err != nil {
		return err
	}

	cfg, logger, err := common.load(false)
	if err != nil {
		return err
	}
	if title != "" {
		cfg.Window.TitleContains = title
	}

	backend, err := openDesktop(clock.Real(), logger)
	if err != nil {
		return err
	}
	windows, err := backend.List(cfg.Window.TitleContains)
	if err != nil {
		return err
	}
	return printWindows(stdout, windows, cfg.Assignments(), cfg.Grid())
}

// printWindows writes one row per window with the bot and cell it
// would be bound to. Windows beyond the configured bots are marked
// unused.
func printWindows(w io.Writer, windows []desktop.WindowInfo, assignments []orchestrator.Assignment, grid orchestrator.Grid) error {
	table := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(table, "HANDLE\tTITLE\tPOSITION\tSIZE\tBOT\tCELL")
	for i, window := range windows {
		botName, cellText := "-", "-"
		if i < len(assignments) {
			botName = assignments[i].Name
			if cell, err := grid.Cell(assignments[i].GridIndex); err == nil {
				cellText = fmt.Sprintf("%d @ %s", assignments[i].GridIndex, cell.Min)
			} else {
				cellText = fmt.Sprintf("%d (invalid)", assignments[i].GridIndex)
			}
		}
		fmt.Fprintf(table, "%s\t%s\t%s\t%s\t%s\t%s\n",
			window.Handle, window.Title, window.Rect.Min, formatSize(window.Rect), botName, cellText)
	}
	if err := table.Flush(); err != nil {
		return err
	}
	if len(windows) < len(assignments) {
		fmt.Fprintf(w, "\n%d bots configured but only %d matching windows\n", len(assignments), len(windows))
	}
	return nil
}

func formatSize(r image.Rectangle) string {
	return fmt.Sprintf("%dx%d", r.Dx(), r.Dy())
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/multibox/lib/clock"
	"github.com/bureau-foundation/multibox/lib/process"
	"github.com/bureau-foundation/multibox/lib/status"
)

// errStale is returned when the status file exists but has not been
// refreshed recently, so monitoring scripts see a non-zero exit.
var errStale = errors.New("status is stale")

func statusCommand(_ context.Context, args []string, stdout io.Writer) error {
	var (
		common commonFlags
		maxAge time.Duration
	)
	flagSet := pflag.NewFlagSet("multibox status", pflag.ContinueOnError)
	common.add(flagSet)
	flagSet.DurationVar(&maxAge, "max-age", 10*time.Second, "treat the status as stale when older than this")
	if done, err := parseFlags(flagSet, args); done || err != nil {
		return err
	}

	path := flagSet.Arg(0)
	if path == "" {
		cfg, _, err := common.load(false)
		if err != nil {
			return err
		}
		path = cfg.Status.Path
	}
	if path == "" {
		return process.UsageError(errors.New("no status file given and status.path is not configured"))
	}
	return showStatus(stdout, path, maxAge, clock.Real().Now())
}

func showStatus(w io.Writer, path string, maxAge time.Duration, now time.Time) error {
	snapshot, fresh, err := status.Check(path, maxAge, now)
	if err != nil {
		return err
	}
	if snapshot.UpdatedAt.IsZero() {
		return fmt.Errorf("no status at %s: multibox is not running", path)
	}

	fmt.Fprintf(w, "multibox %s (pid %d), updated %s ago\n\n",
		snapshot.Version, snapshot.PID, now.Sub(snapshot.UpdatedAt).Truncate(time.Second))
	table := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(table, "BOT\tHANDLE\tSTATE\tFOR")
	for _, entry := range snapshot.Bots {
		fmt.Fprintf(table, "%s\t%s\t%s\t%s\n",
			entry.Name, entry.Handle, entry.State, snapshot.UpdatedAt.Sub(entry.StateSince).Truncate(time.Second))
	}
	if err := table.Flush(); err != nil {
		return err
	}
	if !fresh {
		return fmt.Errorf("%w: last update %s", errStale, snapshot.UpdatedAt.Format(time.RFC3339))
	}
	return nil
}

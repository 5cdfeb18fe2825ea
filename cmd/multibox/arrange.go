// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/multibox/lib/clock"
	"github.com/bureau-foundation/multibox/lib/orchestrator"
)

func arrangeCommand(ctx context.Context, args []string, stdout io.Writer) error {
	var common commonFlags
	flagSet := pflag.NewFlagSet("multibox arrange", pflag.ContinueOnError)
	common.add(flagSet)
	if done, err := parseFlags(flagSet, args); done || err != nil {
		return err
	}

	cfg, logger, err := common.load(true)
	if err != nil {
		return err
	}
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
	fmt.Fprintf(stdout, "arranged %d windows\n", len(instances))
	return nil
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// multibox drives several copies of a game client, one window per bot,
// through the menu, lobby, match-accept and loading screens. Each
// window is captured and inspected every tick; buttons are found by
// colour and shape and clicked with synthetic mouse input.
//
// Commands:
//
//	multibox run       discover windows, arrange them, and run the bots
//	multibox windows   list matching windows and the cell each would take
//	multibox arrange   discover and arrange windows, then exit
//	multibox journal   print a run journal
//	multibox status    show the bot states of a running process
//
// Configuration is read from --config or MULTIBOX_CONFIG.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/multibox/lib/process"
	"github.com/bureau-foundation/multibox/lib/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		process.Fatal(err)
	}
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, args []string, stdout io.Writer) error
}

var commands = []command{
	{"run", "discover windows, arrange them, and run the bots", runCommand},
	{"windows", "list matching windows and the grid cell each would take", windowsCommand},
	{"arrange", "discover and arrange windows without running the bots", arrangeCommand},
	{"journal", "print the records of a run journal", journalCommand},
	{"status", "show the bot states published by a running process", statusCommand},
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		printUsage(os.Stderr)
		return process.UsageError(fmt.Errorf("no command given"))
	}
	switch args[0] {
	case "--version", "version":
		fmt.Fprintln(stdout, "multibox", version.Full())
		return nil
	case "-h", "--help", "help":
		printUsage(stdout)
		return nil
	}

	for _, command := range commands {
		if command.name != args[0] {
			continue
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return command.run(ctx, args[1:], stdout)
	}
	printUsage(os.Stderr)
	return process.UsageError(fmt.Errorf("unknown command %q", args[0]))
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "multibox %s\n\nUsage:\n  multibox <command> [flags]\n\nCommands:\n", version.Info())
	for _, command := range commands {
		fmt.Fprintf(w, "  %-9s %s\n", command.name, command.summary)
	}
	fmt.Fprintf(w, "\nRun 'multibox <command> --help' for command flags.\n")
}

// parseFlags parses a subcommand's flags. It returns done=true when
// help was printed.
func parseFlags(flagSet *pflag.FlagSet, args []string) (done bool, err error) {
	flagSet.SetOutput(os.Stderr)
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return true, nil
		}
		return false, process.UsageError(err)
	}
	return false, nil
}

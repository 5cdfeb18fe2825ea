// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/multibox/lib/codec"
	"github.com/bureau-foundation/multibox/lib/journal"
	"github.com/bureau-foundation/multibox/lib/process"
)

func journalCommand(_ context.Context, args []string, stdout io.Writer) error {
	var (
		botName string
		kind    string
		color   bool
	)
	flagSet := pflag.NewFlagSet("multibox journal", pflag.ContinueOnError)
	flagSet.StringVar(&botName, "bot", "", "only show records for this bot")
	flagSet.StringVar(&kind, "kind", "", "only show records of this kind (transition, click, error)")
	flagSet.BoolVar(&color, "color", term.IsTerminal(int(os.Stdout.Fd())), "colorize output")
	flagSet.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: multibox journal [flags] <path>")
		flagSet.PrintDefaults()
	}
	if done, err := parseFlags(flagSet, args); done || err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return process.UsageError(fmt.Errorf("expected one journal path, got %d arguments", flagSet.NArg()))
	}
	switch journal.Kind(kind) {
	case "", journal.KindTransition, journal.KindClick, journal.KindError:
	default:
		return process.UsageError(fmt.Errorf("unknown record kind %q", kind))
	}

	file, err := os.Open(flagSet.Arg(0))
	if err != nil {
		return err
	}
	defer file.Close()

	styles := plainStyles()
	if color {
		styles = colorStyles()
	}
	reader := journal.NewReader(file)
	for {
		record, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		var decodeErr *journal.DecodeError
		if errors.As(err, &decodeErr) {
			fmt.Fprintln(stdout, formatUndecodable(decodeErr, styles))
			continue
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", flagSet.Arg(0), err)
		}
		if botName != "" && record.Bot != botName {
			continue
		}
		if kind != "" && record.Kind != journal.Kind(kind) {
			continue
		}
		fmt.Fprintln(stdout, formatRecord(record, styles))
	}
}

type recordStyles struct {
	time       lipgloss.Style
	bot        lipgloss.Style
	transition lipgloss.Style
	click      lipgloss.Style
	failure    lipgloss.Style
}

func plainStyles() recordStyles {
	plain := lipgloss.NewStyle()
	return recordStyles{time: plain, bot: plain, transition: plain, click: plain, failure: plain}
}

func colorStyles() recordStyles {
	return recordStyles{
		time:       lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		bot:        lipgloss.NewStyle().Bold(true),
		transition: lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		click:      lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
		failure:    lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	}
}

const timeLayout = "2006-01-02 15:04:05.000"

// formatRecord renders one record as a single line. Times are UTC.
func formatRecord(record journal.Record, styles recordStyles) string {
	var detail string
	switch record.Kind {
	case journal.KindTransition:
		detail = styles.transition.Render(record.From + " -> " + record.To)
	case journal.KindClick:
		var parts []string
		parts = append(parts, "click "+record.Class)
		if record.Point != nil {
			parts = append(parts, "at "+record.Point.String())
		}
		if record.Rect != nil {
			parts = append(parts, "rect "+record.Rect.String())
		}
		detail = styles.click.Render(strings.Join(parts, " "))
	case journal.KindError:
		detail = styles.failure.Render("error: " + record.Message)
	default:
		detail = string(record.Kind)
	}
	return fmt.Sprintf("%s %s %s",
		styles.time.Render(record.Time.UTC().Format(timeLayout)),
		styles.bot.Render(record.Bot),
		detail,
	)
}

// formatUndecodable shows a frame that is not a valid record in CBOR
// diagnostic notation.
func formatUndecodable(decodeErr *journal.DecodeError, styles recordStyles) string {
	diagnostic, err := codec.Diagnose(decodeErr.Payload)
	if err != nil {
		diagnostic = fmt.Sprintf("%d bytes, not CBOR: %v", len(decodeErr.Payload), err)
	}
	return styles.failure.Render(fmt.Sprintf("undecodable record (%v): %s", decodeErr.Err, diagnostic))
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package orchestrator finds the game windows, lays them out, and runs
// the fixed-rate loop that ticks every bot.
//
// Startup is three steps, each usable on its own (the CLI's `windows`
// and `arrange` commands stop part way):
//
//   - [Discover] polls the window registry until at least the
//     expected number of matching windows exist and the set (handles
//     and rectangles) has not changed for a stabilization interval.
//     Game clients sometimes recreate their window or retitle it
//     while starting; locking on too early would bind a bot to a
//     handle that is about to vanish.
//   - [Build] moves each bot's window into its grid cell (never
//     resizing it, since click coordinates are calibrated against the
//     client size the game was launched with) and creates one
//     [bot.Instance] per bot.
//   - [Orchestrator.Run] ticks every instance in order once per
//     period, then sleeps for whatever is left of the period.
//
// A failing or panicking tick is logged against its bot and the loop
// moves on; one broken window never stalls the others.
package orchestrator

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for the
// scheduler and the per-window state machines.
//
// Every cooldown, timeout and deadline in multibox is a timestamp
// comparison against Clock.Now, and the only blocking wait is the
// scheduler's end-of-period sleep. Production code uses Real(); tests
// use Fake(), whose time moves only when Advance, Sleep or After is
// called.
//
// # Wiring Pattern
//
// Add a Clock field to structs that use time:
//
//	type Machine struct {
//	    clock clock.Clock
//	    // ...
//	}
//
// In tests:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	machine := bot.NewMachine(bot.Config{Clock: c, ...})
//	c.Advance(9 * time.Second)
//	machine.Tick(instance)
//
// # Stepping Fake
//
// The fake is a stepping clock rather than a timer wheel: Sleep and
// After advance the fake time by the requested duration immediately
// and never block. This matches the single-threaded polling design,
// where exactly one goroutine owns the clock and a wait is always
// "sleep the rest of this period".
package clock

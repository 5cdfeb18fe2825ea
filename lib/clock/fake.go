// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"time"
)

// Fake returns a FakeClock initialized to the given time. Time stands
// still until Advance, Sleep or After moves it.
//
// FakeClock is safe for concurrent use by multiple goroutines.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

// FakeClock is a deterministic stepping Clock for testing. Sleep and
// After advance the clock by their duration instead of blocking, and
// every requested wait is recorded so tests can assert on scheduling.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	waits   []time.Duration
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward by d. Negative durations are
// ignored: fake time, like real time, never runs backward.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.current = c.current.Add(d)
	}
}

// Set jumps the clock to t if t is later than the current time.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.After(c.current) {
		c.current = t
	}
}

// After records the wait, advances the clock by d and returns a
// channel that already holds the new time.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.waits = append(c.waits, d)
	if d > 0 {
		c.current = c.current.Add(d)
	}
	channel := make(chan time.Time, 1)
	channel <- c.current
	return channel
}

// Sleep records the wait and advances the clock by d. It never blocks.
func (c *FakeClock) Sleep(d time.Duration) {
	<-c.After(d)
}

// Waits returns a copy of every duration passed to Sleep or After, in
// call order.
func (c *FakeClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	waits := make([]time.Duration, len(c.waits))
	copy(waits, c.waits)
	return waits
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"errors"
	"time"

	"github.com/bureau-foundation/multibox/lib/desktop"
)

// Instance is the mutable state of one bot. It is owned by the
// orchestrator and only ever modified by [Machine.Tick].
type Instance struct {
	// Name identifies the bot in logs and the journal.
	Name string

	// Handle is the bot's window. It never changes; if the window
	// disappears the instance sits in StateRecovery until it comes
	// back.
	Handle desktop.Handle

	State State

	// StateSince is when State was entered.
	StateSince time.Time

	// NextActionAt is the earliest time the next click may be
	// dispatched. It only moves forward.
	NextActionAt time.Time

	// LastProgressAt is the time of the last transition or click.
	// The no-progress timeouts are measured from it.
	LastProgressAt time.Time

	// LastSeenInSession is the last time the presence probe fired.
	LastSeenInSession time.Time

	// LoadingDeadline is set when ACCEPT is clicked. Zero means no
	// deadline.
	LoadingDeadline time.Time
}

// NewInstance returns an instance in StateBoot that may act
// immediately.
func NewInstance(name string, handle desktop.Handle, now time.Time) *Instance {
	return &Instance{
		Name:           name,
		Handle:         handle,
		State:          StateBoot,
		StateSince:     now,
		LastProgressAt: now,
	}
}

// CanAct reports whether the cooldown from the last click has elapsed.
func (i *Instance) CanAct(now time.Time) bool {
	return !now.Before(i.NextActionAt)
}

// bumpCooldown pushes NextActionAt to now+cooldown, never backward.
func (i *Instance) bumpCooldown(now time.Time, cooldown time.Duration) {
	if next := now.Add(cooldown); next.After(i.NextActionAt) {
		i.NextActionAt = next
	}
}

// stalled reports whether more than timeout has passed since the last
// progress.
func (i *Instance) stalled(now time.Time, timeout time.Duration) bool {
	return now.Sub(i.LastProgressAt) > timeout
}

// Timings holds every duration the state machine uses.
type Timings struct {
	// ActionCooldown is the minimum spacing between two clicks.
	ActionCooldown time.Duration

	// ClickSettle is added to the cooldown after a popup or ACCEPT
	// click.
	ClickSettle time.Duration

	// ReadySettle is added to the cooldown after a READY click,
	// giving the lobby time to register it.
	ReadySettle time.Duration

	// InSessionGrace is how long the presence probe may read false
	// before an in-session bot falls back to the main menu.
	InSessionGrace time.Duration

	MainMenuTimeout   time.Duration
	LobbyTimeout      time.Duration
	MatchFoundTimeout time.Duration

	// LoadingBudget is how long loading may take after ACCEPT.
	LoadingBudget time.Duration

	RecoveryTimeout time.Duration
}

// DefaultTimings returns values tuned against the live client.
func DefaultTimings() Timings {
	return Timings{
		ActionCooldown:    350 * time.Millisecond,
		ClickSettle:       250 * time.Millisecond,
		ReadySettle:       400 * time.Millisecond,
		InSessionGrace:    8 * time.Second,
		MainMenuTimeout:   45 * time.Second,
		LobbyTimeout:      20 * time.Second,
		MatchFoundTimeout: 10 * time.Second,
		LoadingBudget:     70 * time.Second,
		RecoveryTimeout:   30 * time.Second,
	}
}

// Validate rejects negative durations and a zero cooldown.
func (t Timings) Validate() error {
	if t.ActionCooldown <= 0 {
		return errors.New("action cooldown must be positive")
	}
	for _, value := range []time.Duration{
		t.ClickSettle, t.ReadySettle, t.InSessionGrace, t.MainMenuTimeout,
		t.LobbyTimeout, t.MatchFoundTimeout, t.LoadingBudget, t.RecoveryTimeout,
	} {
		if value < 0 {
			return errors.New("timings must not be negative")
		}
	}
	return nil
}

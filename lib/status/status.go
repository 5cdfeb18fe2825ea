// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package status

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bureau-foundation/multibox/lib/bot"
	"github.com/bureau-foundation/multibox/lib/clock"
)

// Bot is one bot's entry in a [Snapshot].
type Bot struct {
	Name       string    `json:"name"`
	Handle     string    `json:"handle"`
	State      bot.State `json:"state"`
	StateSince time.Time `json:"state_since"`
}

// Snapshot is the published status of a multibox process.
type Snapshot struct {
	Version   string    `json:"version"`
	PID       int       `json:"pid"`
	UpdatedAt time.Time `json:"updated_at"`
	Bots      []Bot     `json:"bots"`
}

// Write atomically writes snapshot to path. The parent directory must
// already exist.
func Write(path string, snapshot Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling status: %w", err)
	}
	data = append(data, '\n')

	temporaryPath := path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating temporary status file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary status file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary status file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary status file: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming status file into place: %w", err)
	}

	// Directory sync is not supported everywhere; a failure here does
	// not undo the rename.
	if directory, err := os.Open(filepath.Dir(path)); err == nil {
		directory.Sync()
		directory.Close()
	}
	return nil
}

// Read parses the snapshot at path. A missing file yields an error
// wrapping [os.ErrNotExist].
func Read(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("parsing status file %s: %w", path, err)
	}
	return snapshot, nil
}

// Check reads the snapshot at path and reports whether it is fresh:
// written within maxAge of now. A missing file is not an error; it
// returns a zero Snapshot and false. Stale snapshots are returned with
// false so callers can still show when the process was last seen.
func Check(path string, maxAge time.Duration, now time.Time) (Snapshot, bool, error) {
	snapshot, err := Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, err
	}
	return snapshot, now.Sub(snapshot.UpdatedAt) <= maxAge, nil
}

// Clear removes the snapshot at path. Returns nil if it does not
// exist.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing status file: %w", err)
	}
	return nil
}

// Publisher writes snapshots of a set of instances no more often than
// its interval.
type Publisher struct {
	path     string
	interval time.Duration
	version  string
	pid      int
	clock    clock.Clock

	last time.Time
}

// NewPublisher returns a Publisher writing to path. version is
// recorded in every snapshot.
func NewPublisher(path string, interval time.Duration, version string, clk clock.Clock) *Publisher {
	return &Publisher{
		path:     path,
		interval: interval,
		version:  version,
		pid:      os.Getpid(),
		clock:    clk,
	}
}

// Publish writes a snapshot of instances if the interval has elapsed
// since the last write. Not safe for concurrent use.
func (p *Publisher) Publish(instances []*bot.Instance) error {
	now := p.clock.Now()
	if !p.last.IsZero() && now.Sub(p.last) < p.interval {
		return nil
	}
	p.last = now
	return Write(p.path, p.snapshot(instances, now))
}

// Close removes the snapshot so a stopped process does not look
// merely stale.
func (p *Publisher) Close() error {
	return Clear(p.path)
}

func (p *Publisher) snapshot(instances []*bot.Instance, now time.Time) Snapshot {
	snapshot := Snapshot{
		Version:   p.version,
		PID:       p.pid,
		UpdatedAt: now,
		Bots:      make([]Bot, len(instances)),
	}
	for i, instance := range instances {
		snapshot.Bots[i] = Bot{
			Name:       instance.Name,
			Handle:     instance.Handle.String(),
			State:      instance.State,
			StateSince: instance.StateSince,
		}
	}
	return snapshot
}

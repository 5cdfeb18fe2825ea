// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vision

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/multibox/lib/clock"
)

func newTestDumper(t *testing.T, fakeClock *clock.FakeClock) (*Dumper, string) {
	t.Helper()
	detector := newTestDetector(t)
	directory := filepath.Join(t.TempDir(), "dumps")
	dumper, err := NewDumper(DumperConfig{
		Directory: directory,
		Interval:  5 * time.Second,
		Detector:  detector,
		Masker:    detector,
		Clock:     fakeClock,
	})
	if err != nil {
		t.Fatalf("NewDumper: %v", err)
	}
	return dumper, directory
}

func listDump(t *testing.T, directory string) []string {
	t.Helper()
	entries, err := os.ReadDir(directory)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestDumperWritesFrameAnnotationAndMasks(t *testing.T) {
	fakeClock := clock.Fake(epoch)
	dumper, directory := newTestDumper(t, fakeClock)
	frame := blankFrame(t)
	fill(frame, Rect{X: 450, Y: 420, Width: 120, Height: 40}, green)

	wrote, err := dumper.Dump("bot 1", frame)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if !wrote {
		t.Fatal("expected first dump to be written")
	}

	names := listDump(t, directory)
	// frame + vis + one mask per class
	if len(names) != 2+len(Classes) {
		t.Fatalf("expected %d files, got %v", 2+len(Classes), names)
	}
	for _, name := range names {
		if !strings.HasPrefix(name, "bot_1_20260101_000000_") {
			t.Errorf("unexpected file name %q", name)
		}
	}
}

func TestDumperRateLimitsAndSkipsUnchangedFrames(t *testing.T) {
	fakeClock := clock.Fake(epoch)
	dumper, directory := newTestDumper(t, fakeClock)
	frame := blankFrame(t)

	if wrote, err := dumper.Dump("alpha", frame); err != nil || !wrote {
		t.Fatalf("expected first dump, got wrote=%v err=%v", wrote, err)
	}
	before := len(listDump(t, directory))

	fakeClock.Advance(time.Second)
	if dumper.Due("alpha") {
		t.Error("expected dumper not due one second later")
	}
	if wrote, _ := dumper.Dump("alpha", frame); wrote {
		t.Error("expected rate-limited dump to be skipped")
	}

	fakeClock.Advance(5 * time.Second)
	if wrote, _ := dumper.Dump("alpha", frame); wrote {
		t.Error("expected identical frame to be skipped")
	}
	if after := len(listDump(t, directory)); after != before {
		t.Errorf("expected %d files, got %d", before, after)
	}

	// Other bots have their own schedule.
	if !dumper.Due("beta") {
		t.Error("expected a different bot to be due")
	}
}

func TestDumperNamesFilesByCaptureTime(t *testing.T) {
	// The clock has moved on since the frame was captured.
	fakeClock := clock.Fake(epoch.Add(90 * time.Second))
	dumper, directory := newTestDumper(t, fakeClock)

	if wrote, err := dumper.Dump("alpha", blankFrame(t)); err != nil || !wrote {
		t.Fatalf("expected dump, got wrote=%v err=%v", wrote, err)
	}
	for _, name := range listDump(t, directory) {
		if !strings.HasPrefix(name, "alpha_20260101_000000_") {
			t.Errorf("expected capture-time prefix alpha_20260101_000000_, got %q", name)
		}
	}
}

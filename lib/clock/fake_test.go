// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClockNow(t *testing.T) {
	clock := Fake(epoch)
	if got := clock.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	clock.Advance(5 * time.Second)
	want := epoch.Add(5 * time.Second)
	if got := clock.Now(); !got.Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestFakeClockAdvanceIgnoresNegative(t *testing.T) {
	clock := Fake(epoch)
	clock.Advance(-time.Second)
	if got := clock.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() after negative Advance = %v, want %v", got, epoch)
	}
}

func TestFakeClockSetOnlyMovesForward(t *testing.T) {
	clock := Fake(epoch)
	clock.Set(epoch.Add(-time.Hour))
	if got := clock.Now(); !got.Equal(epoch) {
		t.Fatalf("Set to the past moved the clock to %v", got)
	}
	later := epoch.Add(time.Minute)
	clock.Set(later)
	if got := clock.Now(); !got.Equal(later) {
		t.Fatalf("Now() = %v, want %v", got, later)
	}
}

func TestFakeClockSleepAdvances(t *testing.T) {
	clock := Fake(epoch)
	clock.Sleep(250 * time.Millisecond)
	clock.Sleep(0)
	clock.Sleep(750 * time.Millisecond)

	want := epoch.Add(time.Second)
	if got := clock.Now(); !got.Equal(want) {
		t.Fatalf("Now() after Sleep = %v, want %v", got, want)
	}

	waits := clock.Waits()
	expected := []time.Duration{250 * time.Millisecond, 0, 750 * time.Millisecond}
	if len(waits) != len(expected) {
		t.Fatalf("expected %d recorded waits, got %d", len(expected), len(waits))
	}
	for i := range expected {
		if waits[i] != expected[i] {
			t.Errorf("wait %d: expected %v, got %v", i, expected[i], waits[i])
		}
	}
}

func TestFakeClockAfterDeliversAdvancedTime(t *testing.T) {
	clock := Fake(epoch)
	channel := clock.After(3 * time.Second)

	select {
	case fired := <-channel:
		want := epoch.Add(3 * time.Second)
		if !fired.Equal(want) {
			t.Fatalf("After delivered %v, want %v", fired, want)
		}
	default:
		t.Fatal("After channel was empty")
	}
}

func TestRealClockNowMonotonic(t *testing.T) {
	clock := Real()
	first := clock.Now()
	second := clock.Now()
	if second.Before(first) {
		t.Fatalf("Real().Now() went backward: %v then %v", first, second)
	}
}

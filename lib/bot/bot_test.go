// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"bytes"
	"errors"
	"image"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/multibox/lib/clock"
	"github.com/bureau-foundation/multibox/lib/desktop"
	"github.com/bureau-foundation/multibox/lib/journal"
	"github.com/bureau-foundation/multibox/lib/vision"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

const testHandle desktop.Handle = 0x1001

// clientOrigin is where the test window's client area sits on screen.
var clientOrigin = image.Pt(1000, 200)

type fakeWindows struct {
	present       bool
	clientErr     error
	foregroundErr error
	foregrounds   int
}

func (f *fakeWindows) Lookup(handle desktop.Handle) (desktop.WindowInfo, bool) {
	if !f.present {
		return desktop.WindowInfo{}, false
	}
	return desktop.WindowInfo{Handle: handle, Title: "Game", Rect: image.Rect(992, 170, 1648, 748)}, true
}

func (f *fakeWindows) ClientBounds(desktop.Handle) (image.Rectangle, error) {
	if f.clientErr != nil {
		return image.Rectangle{}, f.clientErr
	}
	return image.Rectangle{Min: clientOrigin, Max: clientOrigin.Add(image.Pt(640, 540))}, nil
}

func (f *fakeWindows) Foreground(desktop.Handle) error {
	f.foregrounds++
	return f.foregroundErr
}

type fakeCapturer struct {
	clock    clock.Clock
	err      error
	captures int
}

func (f *fakeCapturer) Capture(image.Rectangle) (*vision.Frame, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.captures++
	return vision.NewFrame(nil, f.clock.Now()), nil
}

type fakeDetector struct {
	visible map[vision.Class]vision.Rect
	calls   map[vision.Class]int
	err     error
}

func (f *fakeDetector) Detect(_ *vision.Frame, class vision.Class) (vision.Rect, bool, error) {
	f.calls[class]++
	if f.err != nil {
		return vision.Rect{}, false, f.err
	}
	rect, ok := f.visible[class]
	return rect, ok, nil
}

type fakeProbe struct{ inSession bool }

func (f *fakeProbe) InSession(*vision.Frame) (bool, error) { return f.inSession, nil }

type click struct {
	at    time.Time
	point image.Point
}

type fakePointer struct {
	clock  clock.Clock
	clicks []click
}

func (f *fakePointer) Click(x, y int) error {
	f.clicks = append(f.clicks, click{at: f.clock.Now(), point: image.Pt(x, y)})
	return nil
}

type memoryRecorder struct{ records []journal.Record }

func (m *memoryRecorder) Record(record journal.Record) error {
	m.records = append(m.records, record)
	return nil
}

type harness struct {
	t        *testing.T
	clock    *clock.FakeClock
	windows  *fakeWindows
	capturer *fakeCapturer
	detector *fakeDetector
	probe    *fakeProbe
	pointer  *fakePointer
	recorder *memoryRecorder
	logs     *bytes.Buffer
	machine  *Machine
}

var readyRect = vision.Rect{X: 100, Y: 100, Width: 80, Height: 30}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fakeClock := clock.Fake(epoch)
	h := &harness{
		t:        t,
		clock:    fakeClock,
		windows:  &fakeWindows{present: true},
		capturer: &fakeCapturer{clock: fakeClock},
		detector: &fakeDetector{
			visible: map[vision.Class]vision.Rect{},
			calls:   map[vision.Class]int{},
		},
		probe:    &fakeProbe{},
		pointer:  &fakePointer{clock: fakeClock},
		recorder: &memoryRecorder{},
		logs:     &bytes.Buffer{},
	}
	machine, err := NewMachine(Config{
		Windows:  h.windows,
		Capturer: h.capturer,
		Detector: h.detector,
		Probe:    h.probe,
		Clicker:  desktop.NewDispatcher(h.windows, h.pointer),
		Clock:    fakeClock,
		Logger:   slog.New(slog.NewTextHandler(h.logs, nil)),
		Timings:  DefaultTimings(),
		Recorder: h.recorder,
	})
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	h.machine = machine
	return h
}

// instanceIn returns an instance already in state, entered at the
// current fake time.
func (h *harness) instanceIn(state State) *Instance {
	instance := NewInstance("alpha", testHandle, h.clock.Now())
	instance.State = state
	return instance
}

func (h *harness) tick(instance *Instance) {
	h.t.Helper()
	if err := h.machine.Tick(instance); err != nil {
		h.t.Fatalf("Tick: %v", err)
	}
}

func (h *harness) show(class vision.Class, rect vision.Rect) { h.detector.visible[class] = rect }
func (h *harness) hide(class vision.Class)                   { delete(h.detector.visible, class) }

func expectState(t *testing.T, instance *Instance, want State) {
	t.Helper()
	if instance.State != want {
		t.Fatalf("expected state %v, got %v", want, instance.State)
	}
}

func TestBootAdvancesToMainMenu(t *testing.T) {
	h := newHarness(t)
	instance := NewInstance("alpha", testHandle, epoch)

	h.tick(instance)
	expectState(t, instance, StateMainMenu)
	if len(h.pointer.clicks) != 0 {
		t.Errorf("expected no clicks, got %d", len(h.pointer.clicks))
	}
}

func TestTransitionLogLine(t *testing.T) {
	h := newHarness(t)
	instance := NewInstance("alpha", testHandle, epoch)

	h.tick(instance)
	logs := h.logs.String()
	for _, want := range []string{`msg="alpha: BOOT -> MAIN_MENU"`, "bot=alpha", "from=BOOT", "to=MAIN_MENU"} {
		if !strings.Contains(logs, want) {
			t.Errorf("expected log to contain %s, got:\n%s", want, logs)
		}
	}

	// Staying in a state logs nothing.
	h.logs.Reset()
	h.tick(instance)
	if strings.Contains(h.logs.String(), "->") {
		t.Errorf("expected no transition line without a state change, got:\n%s", h.logs.String())
	}
}

func TestMainMenuReadyEntersLobbyThenClicksReady(t *testing.T) {
	h := newHarness(t)
	instance := h.instanceIn(StateMainMenu)
	h.show(vision.ClassReady, readyRect)

	h.tick(instance)
	expectState(t, instance, StateLobby)
	if len(h.pointer.clicks) != 0 {
		t.Fatalf("expected recognising the lobby not to click, got %d clicks", len(h.pointer.clicks))
	}

	h.tick(instance)
	expectState(t, instance, StateLobby)
	if len(h.pointer.clicks) != 1 {
		t.Fatalf("expected 1 click, got %d", len(h.pointer.clicks))
	}
	// Frame-local centre (140,115) plus the client origin.
	if want := image.Pt(1140, 315); h.pointer.clicks[0].point != want {
		t.Errorf("expected click at %v, got %v", want, h.pointer.clicks[0].point)
	}
	wantNext := epoch.Add(350*time.Millisecond + 400*time.Millisecond)
	if !instance.NextActionAt.Equal(wantNext) {
		t.Errorf("expected next action at %v, got %v", wantNext, instance.NextActionAt)
	}
}

func TestLoadingPastDeadlineEntersRecovery(t *testing.T) {
	h := newHarness(t)
	instance := h.instanceIn(StateLoading)
	instance.LoadingDeadline = h.clock.Now().Add(-time.Second)

	h.tick(instance)
	expectState(t, instance, StateRecovery)
}

func TestLoadingWithinDeadlineWaits(t *testing.T) {
	h := newHarness(t)
	instance := h.instanceIn(StateLoading)
	instance.LoadingDeadline = h.clock.Now().Add(time.Second)

	h.tick(instance)
	expectState(t, instance, StateLoading)

	h.probe.inSession = true
	h.tick(instance)
	expectState(t, instance, StateInSession)
}

func TestInSessionGracePeriod(t *testing.T) {
	h := newHarness(t)
	instance := h.instanceIn(StateInSession)

	instance.LastSeenInSession = h.clock.Now().Add(-7 * time.Second)
	h.tick(instance)
	expectState(t, instance, StateInSession)

	instance.LastSeenInSession = h.clock.Now().Add(-9 * time.Second)
	h.tick(instance)
	expectState(t, instance, StateMainMenu)
}

func TestPresenceOverridesAnyState(t *testing.T) {
	for _, state := range []State{StateBoot, StateMainMenu, StateLobby, StateMatchFound, StateRecovery} {
		t.Run(state.String(), func(t *testing.T) {
			h := newHarness(t)
			instance := h.instanceIn(state)
			h.probe.inSession = true
			h.show(vision.ClassReconnect, readyRect)
			h.show(vision.ClassReady, readyRect)

			h.tick(instance)
			expectState(t, instance, StateInSession)
			if !instance.LastSeenInSession.Equal(h.clock.Now()) {
				t.Errorf("expected last seen in session %v, got %v", h.clock.Now(), instance.LastSeenInSession)
			}
			if len(h.pointer.clicks) != 0 {
				t.Errorf("expected no clicks while in session, got %d", len(h.pointer.clicks))
			}
		})
	}
}

func TestWindowLossEntersRecoveryAndStays(t *testing.T) {
	h := newHarness(t)
	instance := h.instanceIn(StateLobby)
	h.windows.present = false
	h.show(vision.ClassReady, readyRect)

	h.tick(instance)
	expectState(t, instance, StateRecovery)
	lostAt := instance.LastProgressAt

	for range 20 {
		h.clock.Advance(time.Second)
		h.tick(instance)
		expectState(t, instance, StateRecovery)
	}
	if !instance.LastProgressAt.Equal(lostAt) {
		t.Errorf("expected progress timer untouched while window is missing, got %v", instance.LastProgressAt)
	}
	if h.capturer.captures != 0 {
		t.Errorf("expected no captures of a missing window, got %d", h.capturer.captures)
	}

	h.windows.present = true
	h.tick(instance)
	expectState(t, instance, StateLobby)
}

func TestWindowGoneDuringTickEntersRecovery(t *testing.T) {
	h := newHarness(t)
	instance := h.instanceIn(StateMainMenu)
	h.windows.clientErr = desktop.ErrWindowGone

	h.tick(instance)
	expectState(t, instance, StateRecovery)
}

func TestForegroundFailureIsIgnored(t *testing.T) {
	h := newHarness(t)
	instance := NewInstance("alpha", testHandle, epoch)
	h.windows.foregroundErr = errors.New("access denied")

	h.tick(instance)
	expectState(t, instance, StateMainMenu)
	if h.windows.foregrounds != 1 {
		t.Errorf("expected 1 foreground attempt, got %d", h.windows.foregrounds)
	}
}

func TestTickErrorsPropagate(t *testing.T) {
	h := newHarness(t)
	instance := h.instanceIn(StateMainMenu)

	captureFailure := errors.New("no framebuffer")
	h.capturer.err = captureFailure
	if err := h.machine.Tick(instance); !errors.Is(err, captureFailure) {
		t.Fatalf("expected capture error, got %v", err)
	}
	h.capturer.err = nil

	detectFailure := errors.New("bad mat")
	h.detector.err = detectFailure
	if err := h.machine.Tick(instance); !errors.Is(err, detectFailure) {
		t.Fatalf("expected detector error, got %v", err)
	}

	h.detector.err = nil
	h.windows.clientErr = errors.New("GetClientRect failed")
	if err := h.machine.Tick(instance); err == nil {
		t.Fatal("expected client bounds error")
	}
	expectState(t, instance, StateMainMenu)
}

func TestOverrideRulesPrecedence(t *testing.T) {
	h := newHarness(t)
	instance := h.instanceIn(StateLobby)
	reconnect := vision.Rect{X: 200, Y: 300, Width: 120, Height: 40}
	confirm := vision.Rect{X: 260, Y: 250, Width: 100, Height: 36}
	h.show(vision.ClassReconnect, reconnect)
	h.show(vision.ClassConfirm, confirm)
	h.show(vision.ClassAccept, readyRect)

	h.tick(instance)
	if len(h.pointer.clicks) != 1 || h.pointer.clicks[0].point != reconnect.Center().Add(clientOrigin) {
		t.Fatalf("expected a single reconnect click, got %+v", h.pointer.clicks)
	}
	expectState(t, instance, StateLobby)

	h.hide(vision.ClassReconnect)
	h.clock.Advance(time.Second)
	h.tick(instance)
	if len(h.pointer.clicks) != 2 || h.pointer.clicks[1].point != confirm.Center().Add(clientOrigin) {
		t.Fatalf("expected a confirm click second, got %+v", h.pointer.clicks)
	}
	expectState(t, instance, StateLobby)

	h.hide(vision.ClassConfirm)
	h.clock.Advance(time.Second)
	h.tick(instance)
	expectState(t, instance, StateMatchFound)
}

func TestPopupWaitsForCooldown(t *testing.T) {
	h := newHarness(t)
	instance := h.instanceIn(StateMainMenu)
	instance.NextActionAt = h.clock.Now().Add(100 * time.Millisecond)
	h.show(vision.ClassConfirm, readyRect)

	h.tick(instance)
	if len(h.pointer.clicks) != 0 {
		t.Fatalf("expected no click during cooldown, got %d", len(h.pointer.clicks))
	}

	h.clock.Advance(100 * time.Millisecond)
	h.tick(instance)
	if len(h.pointer.clicks) != 1 {
		t.Fatalf("expected click once cooldown elapsed, got %d", len(h.pointer.clicks))
	}
	if !instance.LastProgressAt.Equal(h.clock.Now()) {
		t.Errorf("expected click to record progress")
	}
}

func TestCooldownSpacesClicks(t *testing.T) {
	h := newHarness(t)
	instance := h.instanceIn(StateLobby)
	h.show(vision.ClassReady, readyRect)

	for i := range 200 {
		// Popups come and go while the READY button stays visible.
		if i%7 == 0 {
			h.show(vision.ClassReconnect, readyRect)
		} else {
			h.hide(vision.ClassReconnect)
		}
		h.tick(instance)
		h.clock.Advance(30 * time.Millisecond)
	}

	if len(h.pointer.clicks) < 2 {
		t.Fatalf("expected several clicks, got %d", len(h.pointer.clicks))
	}
	cooldown := DefaultTimings().ActionCooldown
	for i := 1; i < len(h.pointer.clicks); i++ {
		gap := h.pointer.clicks[i].at.Sub(h.pointer.clicks[i-1].at)
		if gap < cooldown {
			t.Fatalf("clicks %d and %d only %v apart, cooldown is %v", i-1, i, gap, cooldown)
		}
	}
}

func TestCooldownNeverMovesBackward(t *testing.T) {
	instance := NewInstance("alpha", testHandle, epoch)
	instance.bumpCooldown(epoch, 2*time.Second)
	instance.bumpCooldown(epoch.Add(time.Second), 100*time.Millisecond)
	if want := epoch.Add(2 * time.Second); !instance.NextActionAt.Equal(want) {
		t.Errorf("expected next action at %v, got %v", want, instance.NextActionAt)
	}
}

func TestMatchFoundAcceptStartsLoading(t *testing.T) {
	h := newHarness(t)
	instance := h.instanceIn(StateMatchFound)
	accept := vision.Rect{X: 250, Y: 350, Width: 140, Height: 45}
	h.show(vision.ClassAccept, accept)

	h.tick(instance)
	expectState(t, instance, StateLoading)
	if len(h.pointer.clicks) != 1 || h.pointer.clicks[0].point != accept.Center().Add(clientOrigin) {
		t.Fatalf("expected one accept click, got %+v", h.pointer.clicks)
	}
	if want := epoch.Add(70 * time.Second); !instance.LoadingDeadline.Equal(want) {
		t.Errorf("expected loading deadline %v, got %v", want, instance.LoadingDeadline)
	}
}

func TestMatchFoundAcceptDuringCooldownWaits(t *testing.T) {
	h := newHarness(t)
	instance := h.instanceIn(StateMatchFound)
	instance.NextActionAt = epoch.Add(time.Minute)
	h.show(vision.ClassAccept, readyRect)

	h.clock.Advance(30 * time.Second)
	h.tick(instance)
	expectState(t, instance, StateMatchFound)
}

func TestMatchFoundTimeoutFallsBack(t *testing.T) {
	tests := []struct {
		name      string
		readySeen bool
		want      State
	}{
		{"ready visible", true, StateLobby},
		{"nothing visible", false, StateMainMenu},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			h := newHarness(t)
			instance := h.instanceIn(StateMatchFound)
			if test.readySeen {
				h.show(vision.ClassReady, readyRect)
			}

			h.clock.Advance(10 * time.Second)
			h.tick(instance)
			expectState(t, instance, StateMatchFound)

			h.clock.Advance(time.Millisecond)
			h.tick(instance)
			expectState(t, instance, test.want)
		})
	}
}

func TestLobbyTimeoutWithoutReady(t *testing.T) {
	h := newHarness(t)
	instance := h.instanceIn(StateLobby)

	h.clock.Advance(20 * time.Second)
	h.tick(instance)
	expectState(t, instance, StateLobby)

	h.clock.Advance(time.Millisecond)
	h.tick(instance)
	expectState(t, instance, StateMainMenu)
}

func TestMainMenuTimeoutEntersRecovery(t *testing.T) {
	h := newHarness(t)
	instance := h.instanceIn(StateMainMenu)

	h.clock.Advance(45 * time.Second)
	h.tick(instance)
	expectState(t, instance, StateMainMenu)

	h.clock.Advance(time.Millisecond)
	h.tick(instance)
	expectState(t, instance, StateRecovery)
}

func TestMainMenuAcceptEntersMatchFound(t *testing.T) {
	h := newHarness(t)
	instance := h.instanceIn(StateMainMenu)
	h.show(vision.ClassAccept, readyRect)

	h.tick(instance)
	expectState(t, instance, StateMatchFound)
}

func TestRecovery(t *testing.T) {
	tests := []struct {
		name    string
		visible []vision.Class
		advance time.Duration
		want    State
	}{
		{"ready returns to lobby", []vision.Class{vision.ClassReady}, 0, StateLobby},
		{"accept returns to match found", []vision.Class{vision.ClassAccept}, 0, StateMatchFound},
		{"ready preferred over accept", []vision.Class{vision.ClassAccept, vision.ClassReady}, 0, StateLobby},
		{"waits before soft reset", nil, 30 * time.Second, StateRecovery},
		{"soft reset after timeout", nil, 30*time.Second + time.Millisecond, StateMainMenu},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			h := newHarness(t)
			instance := h.instanceIn(StateRecovery)
			for _, class := range test.visible {
				h.show(class, readyRect)
			}
			h.clock.Advance(test.advance)
			h.tick(instance)
			expectState(t, instance, test.want)
		})
	}
}

func TestTransitionResetsTimers(t *testing.T) {
	h := newHarness(t)
	instance := h.instanceIn(StateMainMenu)
	h.clock.Advance(5 * time.Second)
	h.show(vision.ClassReady, readyRect)

	h.tick(instance)
	now := h.clock.Now()
	if !instance.StateSince.Equal(now) || !instance.LastProgressAt.Equal(now) {
		t.Errorf("expected state and progress timestamps %v, got %v and %v",
			now, instance.StateSince, instance.LastProgressAt)
	}
}

func TestDetectionsComputedOncePerTick(t *testing.T) {
	h := newHarness(t)
	instance := h.instanceIn(StateMatchFound)

	// Stalled in MATCH_FOUND with nothing visible: every class is
	// consulted, READY only after ACCEPT came back empty.
	h.clock.Advance(11 * time.Second)
	h.tick(instance)
	for class, calls := range h.detector.calls {
		if calls != 1 {
			t.Errorf("expected %v detected once, got %d", class, calls)
		}
	}
}

func TestTransitionsAreJournaled(t *testing.T) {
	h := newHarness(t)
	instance := NewInstance("alpha", testHandle, epoch)
	h.show(vision.ClassReady, readyRect)

	h.tick(instance) // BOOT -> MAIN_MENU
	h.tick(instance) // MAIN_MENU -> LOBBY
	h.tick(instance) // READY click

	var kinds []journal.Kind
	for _, record := range h.recorder.records {
		kinds = append(kinds, record.Kind)
	}
	want := []journal.Kind{journal.KindTransition, journal.KindTransition, journal.KindClick}
	if len(kinds) != len(want) {
		t.Fatalf("expected records %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("expected records %v, got %v", want, kinds)
		}
	}
	second := h.recorder.records[1]
	if second.From != "MAIN_MENU" || second.To != "LOBBY" || second.Bot != "alpha" {
		t.Errorf("unexpected transition record %+v", second)
	}
	if clicked := h.recorder.records[2]; clicked.Class != "READY" || clicked.Point == nil || *clicked.Point != image.Pt(1140, 315) {
		t.Errorf("unexpected click record %+v", clicked)
	}
}

// scriptedRun drives a fresh harness through a fixed sequence of
// screens and returns the states and clicks it produced.
func scriptedRun(t *testing.T) ([]State, []click) {
	h := newHarness(t)
	instance := NewInstance("alpha", testHandle, epoch)
	screens := []func(){
		func() {},
		func() { h.show(vision.ClassReady, readyRect) },
		func() {},
		func() { h.hide(vision.ClassReady); h.show(vision.ClassAccept, readyRect) },
		func() {},
		func() { h.hide(vision.ClassAccept) },
		func() { h.probe.inSession = true },
		func() { h.probe.inSession = false },
	}
	var states []State
	for _, screen := range screens {
		screen()
		for range 3 {
			h.tick(instance)
			states = append(states, instance.State)
			h.clock.Advance(400 * time.Millisecond)
		}
	}
	return states, h.pointer.clicks
}

func TestTickIsDeterministic(t *testing.T) {
	firstStates, firstClicks := scriptedRun(t)
	secondStates, secondClicks := scriptedRun(t)

	if len(firstStates) != len(secondStates) || len(firstClicks) != len(secondClicks) {
		t.Fatalf("runs diverged: %d/%d states, %d/%d clicks",
			len(firstStates), len(secondStates), len(firstClicks), len(secondClicks))
	}
	for i := range firstStates {
		if firstStates[i] != secondStates[i] {
			t.Fatalf("tick %d: %v vs %v", i, firstStates[i], secondStates[i])
		}
	}
	for i := range firstClicks {
		if firstClicks[i] != secondClicks[i] {
			t.Fatalf("click %d: %+v vs %+v", i, firstClicks[i], secondClicks[i])
		}
	}
	if firstStates[len(firstStates)-1] != StateInSession {
		t.Errorf("expected the run to end in session within the grace period, got %v", firstStates[len(firstStates)-1])
	}
}

func TestNewMachineRequiresCollaborators(t *testing.T) {
	if _, err := NewMachine(Config{}); err == nil {
		t.Fatal("expected error for empty config")
	}
	h := newHarness(t)
	_, err := NewMachine(Config{
		Windows:  h.windows,
		Capturer: h.capturer,
		Detector: h.detector,
		Probe:    h.probe,
		Clicker:  desktop.NewDispatcher(h.windows, h.pointer),
		Clock:    h.clock,
	})
	if err == nil {
		t.Fatal("expected error for zero timings")
	}
}

func TestStateNames(t *testing.T) {
	for state := StateBoot; state < stateCount; state++ {
		parsed, err := ParseState(state.String())
		if err != nil {
			t.Fatalf("ParseState(%q): %v", state, err)
		}
		if parsed != state {
			t.Errorf("expected %v, got %v", state, parsed)
		}
	}
	if _, err := ParseState("IN_GAME"); err == nil {
		t.Error("expected error for unknown state name")
	}
	if got := State(42).String(); got != "State(42)" {
		t.Errorf("expected State(42), got %s", got)
	}
}

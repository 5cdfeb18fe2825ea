// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/bureau-foundation/multibox/lib/capture"
	"github.com/bureau-foundation/multibox/lib/clock"
	"github.com/bureau-foundation/multibox/lib/desktop"
	"github.com/bureau-foundation/multibox/lib/journal"
	"github.com/bureau-foundation/multibox/lib/vision"
)

// Windows is the part of the window registry a tick needs.
type Windows interface {
	Lookup(handle desktop.Handle) (desktop.WindowInfo, bool)
	ClientBounds(handle desktop.Handle) (image.Rectangle, error)
	Foreground(handle desktop.Handle) error
}

// Clicker clicks the centre of a frame-local rectangle in a window.
// [desktop.Dispatcher] implements it.
type Clicker interface {
	Click(handle desktop.Handle, rect vision.Rect) (image.Point, error)
}

// Recorder receives journal records. [journal.Writer] implements it.
type Recorder interface {
	Record(record journal.Record) error
}

// Config holds a Machine's collaborators. Dumper and Recorder are
// optional; everything else is required.
type Config struct {
	Windows  Windows
	Capturer capture.Capturer
	Detector vision.Detector
	Probe    vision.Probe
	Clicker  Clicker
	Clock    clock.Clock
	Logger   *slog.Logger
	Timings  Timings

	Dumper   *vision.Dumper
	Recorder Recorder
}

// Machine advances instances. It holds no per-instance state, so one
// Machine serves every bot.
type Machine struct {
	windows  Windows
	capturer capture.Capturer
	detector vision.Detector
	probe    vision.Probe
	clicker  Clicker
	clock    clock.Clock
	logger   *slog.Logger
	timings  Timings
	dumper   *vision.Dumper
	recorder Recorder
}

// NewMachine validates config and returns a Machine.
func NewMachine(config Config) (*Machine, error) {
	switch {
	case config.Windows == nil:
		return nil, errors.New("bot: Windows is required")
	case config.Capturer == nil:
		return nil, errors.New("bot: Capturer is required")
	case config.Detector == nil:
		return nil, errors.New("bot: Detector is required")
	case config.Probe == nil:
		return nil, errors.New("bot: Probe is required")
	case config.Clicker == nil:
		return nil, errors.New("bot: Clicker is required")
	case config.Clock == nil:
		return nil, errors.New("bot: Clock is required")
	}
	if err := config.Timings.Validate(); err != nil {
		return nil, fmt.Errorf("bot: %w", err)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Machine{
		windows:  config.Windows,
		capturer: config.Capturer,
		detector: config.Detector,
		probe:    config.Probe,
		clicker:  config.Clicker,
		clock:    config.Clock,
		logger:   logger,
		timings:  config.Timings,
		dumper:   config.Dumper,
		recorder: config.Recorder,
	}, nil
}

// Tick evaluates one instance against a freshly captured frame. A
// missing window is not an error: the instance moves to StateRecovery.
// Errors from capture, detection or clicking are returned without
// retry; the next tick starts over from a new frame.
func (m *Machine) Tick(instance *Instance) error {
	now := m.clock.Now()

	if _, ok := m.windows.Lookup(instance.Handle); !ok {
		m.transition(instance, StateRecovery, now)
		return nil
	}

	if err := m.windows.Foreground(instance.Handle); err != nil {
		m.logger.Debug("foreground failed", "bot", instance.Name, "error", err)
	}

	bounds, err := m.windows.ClientBounds(instance.Handle)
	if errors.Is(err, desktop.ErrWindowGone) {
		m.transition(instance, StateRecovery, now)
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolving client area: %w", err)
	}

	frame, err := m.capturer.Capture(bounds)
	if err != nil {
		return fmt.Errorf("capturing %v: %w", bounds, err)
	}
	defer frame.Close()

	m.dump(instance, frame)

	inSession, err := m.probe.InSession(frame)
	if err != nil {
		return fmt.Errorf("presence probe: %w", err)
	}
	if inSession {
		instance.LastSeenInSession = now
	}

	observation := newObservation(m.detector, frame, inSession)
	for _, rule := range overrideRules {
		handled, err := rule.apply(m, instance, observation, now)
		if err != nil {
			return fmt.Errorf("%s override: %w", rule.name, err)
		}
		if handled {
			return nil
		}
	}
	return m.dispatch(instance, observation, now)
}

// dispatch runs the handler for the instance's current state. The
// in-session override has already run, so observation.inSession is
// false here.
func (m *Machine) dispatch(instance *Instance, observation *observation, now time.Time) error {
	switch instance.State {
	case StateBoot:
		m.transition(instance, StateMainMenu, now)
		return nil
	case StateInSession:
		if now.Sub(instance.LastSeenInSession) > m.timings.InSessionGrace {
			m.transition(instance, StateMainMenu, now)
		}
		return nil
	case StateMainMenu:
		return m.mainMenu(instance, observation, now)
	case StateLobby:
		return m.lobby(instance, observation, now)
	case StateMatchFound:
		return m.matchFound(instance, observation, now)
	case StateLoading:
		if !instance.LoadingDeadline.IsZero() && now.After(instance.LoadingDeadline) {
			m.transition(instance, StateRecovery, now)
		}
		return nil
	case StateRecovery:
		return m.recovery(instance, observation, now)
	default:
		return fmt.Errorf("instance %s in invalid state %v", instance.Name, instance.State)
	}
}

func (m *Machine) mainMenu(instance *Instance, observation *observation, now time.Time) error {
	_, ready, err := observation.detect(vision.ClassReady)
	if err != nil {
		return err
	}
	if ready {
		m.transition(instance, StateLobby, now)
		return nil
	}
	_, accept, err := observation.detect(vision.ClassAccept)
	if err != nil {
		return err
	}
	if accept {
		m.transition(instance, StateMatchFound, now)
		return nil
	}
	if instance.stalled(now, m.timings.MainMenuTimeout) {
		m.transition(instance, StateRecovery, now)
	}
	return nil
}

func (m *Machine) lobby(instance *Instance, observation *observation, now time.Time) error {
	_, accept, err := observation.detect(vision.ClassAccept)
	if err != nil {
		return err
	}
	if accept {
		m.transition(instance, StateMatchFound, now)
		return nil
	}
	readyRect, ready, err := observation.detect(vision.ClassReady)
	if err != nil {
		return err
	}
	if ready && instance.CanAct(now) {
		return m.click(instance, vision.ClassReady, readyRect, m.timings.ReadySettle, now)
	}
	if !ready && instance.stalled(now, m.timings.LobbyTimeout) {
		m.transition(instance, StateMainMenu, now)
	}
	return nil
}

func (m *Machine) matchFound(instance *Instance, observation *observation, now time.Time) error {
	acceptRect, accept, err := observation.detect(vision.ClassAccept)
	if err != nil {
		return err
	}
	if accept && instance.CanAct(now) {
		if err := m.click(instance, vision.ClassAccept, acceptRect, m.timings.ClickSettle, now); err != nil {
			return err
		}
		m.transition(instance, StateLoading, now)
		instance.LoadingDeadline = now.Add(m.timings.LoadingBudget)
		return nil
	}
	if accept || !instance.stalled(now, m.timings.MatchFoundTimeout) {
		return nil
	}
	_, ready, err := observation.detect(vision.ClassReady)
	if err != nil {
		return err
	}
	if ready {
		m.transition(instance, StateLobby, now)
	} else {
		m.transition(instance, StateMainMenu, now)
	}
	return nil
}

func (m *Machine) recovery(instance *Instance, observation *observation, now time.Time) error {
	_, ready, err := observation.detect(vision.ClassReady)
	if err != nil {
		return err
	}
	if ready {
		m.transition(instance, StateLobby, now)
		return nil
	}
	_, accept, err := observation.detect(vision.ClassAccept)
	if err != nil {
		return err
	}
	if accept {
		m.transition(instance, StateMatchFound, now)
		return nil
	}
	if instance.stalled(now, m.timings.RecoveryTimeout) {
		m.transition(instance, StateMainMenu, now)
	}
	return nil
}

// click dispatches a click on rect and consumes the cooldown plus
// settle. The click counts as progress.
func (m *Machine) click(instance *Instance, class vision.Class, rect vision.Rect, settle time.Duration, now time.Time) error {
	point, err := m.clicker.Click(instance.Handle, rect)
	if err != nil {
		return fmt.Errorf("clicking %v: %w", class, err)
	}
	instance.bumpCooldown(now, m.timings.ActionCooldown+settle)
	instance.LastProgressAt = now

	m.logger.Debug("clicked",
		"bot", instance.Name,
		"class", class.String(),
		"rect", rect.String(),
		"x", point.X,
		"y", point.Y,
	)
	m.record(journal.Record{
		Time:  now,
		Bot:   instance.Name,
		Kind:  journal.KindClick,
		Class: class.String(),
		Rect:  &rect,
		Point: &point,
	})
	return nil
}

// transition moves the instance to state. Re-entering the current
// state is a no-op, so a window that stays missing does not keep
// resetting the progress timer.
func (m *Machine) transition(instance *Instance, state State, now time.Time) {
	if instance.State == state {
		return
	}
	previous := instance.State
	instance.State = state
	instance.StateSince = now
	instance.LastProgressAt = now

	m.logger.Info(fmt.Sprintf("%s: %v -> %v", instance.Name, previous, state),
		"bot", instance.Name,
		"from", previous.String(),
		"to", state.String(),
	)
	m.record(journal.Record{
		Time: now,
		Bot:  instance.Name,
		Kind: journal.KindTransition,
		From: previous.String(),
		To:   state.String(),
	})
}

func (m *Machine) record(record journal.Record) {
	if m.recorder == nil {
		return
	}
	if err := m.recorder.Record(record); err != nil {
		m.logger.Warn("journal write failed", "bot", record.Bot, "error", err)
	}
}

func (m *Machine) dump(instance *Instance, frame *vision.Frame) {
	if m.dumper == nil || !m.dumper.Due(instance.Name) {
		return
	}
	if _, err := m.dumper.Dump(instance.Name, frame); err != nil {
		m.logger.Warn("debug dump failed", "bot", instance.Name, "error", err)
	}
}

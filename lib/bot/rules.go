// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"time"

	"github.com/bureau-foundation/multibox/lib/vision"
)

// overrideRule is evaluated before the per-state dispatch. apply
// returns true if it acted, which ends the tick.
type overrideRule struct {
	name  string
	apply func(m *Machine, instance *Instance, observation *observation, now time.Time) (bool, error)
}

// overrideRules run in order on every tick. Reconnect and confirm
// popups can cover any screen, so they are cleared first; then a
// visible session HUD wins over whatever state the instance thought it
// was in.
var overrideRules = []overrideRule{
	{name: "reconnect", apply: clickPopup(vision.ClassReconnect)},
	{name: "confirm", apply: clickPopup(vision.ClassConfirm)},
	{name: "in-session", apply: enterSession},
}

// clickPopup clicks class if it is visible, the bot is not in a
// session, and the cooldown has elapsed.
func clickPopup(class vision.Class) func(*Machine, *Instance, *observation, time.Time) (bool, error) {
	return func(m *Machine, instance *Instance, observation *observation, now time.Time) (bool, error) {
		if observation.inSession || !instance.CanAct(now) {
			return false, nil
		}
		rect, found, err := observation.detect(class)
		if err != nil || !found {
			return false, err
		}
		if err := m.click(instance, class, rect, m.timings.ClickSettle, now); err != nil {
			return false, err
		}
		return true, nil
	}
}

func enterSession(m *Machine, instance *Instance, observation *observation, now time.Time) (bool, error) {
	if !observation.inSession {
		return false, nil
	}
	m.transition(instance, StateInSession, now)
	return true, nil
}

// observation is what one tick knows about one frame. Detections run
// on first use and are reused for the rest of the tick.
type observation struct {
	detector   vision.Detector
	frame      *vision.Frame
	inSession  bool
	detections vision.DetectionResult
	checked    map[vision.Class]bool
}

func newObservation(detector vision.Detector, frame *vision.Frame, inSession bool) *observation {
	return &observation{
		detector:  detector,
		frame:     frame,
		inSession: inSession,
		checked:   make(map[vision.Class]bool, len(vision.Classes)),
	}
}

func (o *observation) detect(class vision.Class) (vision.Rect, bool, error) {
	if !o.checked[class] {
		rect, found, err := o.detector.Detect(o.frame, class)
		if err != nil {
			return vision.Rect{}, false, err
		}
		o.checked[class] = true
		if found {
			o.detections.Set(class, rect)
		}
	}
	rect, found := o.detections.Get(class)
	return rect, found, nil
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vision

import "fmt"

// Class names a semantic UI element the detector can look for.
type Class uint8

const (
	// ClassAccept is the "accept match" button on the match-found popup.
	ClassAccept Class = iota
	// ClassReady is the lobby "ready" button.
	ClassReady
	// ClassReconnect is the reconnect prompt shown after a dropped session.
	ClassReconnect
	// ClassConfirm is any OK/confirm dialog button.
	ClassConfirm

	classCount
)

// Classes lists every detectable class in a stable order.
var Classes = []Class{ClassAccept, ClassReady, ClassReconnect, ClassConfirm}

// String returns the upper-case class name used in logs and dumps.
func (c Class) String() string {
	switch c {
	case ClassAccept:
		return "ACCEPT"
	case ClassReady:
		return "READY"
	case ClassReconnect:
		return "RECONNECT"
	case ClassConfirm:
		return "OK_CONFIRM"
	default:
		return fmt.Sprintf("Class(%d)", uint8(c))
	}
}

// DetectionResult holds at most one rectangle per class for a single
// frame. It is built fresh for every tick and never carried across
// ticks. The zero value has no detections.
type DetectionResult struct {
	found [classCount]bool
	rects [classCount]Rect
}

// Set records a detection for class.
func (d *DetectionResult) Set(class Class, rect Rect) {
	if class >= classCount {
		return
	}
	d.found[class] = true
	d.rects[class] = rect
}

// Get returns the detection for class, if any.
func (d *DetectionResult) Get(class Class) (Rect, bool) {
	if class >= classCount || !d.found[class] {
		return Rect{}, false
	}
	return d.rects[class], true
}

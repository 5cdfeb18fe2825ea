// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package capture copies the pixels of a screen rectangle, normally a
// window's client area, into a fresh [vision.Frame].
package capture

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"

	"github.com/bureau-foundation/multibox/lib/clock"
	"github.com/bureau-foundation/multibox/lib/vision"
)

// Capturer produces a frame from an absolute screen rectangle. Each
// call returns a new frame that the caller must Close.
type Capturer interface {
	Capture(bounds image.Rectangle) (*vision.Frame, error)
}

// ScreenCapturer reads the desktop framebuffer. It captures whatever
// is visible at the rectangle, so the window must be unobscured; the
// state machine foregrounds the window before capturing.
type ScreenCapturer struct {
	clock clock.Clock
}

// NewScreenCapturer returns a Capturer that stamps frames with
// clock.Now.
func NewScreenCapturer(clk clock.Clock) *ScreenCapturer {
	return &ScreenCapturer{clock: clk}
}

// Capture grabs bounds from the screen.
func (s *ScreenCapturer) Capture(bounds image.Rectangle) (*vision.Frame, error) {
	bounds = normalizeBounds(bounds)
	capturedAt := s.clock.Now()

	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("capturing %v: %w", bounds, err)
	}
	return vision.FrameFromImage(img, capturedAt)
}

// normalizeBounds guarantees a capture of at least one pixel in each
// dimension: a window that is mid-restore can briefly report an empty
// client rectangle.
func normalizeBounds(bounds image.Rectangle) image.Rectangle {
	bounds = bounds.Canon()
	if bounds.Dx() < 1 {
		bounds.Max.X = bounds.Min.X + 1
	}
	if bounds.Dy() < 1 {
		bounds.Max.Y = bounds.Min.Y + 1
	}
	return bounds
}

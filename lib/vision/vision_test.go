// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vision

import (
	"image/color"
	"testing"
	"time"

	"gocv.io/x/gocv"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Window client size used by the synthetic frames: one 3x2 grid cell
// on a 1920x1080 desktop.
const (
	frameWidth  = 640
	frameHeight = 540
)

var (
	green  = color.RGBA{R: 0, G: 200, B: 0, A: 0}
	blue   = color.RGBA{R: 0, G: 60, B: 220, A: 0}
	orange = color.RGBA{R: 240, G: 140, B: 0, A: 0}
	white  = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

// blankFrame returns a black frame that is closed when the test ends.
func blankFrame(t *testing.T) *Frame {
	t.Helper()
	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), frameHeight, frameWidth, gocv.MatTypeCV8UC3)
	frame := NewFrame(&mat, epoch)
	t.Cleanup(func() { frame.Close() })
	return frame
}

// fill paints a solid rectangle onto the frame. Test setup only: real
// frames are never mutated after capture.
func fill(frame *Frame, rect Rect, c color.RGBA) {
	gocv.Rectangle(frame.mat, rect.Image(), c, -1)
}

func within(got, want Rect, tolerance int) bool {
	abs := func(v int) int {
		if v < 0 {
			return -v
		}
		return v
	}
	return abs(got.X-want.X) <= tolerance &&
		abs(got.Y-want.Y) <= tolerance &&
		abs(got.Width-want.Width) <= tolerance &&
		abs(got.Height-want.Height) <= tolerance
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vision

import (
	"fmt"
	"image"
)

// Rect is an axis-aligned rectangle in frame-local pixel coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RectFromImage converts an image.Rectangle (min/max corners) into a
// Rect (origin and size).
func RectFromImage(r image.Rectangle) Rect {
	return Rect{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Image returns the rectangle as an image.Rectangle.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Center returns the rectangle's centre point, rounding toward the
// origin.
func (r Rect) Center() image.Point {
	return image.Pt(r.X+r.Width/2, r.Y+r.Height/2)
}

// Area returns Width*Height.
func (r Rect) Area() int { return r.Width * r.Height }

// Translate returns r shifted by (dx, dy).
func (r Rect) Translate(dx, dy int) Rect {
	r.X += dx
	r.Y += dy
	return r
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// Region is a fractional sub-rectangle of a frame: X0/Y0 is the
// top-left corner and X1/Y1 the bottom-right, each in [0, 1] as a
// fraction of the frame's width or height.
type Region struct {
	X0 float64 `yaml:"x0" json:"x0"`
	Y0 float64 `yaml:"y0" json:"y0"`
	X1 float64 `yaml:"x1" json:"x1"`
	Y1 float64 `yaml:"y1" json:"y1"`
}

// Validate reports whether the region is a non-empty sub-rectangle of
// the unit square.
func (r Region) Validate() error {
	for _, value := range []float64{r.X0, r.Y0, r.X1, r.Y1} {
		if value < 0 || value > 1 {
			return fmt.Errorf("region %+v: coordinates must be within [0, 1]", r)
		}
	}
	if r.X1 <= r.X0 || r.Y1 <= r.Y0 {
		return fmt.Errorf("region %+v: x1/y1 must be greater than x0/y0", r)
	}
	return nil
}

// Pixels resolves the region against a frame of the given size. The
// result is clamped so it always contains at least one pixel and never
// leaves the frame.
func (r Region) Pixels(width, height int) image.Rectangle {
	x0 := clamp(int(float64(width)*r.X0), 0, width-1)
	y0 := clamp(int(float64(height)*r.Y0), 0, height-1)
	x1 := clamp(int(float64(width)*r.X1), x0+1, width)
	y1 := clamp(int(float64(height)*r.Y1), y0+1, height)
	return image.Rect(x0, y0, x1, y1)
}

func clamp(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vision

import (
	"image"
	"testing"
)

func TestRectCenter(t *testing.T) {
	rect := Rect{X: 100, Y: 100, Width: 80, Height: 30}
	if got := rect.Center(); got != image.Pt(140, 115) {
		t.Errorf("expected centre (140,115), got %v", got)
	}
}

func TestRectImageRoundTrip(t *testing.T) {
	rect := Rect{X: 12, Y: 34, Width: 56, Height: 78}
	if got := RectFromImage(rect.Image()); got != rect {
		t.Errorf("expected %v, got %v", rect, got)
	}
}

func TestRegionPixels(t *testing.T) {
	tests := []struct {
		name   string
		region Region
		want   image.Rectangle
	}{
		{
			name:   "ready corner",
			region: Region{X0: 0.62, Y0: 0.70, X1: 0.98, Y1: 0.98},
			want:   image.Rect(396, 378, 627, 529),
		},
		{
			name:   "full frame",
			region: Region{X0: 0, Y0: 0, X1: 1, Y1: 1},
			want:   image.Rect(0, 0, 640, 540),
		},
		{
			name:   "degenerate region still has one pixel",
			region: Region{X0: 1, Y0: 1, X1: 1, Y1: 1},
			want:   image.Rect(639, 539, 640, 540),
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.region.Pixels(640, 540); got != test.want {
				t.Errorf("expected %v, got %v", test.want, got)
			}
		})
	}
}

func TestRegionValidate(t *testing.T) {
	if err := (Region{X0: 0.1, Y0: 0.1, X1: 0.9, Y1: 0.9}).Validate(); err != nil {
		t.Errorf("expected valid region, got %v", err)
	}
	if err := (Region{X0: 0.5, Y0: 0.1, X1: 0.4, Y1: 0.9}).Validate(); err == nil {
		t.Error("expected error for inverted region")
	}
	if err := (Region{X0: 0, Y0: 0, X1: 1.5, Y1: 1}).Validate(); err == nil {
		t.Error("expected error for region outside the unit square")
	}
}

func TestGeometryAccepts(t *testing.T) {
	geometry := DefaultGeometry()
	tests := []struct {
		name          string
		width, height int
		contourArea   float64
		want          bool
	}{
		{"typical button", 120, 40, 4600, true},
		{"too small", 60, 20, 1100, false},
		{"too short", 200, 20, 3900, false},
		{"too square", 100, 90, 8800, false},
		{"too elongated", 600, 30, 17000, false},
		{"not rectangular", 200, 100, 8100, false},
		{"zero height", 100, 0, 0, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := geometry.Accepts(test.width, test.height, test.contourArea); got != test.want {
				t.Errorf("expected %v, got %v", test.want, got)
			}
		})
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vision

import (
	"fmt"
	"image"
	"time"

	"gocv.io/x/gocv"
)

// Frame is an immutable BGR pixel buffer captured from one window's
// client area at one instant. A Frame owns native memory: call Close
// when the tick that captured it is done. Nothing in multibox mutates
// a frame's pixels after capture; consumers that need to draw on it
// (the debug dumper) work on a clone.
type Frame struct {
	mat        *gocv.Mat
	capturedAt time.Time
}

// NewFrame wraps a BGR (8UC3) matrix. The frame takes ownership of
// mat. A nil mat produces an empty frame, which detectors treat as
// containing nothing.
func NewFrame(mat *gocv.Mat, capturedAt time.Time) *Frame {
	return &Frame{mat: mat, capturedAt: capturedAt}
}

// FrameFromImage copies img into a new BGR frame.
func FrameFromImage(img image.Image, capturedAt time.Time) (*Frame, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("converting captured image: %w", err)
	}
	return NewFrame(&mat, capturedAt), nil
}

// CapturedAt returns the capture timestamp.
func (f *Frame) CapturedAt() time.Time { return f.capturedAt }

// Width returns the frame width in pixels (0 for an empty frame).
func (f *Frame) Width() int {
	if f.Empty() {
		return 0
	}
	return f.mat.Cols()
}

// Height returns the frame height in pixels (0 for an empty frame).
func (f *Frame) Height() int {
	if f.Empty() {
		return 0
	}
	return f.mat.Rows()
}

// Empty reports whether the frame carries no pixels.
func (f *Frame) Empty() bool {
	return f == nil || f.mat == nil || f.mat.Empty()
}

// Bytes returns a copy of the raw BGR pixel data.
func (f *Frame) Bytes() []byte {
	if f.Empty() {
		return nil
	}
	return f.mat.ToBytes()
}

// Close releases the frame's native memory. Safe to call more than
// once.
func (f *Frame) Close() error {
	if f == nil || f.mat == nil {
		return nil
	}
	err := f.mat.Close()
	f.mat = nil
	return err
}

// region returns a view of the given pixel rectangle. The view shares
// memory with the frame and must be closed by the caller.
func (f *Frame) region(rect image.Rectangle) gocv.Mat {
	return f.mat.Region(rect)
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package vision turns captured window frames into the two signals the
// state machine consumes: where a named button is (if anywhere), and
// whether an in-session overlay is being rendered.
//
// Button detection is a colour+shape heuristic built on OpenCV (via
// gocv): crop a fractional region of interest, threshold it against
// one or more HSV ranges, clean the mask with a morphological opening
// and closing, and keep the largest external contour that passes
// the geometric filters (area, width, height, aspect ratio,
// rectangularity). The heuristic sits behind the [Detector] interface
// so a template matcher or learned classifier can replace it without
// touching the state machine.
//
// The presence probe measures Canny edge density in a horizontal band
// near the bottom of the frame: a session overlay is busy, a menu
// background is comparatively flat.
//
// [Dumper] writes rate-limited diagnostic images (raw frame, annotated
// frame, per-class masks) for tuning colour ranges on a live setup.
//
// All coordinates in this package are frame-local pixels.
package vision

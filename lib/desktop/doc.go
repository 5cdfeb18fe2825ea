// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package desktop is the boundary between multibox and the host
// windowing system: it enumerates top-level windows, moves them (never
// resizes them), brings them to the foreground, reports client-area
// geometry, and injects synthetic mouse clicks.
//
// The Win32 backend lives in desktop_windows.go and talks to user32
// and shcore through golang.org/x/sys/windows. On other platforms
// [NewSystem] returns [ErrUnsupported]; the rest of multibox depends
// only on the [Registry] and [Pointer] interfaces and is tested
// against fakes.
//
// Click coordinates are physical pixels. The process must call
// [DeclareDPIAwareness] before touching any window, otherwise display
// scaling silently shifts every click.
package desktop

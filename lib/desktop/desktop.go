// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package desktop

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/bureau-foundation/multibox/lib/vision"
)

var (
	// ErrUnsupported is returned by [NewSystem] and
	// [DeclareDPIAwareness] on platforms without a backend.
	ErrUnsupported = errors.New("desktop automation is only supported on windows")

	// ErrWindowGone is returned when a handle no longer refers to a
	// visible window.
	ErrWindowGone = errors.New("window is gone or hidden")
)

// Handle identifies an OS window. It is a weak reference: the window
// can disappear at any time, and every use re-resolves it.
type Handle uintptr

func (h Handle) String() string { return fmt.Sprintf("0x%x", uintptr(h)) }

// windowCallError wraps the failure of an OS call on handle. When alive
// reports the window closed or hidden in the meantime, the error wraps
// [ErrWindowGone] instead of the OS error.
func windowCallError(call string, handle Handle, err error, alive func(Handle) bool) error {
	if !alive(handle) {
		return fmt.Errorf("%s %v: %w", call, handle, ErrWindowGone)
	}
	return fmt.Errorf("%s %v: %w", call, handle, err)
}

// WindowInfo describes a top-level window at the time it was listed.
type WindowInfo struct {
	Handle Handle
	Title  string
	// Rect is the outer window rectangle in screen coordinates.
	Rect image.Rectangle
}

// Registry enumerates and positions windows.
type Registry interface {
	// List returns every visible top-level window whose title
	// contains titleContains (case-insensitive), sorted with
	// [SortWindows].
	List(titleContains string) ([]WindowInfo, error)

	// Lookup re-resolves a handle. Returns false if the window no
	// longer exists or is not visible.
	Lookup(handle Handle) (WindowInfo, bool)

	// ClientBounds returns the window's client area in screen
	// coordinates, computed fresh on every call.
	ClientBounds(handle Handle) (image.Rectangle, error)

	// Move places the window's top-left corner at (x, y) without
	// changing its size.
	Move(handle Handle, x, y int) error

	// Foreground restores the window if minimized and brings it to
	// the front.
	Foreground(handle Handle) error
}

// Pointer issues synthetic primary-button clicks at absolute screen
// coordinates.
type Pointer interface {
	Click(x, y int) error
}

// Backend is a complete platform implementation.
type Backend interface {
	Registry
	Pointer
}

// MatchTitle reports whether title contains substring, ignoring case.
func MatchTitle(title, substring string) bool {
	return title != "" && strings.Contains(strings.ToLower(title), strings.ToLower(substring))
}

// SortWindows orders windows top-to-bottom, then left-to-right, then by
// title. The order is what maps windows to bots, so it must not depend
// on the enumeration order the OS happens to use.
func SortWindows(windows []WindowInfo) {
	sort.SliceStable(windows, func(i, j int) bool {
		a, b := windows[i], windows[j]
		if a.Rect.Min.Y != b.Rect.Min.Y {
			return a.Rect.Min.Y < b.Rect.Min.Y
		}
		if a.Rect.Min.X != b.Rect.Min.X {
			return a.Rect.Min.X < b.Rect.Min.X
		}
		return a.Title < b.Title
	})
}

// ClientLocator resolves a window's client area. [Registry] implements
// it.
type ClientLocator interface {
	ClientBounds(handle Handle) (image.Rectangle, error)
}

// Dispatcher turns a frame-local rectangle into a click on the screen.
type Dispatcher struct {
	locator ClientLocator
	pointer Pointer
}

// NewDispatcher returns a Dispatcher.
func NewDispatcher(locator ClientLocator, pointer Pointer) *Dispatcher {
	return &Dispatcher{locator: locator, pointer: pointer}
}

// Click clicks the centre of rect, which is in the frame-local
// coordinates of handle's client area. The client origin is looked up
// on every call because the window may have moved since the frame was
// captured. Returns the absolute point that was clicked.
func (d *Dispatcher) Click(handle Handle, rect vision.Rect) (image.Point, error) {
	client, err := d.locator.ClientBounds(handle)
	if err != nil {
		return image.Point{}, fmt.Errorf("resolving client origin of %v: %w", handle, err)
	}
	target := rect.Center().Add(client.Min)
	if err := d.pointer.Click(target.X, target.Y); err != nil {
		return image.Point{}, fmt.Errorf("clicking %v at %v: %w", handle, target, err)
	}
	return target, nil
}

// normalizeAbsolute maps a screen point onto the 0-65535 range that
// absolute mouse input uses, relative to the virtual desktop spanning
// every monitor.
func normalizeAbsolute(point image.Point, virtual image.Rectangle) (int32, int32) {
	width := max(1, virtual.Dx()-1)
	height := max(1, virtual.Dy()-1)
	x := int64(point.X-virtual.Min.X) * 65535 / int64(width)
	y := int64(point.Y-virtual.Min.Y) * 65535 / int64(height)
	return int32(x), int32(y)
}

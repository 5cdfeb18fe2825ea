// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build windows

package desktop

import (
	"fmt"
	"image"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/bureau-foundation/multibox/lib/clock"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")
	shcore = windows.NewLazySystemDLL("shcore.dll")

	procEnumWindows          = user32.NewProc("EnumWindows")
	procIsWindow             = user32.NewProc("IsWindow")
	procIsWindowVisible      = user32.NewProc("IsWindowVisible")
	procIsIconic             = user32.NewProc("IsIconic")
	procGetWindowTextLengthW = user32.NewProc("GetWindowTextLengthW")
	procGetWindowTextW       = user32.NewProc("GetWindowTextW")
	procGetWindowRect        = user32.NewProc("GetWindowRect")
	procGetClientRect        = user32.NewProc("GetClientRect")
	procClientToScreen       = user32.NewProc("ClientToScreen")
	procSetWindowPos         = user32.NewProc("SetWindowPos")
	procShowWindow           = user32.NewProc("ShowWindow")
	procSetForegroundWindow  = user32.NewProc("SetForegroundWindow")
	procSendInput            = user32.NewProc("SendInput")
	procGetSystemMetrics     = user32.NewProc("GetSystemMetrics")
	procSetProcessDPIAware   = user32.NewProc("SetProcessDPIAware")

	procSetProcessDpiAwareness = shcore.NewProc("SetProcessDpiAwareness")
)

const (
	swRestore = 9

	swpNoSize                 = 0x0001
	swpNoZOrder               = 0x0004
	swpShowWindow             = 0x0040
	hwndTop                   = 0
	inputMouse                = 0
	processPerMonitorDPIAware = 2

	mouseEventMove        = 0x0001
	mouseEventLeftDown    = 0x0002
	mouseEventLeftUp      = 0x0004
	mouseEventVirtualDesk = 0x4000
	mouseEventAbsolute    = 0x8000

	smXVirtualScreen  = 76
	smYVirtualScreen  = 77
	smCXVirtualScreen = 78
	smCYVirtualScreen = 79
)

// Delays between the synthetic input events of one click. Some clients
// drop a press that arrives in the same frame as the pointer move.
const (
	settleAfterMove = 10 * time.Millisecond
	pressDuration   = 30 * time.Millisecond
)

type win32Rect struct {
	Left, Top, Right, Bottom int32
}

func (r win32Rect) image() image.Rectangle {
	return image.Rect(int(r.Left), int(r.Top), int(r.Right), int(r.Bottom))
}

type win32Point struct {
	X, Y int32
}

type mouseInput struct {
	Dx, Dy    int32
	MouseData uint32
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

type mouseInputEvent struct {
	Type  uint32
	Mouse mouseInput
}

// EnumWindows needs a C callback; callbacks created with NewCallback
// are never freed, so one is shared and guarded by enumLock.
var (
	enumLock     sync.Mutex
	enumHandles  []Handle
	enumCallback = windows.NewCallback(func(hwnd uintptr, _ uintptr) uintptr {
		enumHandles = append(enumHandles, Handle(hwnd))
		return 1
	})
)

// DeclareDPIAwareness marks the process per-monitor DPI aware, falling
// back to system DPI awareness on hosts without shcore.
func DeclareDPIAwareness() error {
	if err := procSetProcessDpiAwareness.Find(); err == nil {
		result, _, _ := procSetProcessDpiAwareness.Call(processPerMonitorDPIAware)
		// E_ACCESSDENIED means awareness was already set (manifest
		// or an earlier call), which is what we want.
		if result == 0 || uint32(result) == 0x80070005 {
			return nil
		}
	}
	if err := procSetProcessDPIAware.Find(); err != nil {
		return fmt.Errorf("declaring DPI awareness: %w", err)
	}
	if result, _, err := procSetProcessDPIAware.Call(); result == 0 {
		return fmt.Errorf("SetProcessDPIAware: %w", err)
	}
	return nil
}

// NewSystem returns the Win32 backend.
func NewSystem(clk clock.Clock) (Backend, error) {
	if err := user32.Load(); err != nil {
		return nil, fmt.Errorf("loading user32: %w", err)
	}
	return &win32System{clock: clk}, nil
}

type win32System struct {
	clock clock.Clock
}

func (s *win32System) List(titleContains string) ([]WindowInfo, error) {
	enumLock.Lock()
	enumHandles = enumHandles[:0]
	result, _, err := procEnumWindows.Call(enumCallback, 0)
	handles := append([]Handle(nil), enumHandles...)
	enumLock.Unlock()
	if result == 0 {
		return nil, fmt.Errorf("EnumWindows: %w", err)
	}

	var windowsFound []WindowInfo
	for _, handle := range handles {
		info, ok := s.Lookup(handle)
		if !ok || !MatchTitle(info.Title, titleContains) {
			continue
		}
		windowsFound = append(windowsFound, info)
	}
	SortWindows(windowsFound)
	return windowsFound, nil
}

func windowAlive(handle Handle) bool {
	return callBool(procIsWindow, uintptr(handle)) && callBool(procIsWindowVisible, uintptr(handle))
}

func (s *win32System) Lookup(handle Handle) (WindowInfo, bool) {
	if !windowAlive(handle) {
		return WindowInfo{}, false
	}
	var rect win32Rect
	if result, _, _ := procGetWindowRect.Call(uintptr(handle), uintptr(unsafe.Pointer(&rect))); result == 0 {
		return WindowInfo{}, false
	}
	return WindowInfo{Handle: handle, Title: windowTitle(handle), Rect: rect.image()}, true
}

func (s *win32System) ClientBounds(handle Handle) (image.Rectangle, error) {
	var client win32Rect
	if result, _, err := procGetClientRect.Call(uintptr(handle), uintptr(unsafe.Pointer(&client))); result == 0 {
		return image.Rectangle{}, windowCallError("GetClientRect", handle, err, windowAlive)
	}
	var origin win32Point
	if result, _, err := procClientToScreen.Call(uintptr(handle), uintptr(unsafe.Pointer(&origin))); result == 0 {
		return image.Rectangle{}, windowCallError("ClientToScreen", handle, err, windowAlive)
	}
	return client.image().Add(image.Pt(int(origin.X), int(origin.Y))), nil
}

func (s *win32System) Move(handle Handle, x, y int) error {
	result, _, err := procSetWindowPos.Call(
		uintptr(handle), hwndTop,
		uintptr(int32(x)), uintptr(int32(y)), 0, 0,
		swpNoZOrder|swpShowWindow|swpNoSize,
	)
	if result == 0 {
		return fmt.Errorf("SetWindowPos %v: %w", handle, err)
	}
	return nil
}

func (s *win32System) Foreground(handle Handle) error {
	if !callBool(procIsWindow, uintptr(handle)) {
		return ErrWindowGone
	}
	if callBool(procIsIconic, uintptr(handle)) {
		procShowWindow.Call(uintptr(handle), swRestore)
	}
	if result, _, err := procSetForegroundWindow.Call(uintptr(handle)); result == 0 {
		return fmt.Errorf("SetForegroundWindow %v: %w", handle, err)
	}
	return nil
}

func (s *win32System) Click(x, y int) error {
	virtual := image.Rect(
		systemMetric(smXVirtualScreen), systemMetric(smYVirtualScreen),
		systemMetric(smXVirtualScreen)+systemMetric(smCXVirtualScreen),
		systemMetric(smYVirtualScreen)+systemMetric(smCYVirtualScreen),
	)
	absoluteX, absoluteY := normalizeAbsolute(image.Pt(x, y), virtual)

	if err := sendMouse(mouseInput{
		Dx: absoluteX, Dy: absoluteY,
		Flags: mouseEventMove | mouseEventAbsolute | mouseEventVirtualDesk,
	}); err != nil {
		return err
	}
	s.clock.Sleep(settleAfterMove)
	if err := sendMouse(mouseInput{Flags: mouseEventLeftDown}); err != nil {
		return err
	}
	s.clock.Sleep(pressDuration)
	return sendMouse(mouseInput{Flags: mouseEventLeftUp})
}

func sendMouse(event mouseInput) error {
	input := mouseInputEvent{Type: inputMouse, Mouse: event}
	sent, _, err := procSendInput.Call(1, uintptr(unsafe.Pointer(&input)), unsafe.Sizeof(input))
	if sent != 1 {
		return fmt.Errorf("SendInput: %w", err)
	}
	return nil
}

func windowTitle(handle Handle) string {
	length, _, _ := procGetWindowTextLengthW.Call(uintptr(handle))
	if length == 0 {
		return ""
	}
	buffer := make([]uint16, length+1)
	procGetWindowTextW.Call(uintptr(handle), uintptr(unsafe.Pointer(&buffer[0])), uintptr(len(buffer)))
	return windows.UTF16ToString(buffer)
}

func callBool(proc *windows.LazyProc, argument uintptr) bool {
	result, _, _ := proc.Call(argument)
	return result != 0
}

func systemMetric(index int) int {
	value, _, _ := procGetSystemMetrics.Call(uintptr(index))
	return int(int32(value))
}

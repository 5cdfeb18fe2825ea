// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package desktop

import "github.com/bureau-foundation/multibox/lib/clock"

// DeclareDPIAwareness returns [ErrUnsupported] on this platform.
func DeclareDPIAwareness() error { return ErrUnsupported }

// NewSystem returns [ErrUnsupported] on this platform.
func NewSystem(clk clock.Clock) (Backend, error) { return nil, ErrUnsupported }

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bot is the per-window navigation state machine.
//
// Each game window is driven by one [Instance], a plain struct holding
// the current [State] and the timestamps that cooldowns and timeouts
// are measured against. A [Machine] holds the shared collaborators
// (window registry, capturer, detector, presence probe, clicker,
// clock) and advances one instance per call to [Machine.Tick]:
//
//  1. Re-resolve the window. A missing or hidden window moves the
//     instance to RECOVERY and ends the tick.
//  2. Bring the window to the foreground (best effort).
//  3. Capture the client area and run the presence probe.
//  4. Evaluate the override rules in order: reconnect, confirm, and
//     the in-session override. The first rule that acts ends the tick.
//  5. Dispatch on the current state.
//
// Waiting is never done by blocking. Cooldowns and timeouts are
// timestamp comparisons against the injected clock, so a tick always
// returns promptly and the orchestrator can serve every window from one
// goroutine. Detections are computed lazily and at most once per
// class per tick; nothing carries over from one frame to the next.
package bot

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package status publishes a snapshot of a running multibox process:
// its version, process ID, and the current state of every bot. The
// snapshot is a small JSON file that other tools (and the "multibox
// status" command) can poll without talking to the process.
//
// The file is written atomically (write to temporary file, fsync,
// rename into place, fsync parent directory) so readers never see a
// partial snapshot. [Check] treats a snapshot older than a maximum age
// as stale: the process that wrote it has stopped or hung.
//
// [Publisher] rate-limits writes so the tick loop can offer a snapshot
// every round.
package status

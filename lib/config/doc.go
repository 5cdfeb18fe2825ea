// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the multibox configuration file.
//
// Configuration comes from a single file named by either the
// MULTIBOX_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no search path and no per-field
// environment override: what the file says (on top of [Default]) is
// what runs.
//
// Files ending in .json or .jsonc are parsed as JSON with comments and
// trailing commas allowed; anything else is parsed as YAML. Durations
// are written as Go duration strings ("350ms", "45s"). ${HOME} and
// ${VAR:-default} are expanded in the debug directory and journal
// path.
//
// Every tuned constant of the bot (timeouts, cooldowns, detector
// regions and colour ranges, the presence probe) lives here with the
// values from live tuning as defaults. They are not universal: a
// different client theme or resolution may need its own file.
package config

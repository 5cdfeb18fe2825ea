// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the binary entrypoint helpers: reporting an
// error from run() to stderr before (or without) the structured logger,
// and choosing the exit code.
package process

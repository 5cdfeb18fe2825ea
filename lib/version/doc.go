// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the multibox binary.
//
// [GitCommit], [GitDirty] and [BuildTime] may be injected with
// -ldflags -X. When they are not, the values Go records in the binary
// (vcs.revision, vcs.modified, vcs.time) are used instead, so a plain
// `go build` from a checkout still identifies itself.
package version

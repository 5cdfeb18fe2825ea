// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via -ldflags at build time.
var (
	GitCommit = ""
	GitDirty  = ""
	BuildTime = ""

	// Version is set manually for releases.
	Version = "0.1.0-dev"
)

// Build is the resolved build information.
type Build struct {
	Version string
	Commit  string
	Dirty   bool
	Time    string
}

// Current returns the build information, preferring ldflags values
// and falling back to the VCS stamp in the binary.
func Current() Build {
	build := Build{Version: Version, Commit: GitCommit, Dirty: GitDirty == "true", Time: BuildTime}
	if info, ok := debug.ReadBuildInfo(); ok {
		build = mergeSettings(build, info.Settings)
	}
	if build.Commit == "" {
		build.Commit = "unknown"
	}
	if build.Time == "" {
		build.Time = "unknown"
	}
	return build
}

func mergeSettings(build Build, settings []debug.BuildSetting) Build {
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			if build.Commit == "" {
				build.Commit = setting.Value
				if len(build.Commit) > 12 {
					build.Commit = build.Commit[:12]
				}
			}
		case "vcs.modified":
			if GitDirty == "" {
				build.Dirty = setting.Value == "true"
			}
		case "vcs.time":
			if build.Time == "" {
				build.Time = setting.Value
			}
		}
	}
	return build
}

// Info returns a one-line version string for --version output.
func Info() string {
	build := Current()
	dirty := ""
	if build.Dirty {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", build.Version, build.Commit, dirty, build.Time)
}

// Full adds the Go version and platform to Info.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

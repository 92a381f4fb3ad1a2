// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are set via -ldflags at build time. When they are
// not, [Info] falls back to the VCS stamp the go command records.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty indicates whether there were uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version. This is set manually for releases.
	Version = "0.1.0-dev"
)

// Protocol is the wire protocol the binaries speak.
const Protocol = "Hessian 2.0"

// build is the commit identity [Info] reports.
type build struct {
	commit string
	dirty  bool
	time   string
}

// current resolves the build identity from the ldflags variables,
// filling gaps from settings, the vcs.* entries of debug.BuildInfo.
func current(settings []debug.BuildSetting) build {
	result := build{commit: GitCommit, dirty: GitDirty == "true", time: BuildTime}
	if result.commit != "unknown" {
		return result
	}
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			result.commit = setting.Value
			if len(result.commit) > 12 {
				result.commit = result.commit[:12]
			}
		case "vcs.modified":
			result.dirty = setting.Value == "true"
		case "vcs.time":
			if result.time == "unknown" {
				result.time = setting.Value
			}
		}
	}
	return result
}

func buildSettings() []debug.BuildSetting {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	return info.Settings
}

// Info returns a formatted version string suitable for --version output.
func Info() string {
	return current(buildSettings()).format()
}

func (b build) format() string {
	dirty := ""
	if b.dirty {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, b.commit, dirty, b.time)
}

// Full returns detailed version information: the Info line, the wire
// protocol, and the Go toolchain and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Protocol: %s\n  Go: %s\n  Platform: %s/%s",
		Info(), Protocol, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

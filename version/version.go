// Package version holds build-time version information.
// Values are injected at build time via -ldflags.
package version

import "runtime"

var (
	// GitRelease is the release tag or "dev" for local builds.
	GitRelease = "dev"
	// GitCommit is the short commit hash.
	GitCommit = "unknown"
	// GitCommitDate is the commit date.
	GitCommitDate = "unknown"
	// GoInfo is the Go toolchain used for the build.
	GoInfo = runtime.Version()
)

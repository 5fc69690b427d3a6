// Package build holds version information set via ldflags.
package build

import "fmt"

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// IsDevBuild returns true if running a development build (not a release).
func IsDevBuild() bool {
	return Version == "dev"
}

// String formats the build info for `matrix-runner version`.
func String() string {
	return fmt.Sprintf("matrix-runner %s (commit %s, built %s)", Version, Commit, BuildDate)
}

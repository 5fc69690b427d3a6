package cargo

import (
	"os"
	"strings"
)

// DefaultProgram is used when neither the configuration nor $CARGO names a
// cargo binary.
const DefaultProgram = "cargo"

// BuildOptions selects the feature configuration of one build.
type BuildOptions struct {
	// Package restricts the build to one workspace member (-p). Optional.
	Package           string
	Features          []string
	NoDefaultFeatures bool
	// TargetDir isolates the build output of this case.
	TargetDir string
}

// BuildArgs returns the arguments for a `cargo test --no-run` build that
// reports its artifacts as JSON messages on stdout.
func BuildArgs(opts BuildOptions) []string {
	args := []string{"test", "--no-run", "--message-format=json"}
	if opts.TargetDir != "" {
		args = append(args, "--target-dir", opts.TargetDir)
	}
	if opts.Package != "" {
		args = append(args, "-p", opts.Package)
	}
	if opts.NoDefaultFeatures {
		args = append(args, "--no-default-features")
	}
	if len(opts.Features) > 0 {
		args = append(args, "--features", strings.Join(opts.Features, ","))
	}
	return args
}

// FetchArgs returns the arguments that pre-fetch dependencies once before
// concurrent builds start competing for the registry lock.
func FetchArgs() []string {
	return []string{"fetch"}
}

// ResolveProgram picks the cargo executable: the explicit value when set,
// then $CARGO, then DefaultProgram.
func ResolveProgram(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv("CARGO"); env != "" {
		return env
	}
	return DefaultProgram
}

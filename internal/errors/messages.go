package errors

import "fmt"

// Common error messages for the matrix-runner CLI.
// These templates keep the remediation text in one place.

// MissingMatrixFile creates an error for a matrix file that does not exist.
func MissingMatrixFile(path string, cause error) *CLIError {
	return NewPrerequisiteError(
		fmt.Sprintf("matrix file not found: %s", path),
		"Run 'matrix-runner init' to create a TestMatrix.toml template",
		"Or point to an existing file with --config <path>",
	).withCause(cause)
}

// InvalidMatrixFile creates an error for a matrix file that fails to parse or validate.
func InvalidMatrixFile(path string, cause error) *CLIError {
	return NewConfigError(
		fmt.Sprintf("invalid matrix file %s:\n%v", path, cause),
		"Every [[cases]] entry needs a unique, non-empty name",
		"Quote custom commands so they split like a shell command line",
		"Run 'matrix-runner plan' to check the file without building anything",
	).withCause(cause)
}

// InvalidSettings creates an error for bad flag or environment values.
func InvalidSettings(cause error) *CLIError {
	return NewConfigError(
		fmt.Sprintf("invalid settings: %v", cause),
		"Check the command line flags and MATRIX_RUNNER_* environment variables",
		"Run 'matrix-runner run --help' for accepted values",
	).withCause(cause)
}

// ShardFlagsIncomplete creates an error when only one shard flag is given.
func ShardFlagsIncomplete() *CLIError {
	return NewArgumentErrorWithUsage(
		"--total-runners and --runner-index must be given together",
		shardUsage,
		"Give both flags, with 0 <= I < N",
		"Or omit both to run the whole matrix on this machine",
	)
}

const shardUsage = "matrix-runner run --total-runners <N> --runner-index <I>"

// InvalidShard creates an error for an out of range runner index.
func InvalidShard(cause error) *CLIError {
	return NewArgumentErrorWithUsage(
		cause.Error(),
		shardUsage,
		"--runner-index must be less than --total-runners",
		"Runner indexes start at 0",
	).withCause(cause)
}

// ProjectNotFound creates an error for a project directory without Cargo.toml.
func ProjectNotFound(dir string, cause error) *CLIError {
	return NewPrerequisiteError(
		fmt.Sprintf("no Cargo project found at %s", dir),
		"Run matrix-runner from the crate root, or pass --project <dir>",
		"Make sure the directory contains a Cargo.toml",
	).withCause(cause)
}

// MatrixExists creates an error when init would overwrite a matrix file.
func MatrixExists(path string) *CLIError {
	return NewArgumentErrorWithUsage(
		fmt.Sprintf("%s already exists", path),
		"matrix-runner init --force",
		"Use --force to overwrite it",
		"Or edit the existing file",
	)
}

// CargoFetchFailed creates an error when dependencies cannot be fetched
// before the parallel builds start.
func CargoFetchFailed(output string, cause error) *CLIError {
	msg := fmt.Sprintf("cargo fetch failed: %v", cause)
	if output != "" {
		msg += "\n" + output
	}
	return NewPrerequisiteError(msg,
		"Check network access to the crate registry",
		"Set CARGO or --cargo if cargo is not on PATH",
	).withCause(cause)
}

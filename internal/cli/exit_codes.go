package cli

import (
	"github.com/ariel-frischer/matrix-runner/internal/errors"
	"github.com/ariel-frischer/matrix-runner/internal/matrix"
)

// Exit codes for the matrix-runner CLI
// These codes support programmatic composition and CI/CD integration
const (
	// ExitSuccess indicates every case passed, was skipped or failed where allowed
	ExitSuccess = matrix.ExitOK

	// ExitFailures indicates at least one unallowed failure
	ExitFailures = matrix.ExitFailures

	// ExitInterrupted indicates the run was interrupted before all cases finished
	ExitInterrupted = matrix.ExitInterrupted

	// ExitInvalidConfig indicates invalid arguments, settings or matrix file
	ExitInvalidConfig = errors.ExitConfig

	// ExitRuntimeError indicates an unexpected failure outside any case
	ExitRuntimeError = errors.ExitRuntime
)

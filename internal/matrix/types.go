// Package matrix implements the matrix runner core: case partitioning, the
// per-case build/run state machine and the bounded concurrent scheduler that
// produces a declaration-ordered result set.
package matrix

import (
	"fmt"
	"strings"
	"time"
)

// Case is one configuration of the matrix. Cases are immutable once loaded.
type Case struct {
	// Name is unique across the matrix.
	Name string
	// Features are passed to cargo in declaration order.
	Features          []string
	NoDefaultFeatures bool
	// Command replaces the default build+run steps when non-empty.
	Command string
	// AllowFailure lists platform identifiers (OS or arch) on which a failure
	// of this case is tolerated.
	AllowFailure []string
	// Arch restricts the case to these architectures. Empty means all.
	Arch []string
	// Retries overrides the run-wide retry count when non-nil.
	Retries *int
	// Timeout overrides the run-wide per-attempt timeout when non-nil.
	Timeout *time.Duration
	// Index is the position of the case in the matrix file.
	Index int
}

// HasOverride reports whether the case replaces the default steps.
func (c Case) HasOverride() bool {
	return c.Command != ""
}

// DirName maps the case to a single path component that is unique within its
// matrix. Names made only of [A-Za-z0-9._-] are kept as they are. Any other
// name is sanitized and suffixed with "~" and the case index; '~' never
// survives sanitizing, so the two forms cannot meet.
func (c Case) DirName() string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, c.Name)
	if safe == c.Name && strings.Trim(safe, ".") != "" {
		return safe
	}
	if strings.Trim(safe, ".") == "" {
		safe = "case"
	}
	return fmt.Sprintf("%s~%d", safe, c.Index)
}

// Status is the lifecycle state of a case.
type Status int

const (
	StatusPending Status = iota
	StatusBuilding
	StatusRunning
	StatusPassed
	StatusBuildFailed
	StatusFailed
	StatusTimedOut
	StatusAllowedFailure
	StatusSkipped
	StatusCancelled
)

var statusNames = map[Status]string{
	StatusPending:        "Pending",
	StatusBuilding:       "Building",
	StatusRunning:        "Running",
	StatusPassed:         "Passed",
	StatusBuildFailed:    "BuildFailed",
	StatusFailed:         "Failed",
	StatusTimedOut:       "TimedOut",
	StatusAllowedFailure: "AllowedFailure",
	StatusSkipped:        "Skipped",
	StatusCancelled:      "Cancelled",
}

// String returns the status name.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// IsTerminal reports whether no further transition can leave s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusPending, StatusBuilding, StatusRunning:
		return false
	default:
		return true
	}
}

// IsFailure reports whether s is a failing terminal state before any
// allow-failure downgrade.
func (s Status) IsFailure() bool {
	switch s {
	case StatusBuildFailed, StatusFailed, StatusTimedOut:
		return true
	default:
		return false
	}
}

// IsOK reports whether s does not make the run fail.
func (s Status) IsOK() bool {
	switch s {
	case StatusPassed, StatusSkipped, StatusAllowedFailure:
		return true
	default:
		return false
	}
}

// Step names the phase an outcome's log belongs to.
type Step string

const (
	StepNone    Step = ""
	StepBuild   Step = "build"
	StepRun     Step = "run"
	StepCommand Step = "command"
)

// SkipReason explains a Skipped or Cancelled outcome.
type SkipReason string

const (
	SkipNone      SkipReason = ""
	SkipArch      SkipReason = "arch"
	SkipCancelled SkipReason = "cancelled"
)

// Outcome is the final record of one case. It is created once and never
// modified afterwards.
type Outcome struct {
	Case   Case
	Status Status
	// Cause is the failing status behind an AllowedFailure; for every other
	// status it equals Status.
	Cause      Status
	SkipReason SkipReason
	Step       Step
	Duration   time.Duration
	// Retries is the number of failed run attempts before the final one.
	Retries int
	// Log is the output of the last attempt for non-passing outcomes.
	Log string
	// ArtifactDir is where failure artifacts were preserved, if anywhere.
	ArtifactDir string
}

// Unexpected reports whether the outcome makes the run fail.
func (o Outcome) Unexpected() bool {
	return !o.Status.IsOK()
}

func skippedOutcome(c Case, status Status, reason SkipReason) Outcome {
	return Outcome{
		Case:       c,
		Status:     status,
		Cause:      status,
		SkipReason: reason,
	}
}

package matrix

import (
	"slices"
	"time"
)

// Exit codes of a matrix run.
const (
	ExitOK          = 0
	ExitFailures    = 1
	ExitInterrupted = 2
)

// Report aggregates everything a run produced for the reporting layer.
type Report struct {
	RunID    string
	Host     Host
	Shards   Shards
	Language string
	// Revision is the checked out VCS revision of the project, if known.
	Revision   string
	StartedAt  time.Time
	FinishedAt time.Time
	// Outcomes holds the shard's outcomes and the architecture-skipped
	// outcomes, merged in declaration order.
	Outcomes []Outcome
	// Interrupted is set when the run was cancelled by an operator.
	Interrupted bool
	// FailFastCause names the case that tripped fail-fast, if any.
	FailFastCause string
}

// NewReport merges the scheduled results with the architecture-skipped
// outcomes of plan, restoring declaration order.
func NewReport(plan Plan, results *ResultSet) *Report {
	outcomes := make([]Outcome, 0, results.Len()+len(plan.ArchSkipped))
	outcomes = append(outcomes, results.Outcomes()...)
	outcomes = append(outcomes, plan.ArchSkipped...)
	slices.SortStableFunc(outcomes, func(a, b Outcome) int {
		return a.Case.Index - b.Case.Index
	})
	return &Report{Outcomes: outcomes}
}

// ApplyLatch records why the run was cut short, if it was.
func (r *Report) ApplyLatch(l *Latch) {
	if !l.Tripped() {
		return
	}
	reason, cause := l.Reason()
	switch reason {
	case CancelInterrupt:
		r.Interrupted = true
	case CancelFailFast:
		r.FailFastCause = cause
	}
}

// Counts tallies outcomes by status.
func (r *Report) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, o := range r.Outcomes {
		counts[o.Status]++
	}
	return counts
}

// Unexpected returns the outcomes that make the run fail.
func (r *Report) Unexpected() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Unexpected() {
			out = append(out, o)
		}
	}
	return out
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ExitCode is ExitOK iff every outcome is Passed, Skipped or AllowedFailure.
func (r *Report) ExitCode() int {
	failed, cancelled := false, false
	for _, o := range r.Outcomes {
		switch {
		case o.Status == StatusCancelled:
			cancelled = true
		case o.Unexpected():
			failed = true
		}
	}
	switch {
	case failed:
		return ExitFailures
	case cancelled || r.Interrupted:
		return ExitInterrupted
	default:
		return ExitOK
	}
}

package matrix

import (
	"errors"
	"fmt"
)

// ErrInvalidShard is returned for a shard index outside [0, total).
var ErrInvalidShard = errors.New("runner index must be less than total runners")

// Shards selects the slice of the matrix handled by this invocation.
type Shards struct {
	Total int
	Index int
}

// SingleShard runs everything on one runner.
var SingleShard = Shards{Total: 1, Index: 0}

// Validate checks the shard topology.
func (s Shards) Validate() error {
	if s.Total < 1 {
		return fmt.Errorf("%w: total runners must be at least 1, got %d", ErrInvalidShard, s.Total)
	}
	if s.Index < 0 || s.Index >= s.Total {
		return fmt.Errorf("%w: runner index %d, total runners %d", ErrInvalidShard, s.Index, s.Total)
	}
	return nil
}

// Plan is the result of partitioning a matrix for one host and shard.
type Plan struct {
	// Applicable holds the cases whose arch constraint matches the host.
	Applicable []Case
	// Assigned holds the applicable cases owned by this shard, in order.
	Assigned []Case
	// ArchSkipped holds a Skipped outcome per case excluded by arch.
	ArchSkipped []Outcome
}

// SkippedByArch returns the number of cases excluded by architecture.
func (p Plan) SkippedByArch() int {
	return len(p.ArchSkipped)
}

// Partition filters cases by the host architecture and then keeps the
// applicable cases at positions i where i % Total == Index.
func Partition(cases []Case, host Host, shards Shards) (Plan, error) {
	if err := shards.Validate(); err != nil {
		return Plan{}, err
	}

	var plan Plan
	for _, c := range cases {
		if !host.MatchesArch(c.Arch) {
			plan.ArchSkipped = append(plan.ArchSkipped, skippedOutcome(c, StatusSkipped, SkipArch))
			continue
		}
		plan.Applicable = append(plan.Applicable, c)
	}

	for i, c := range plan.Applicable {
		if i%shards.Total == shards.Index {
			plan.Assigned = append(plan.Assigned, c)
		}
	}
	return plan, nil
}

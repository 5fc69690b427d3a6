package matrix

import (
	"fmt"
	"sync"
)

// ResultSet collects one outcome per scheduled case. Slots are indexed by the
// case position in the scheduled list, so Outcomes is always in declaration
// order regardless of completion order.
type ResultSet struct {
	mu       sync.Mutex
	outcomes []Outcome
	filled   []bool
}

// NewResultSet returns a result set with n empty slots.
func NewResultSet(n int) *ResultSet {
	return &ResultSet{
		outcomes: make([]Outcome, n),
		filled:   make([]bool, n),
	}
}

// Set stores the outcome for slot i. Writing a slot twice is a programming
// error and panics.
func (r *ResultSet) Set(i int, o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.filled[i] {
		panic(fmt.Sprintf("matrix: outcome for slot %d (%s) recorded twice", i, o.Case.Name))
	}
	r.outcomes[i] = o
	r.filled[i] = true
}

// Len returns the number of slots.
func (r *ResultSet) Len() int {
	return len(r.outcomes)
}

// Complete reports whether every slot has an outcome.
func (r *ResultSet) Complete() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.filled {
		if !f {
			return false
		}
	}
	return true
}

// Outcomes returns a copy of the outcomes in declaration order.
func (r *ResultSet) Outcomes() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Outcome, len(r.outcomes))
	copy(out, r.outcomes)
	return out
}

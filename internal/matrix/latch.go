package matrix

import (
	"sync"
	"sync/atomic"
)

// CancelReason records why the latch was tripped.
type CancelReason string

const (
	CancelFailFast  CancelReason = "fail-fast"
	CancelInterrupt CancelReason = "interrupt"
)

// Latch is a one-way cancellation flag shared by all workers of a run.
// Once tripped it stays tripped; the first reason wins.
type Latch struct {
	tripped atomic.Bool
	once    sync.Once
	done    chan struct{}
	mu      sync.Mutex
	reason  CancelReason
	cause   string
}

// NewLatch returns an untripped latch.
func NewLatch() *Latch {
	return &Latch{done: make(chan struct{})}
}

// Trip sets the latch. It reports whether this call was the one that tripped it.
func (l *Latch) Trip(reason CancelReason, cause string) bool {
	first := false
	l.once.Do(func() {
		l.mu.Lock()
		l.reason = reason
		l.cause = cause
		l.mu.Unlock()
		l.tripped.Store(true)
		close(l.done)
		first = true
	})
	return first
}

// Tripped reports whether the latch is set.
func (l *Latch) Tripped() bool {
	return l.tripped.Load()
}

// Done is closed when the latch trips.
func (l *Latch) Done() <-chan struct{} {
	return l.done
}

// Reason returns the reason and cause of the first trip.
func (l *Latch) Reason() (CancelReason, string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reason, l.cause
}

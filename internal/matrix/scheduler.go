package matrix

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// CaseExecutor runs one case to completion.
type CaseExecutor interface {
	Execute(ctx context.Context, c Case, latch *Latch) Outcome
}

// Observer is notified as cases start and finish. Calls come from worker
// goroutines concurrently.
type Observer interface {
	CaseStarted(c Case)
	CaseFinished(o Outcome)
}

// Observers fans notifications out to several observers.
type Observers []Observer

func (obs Observers) CaseStarted(c Case) {
	for _, o := range obs {
		o.CaseStarted(c)
	}
}

func (obs Observers) CaseFinished(out Outcome) {
	for _, o := range obs {
		o.CaseFinished(out)
	}
}

// Scheduler runs cases on a fixed pool of workers.
type Scheduler struct {
	executor    CaseExecutor
	concurrency int
	failFast    bool
	observer    Observer
	latch       *Latch
	abort       context.Context
	logger      *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithConcurrency sets the number of workers.
func WithConcurrency(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n >= 1 {
			s.concurrency = n
		}
	}
}

// WithFailFast trips the latch on the first unexpected failure.
func WithFailFast(failFast bool) SchedulerOption {
	return func(s *Scheduler) {
		s.failFast = failFast
	}
}

// WithObserver registers an observer.
func WithObserver(o Observer) SchedulerOption {
	return func(s *Scheduler) {
		s.observer = o
	}
}

// WithLatch shares an externally owned latch, so an operator interrupt can
// trip it from outside the scheduler.
func WithLatch(l *Latch) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.latch = l
		}
	}
}

// WithAbortContext sets the context whose cancellation kills in-flight
// children. Without it in-flight attempts always run to completion.
func WithAbortContext(ctx context.Context) SchedulerOption {
	return func(s *Scheduler) {
		if ctx != nil {
			s.abort = ctx
		}
	}
}

// WithSchedulerLogger sets the scheduler logger.
func WithSchedulerLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScheduler creates a Scheduler. The default concurrency is 1.
func NewScheduler(executor CaseExecutor, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		executor:    executor,
		concurrency: 1,
		observer:    Observers(nil),
		latch:       NewLatch(),
		abort:       context.Background(),
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Latch returns the cancellation latch of the scheduler.
func (s *Scheduler) Latch() *Latch {
	return s.latch
}

// Execute runs every case and returns one outcome per case in input order.
// Cancelling ctx is an operator interrupt: it trips the latch so unstarted
// cases are cancelled while in-flight attempts finish.
func (s *Scheduler) Execute(ctx context.Context, cases []Case) *ResultSet {
	results := NewResultSet(len(cases))
	if len(cases) == 0 {
		return results
	}

	interrupt := func() {
		if s.latch.Trip(CancelInterrupt, context.Cause(ctx).Error()) {
			s.logger.Warn("interrupt received, cancelling unstarted cases")
		}
	}
	if ctx.Err() != nil {
		interrupt()
	}
	stop := context.AfterFunc(ctx, interrupt)
	defer stop()

	workers := min(s.concurrency, len(cases))
	s.logger.Info("starting workers", "workers", workers, "cases", len(cases), "fail_fast", s.failFast)

	var next atomic.Int64
	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			for {
				i := int(next.Add(1) - 1)
				if i >= len(cases) {
					return nil
				}
				results.Set(i, s.runOne(cases[i]))
			}
		})
	}
	_ = g.Wait()

	return results
}

func (s *Scheduler) runOne(c Case) Outcome {
	if s.latch.Tripped() {
		out := skippedOutcome(c, StatusCancelled, SkipCancelled)
		s.observer.CaseFinished(out)
		return out
	}

	s.observer.CaseStarted(c)
	out := s.executor.Execute(s.abort, c, s.latch)
	s.observer.CaseFinished(out)

	if s.failFast && out.Status.IsFailure() {
		if s.latch.Trip(CancelFailFast, c.Name) {
			s.logger.Warn("fail-fast triggered", "case", c.Name, "status", out.Status)
		}
	}
	return out
}

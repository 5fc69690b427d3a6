package matrix

import "fmt"

// Event drives the case state machine.
type Event int

const (
	// EventBuild starts the cargo build of a case without an override.
	EventBuild Event = iota
	// EventRun starts the override command or the first test run.
	EventRun
	EventBuildSucceeded
	EventBuildFailed
	EventRunSucceeded
	EventRunFailed
	EventRunTimedOut
	// EventCancel is raised at a checkpoint that observed the cancellation
	// latch, or when an in-flight step was aborted by a hard interrupt.
	EventCancel
)

var eventNames = map[Event]string{
	EventBuild:          "Build",
	EventRun:            "Run",
	EventBuildSucceeded: "BuildSucceeded",
	EventBuildFailed:    "BuildFailed",
	EventRunSucceeded:   "RunSucceeded",
	EventRunFailed:      "RunFailed",
	EventRunTimedOut:    "RunTimedOut",
	EventCancel:         "Cancel",
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("Event(%d)", int(e))
}

// Policy carries the inputs a transition depends on besides the event.
type Policy struct {
	// RetriesLeft is the number of run attempts still allowed after the
	// current one.
	RetriesLeft int
	// Cancelled reports whether the cancellation latch is tripped.
	Cancelled bool
}

// Transition returns the state reached from s on ev. A failed or timed out
// run stays Running while a retry is allowed and the latch is clear.
// Invalid transitions return an error and leave the state unchanged.
func Transition(s Status, ev Event, p Policy) (Status, error) {
	switch s {
	case StatusPending:
		switch ev {
		case EventBuild:
			return StatusBuilding, nil
		case EventRun:
			return StatusRunning, nil
		case EventCancel:
			return StatusCancelled, nil
		}
	case StatusBuilding:
		switch ev {
		case EventBuildFailed:
			return StatusBuildFailed, nil
		case EventBuildSucceeded:
			if p.Cancelled {
				return StatusCancelled, nil
			}
			return StatusRunning, nil
		case EventCancel:
			return StatusCancelled, nil
		}
	case StatusRunning:
		switch ev {
		case EventRunSucceeded:
			return StatusPassed, nil
		case EventRunFailed, EventRunTimedOut:
			if p.RetriesLeft > 0 && !p.Cancelled {
				return StatusRunning, nil
			}
			if ev == EventRunTimedOut {
				return StatusTimedOut, nil
			}
			return StatusFailed, nil
		case EventCancel:
			return StatusCancelled, nil
		}
	}
	return s, fmt.Errorf("invalid transition from %s on %s", s, ev)
}

// Finalize applies the allow-failure downgrade to a terminal state and
// returns the reported status together with its cause.
func Finalize(s Status, allowed bool) (status, cause Status) {
	if s.IsFailure() && allowed {
		return StatusAllowedFailure, s
	}
	return s, s
}

package sequencer

import "fmt"

// State is the lifecycle state of one typing session.
type State int

const (
	StateIdle State = iota
	StateCountingDown
	StateRunning
	StatePaused
	StateStopped
	StateCompleted
	StateFailed
)

var stateNames = [...]string{
	StateIdle:         "idle",
	StateCountingDown: "counting-down",
	StateRunning:      "running",
	StatePaused:       "paused",
	StateStopped:      "stopped",
	StateCompleted:    "completed",
	StateFailed:       "failed",
}

func (s State) String() string {
	if int(s) >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateCompleted || s == StateFailed
}

// Active reports whether a session in this state still owns the worker.
func (s State) Active() bool {
	return s == StateCountingDown || s == StateRunning || s == StatePaused
}

// canTransition encodes the forward-only state machine.
func canTransition(from, to State) bool {
	switch from {
	case StateIdle:
		return to == StateCountingDown
	case StateCountingDown:
		return to == StateRunning || to == StateStopped
	case StateRunning:
		return to == StatePaused || to.Terminal()
	case StatePaused:
		return to == StateRunning || to.Terminal()
	default:
		return false
	}
}

// EventKind identifies a status event.
type EventKind int

const (
	EventCountdown EventKind = iota
	EventStarted
	EventProgress
	EventPaused
	EventResumed
	EventStopped
	EventCompleted
	EventFailed
)

var eventNames = [...]string{
	EventCountdown: "countdown",
	EventStarted:   "started",
	EventProgress:  "progress",
	EventPaused:    "paused",
	EventResumed:   "resumed",
	EventStopped:   "stopped",
	EventCompleted: "completed",
	EventFailed:    "failed",
}

func (k EventKind) String() string {
	if int(k) >= 0 && int(k) < len(eventNames) {
		return eventNames[k]
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Status is a snapshot of a session's progress.
type Status struct {
	State      State
	Cursor     int
	TotalUnits int
	Chars      int
	TotalChars int
}

// Percent returns progress over total characters in [0,1].
func (s Status) Percent() float64 {
	if s.TotalChars == 0 {
		if s.State == StateCompleted {
			return 1
		}
		return 0
	}
	return float64(s.Chars) / float64(s.TotalChars)
}

// Event is emitted by the worker on every observable change.
type Event struct {
	Kind EventKind
	Status
	// Remaining is the countdown in whole seconds (EventCountdown only).
	Remaining int
	// Err is set for EventFailed.
	Err error
}

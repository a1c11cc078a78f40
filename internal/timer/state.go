package timer

import (
	"fmt"
	"time"
)

// State is the discrete lifecycle position of an assignment.
type State string

const (
	StateNotStarted State = "not_started"
	StateRunning    State = "running"
	StatePaused     State = "paused"
	StateComplete   State = "complete"
)

// ParseState converts a persisted state value back into a State.
func ParseState(v string) (State, error) {
	switch s := State(v); s {
	case StateNotStarted, StateRunning, StatePaused, StateComplete:
		return s, nil
	}
	return "", &IntegrityError{Field: "state", Reason: fmt.Sprintf("unknown value %q", v)}
}

// Started reports whether the timer has ever been started.
func (s State) Started() bool { return s != StateNotStarted }

// Paused reports whether the timer is currently paused.
func (s State) Paused() bool { return s == StatePaused }

// Complete reports whether the timer has finished.
func (s State) Complete() bool { return s == StateComplete }

// Action is a client-requested transition.
type Action string

const (
	ActionStart    Action = "start"
	ActionPause    Action = "pause"
	ActionResume   Action = "resume"
	ActionComplete Action = "complete"
)

// Snapshot is the persisted timer bookkeeping of one assignment.
// ElapsedSeconds only changes at pause and completion boundaries.
type Snapshot struct {
	State              State
	MaxDurationSeconds int64
	StartTime          *time.Time
	ElapsedSeconds     float64
	RemainingSeconds   *float64
	LastPausedTime     *time.Time
	LastResumedTime    *time.Time
	EndTime            *time.Time
	PauseCount         int
}

// Outcome is the result of an accepted transition.
type Outcome struct {
	Action   Action
	Snapshot Snapshot

	// StartTime is set by start.
	StartTime time.Time
	// EstimatedEnd is set by start and resume.
	EstimatedEnd time.Time
	// Elapsed is set by pause and complete.
	Elapsed float64
	// EndTime is set by complete.
	EndTime time.Time
}

func timePtr(t time.Time) *time.Time { return &t }

func floatPtr(f float64) *float64 { return &f }

// Package timer implements the assignment timer state machine.
//
// Elapsed time is derived from persisted timestamps only. A Machine takes a
// Snapshot and an Action and returns the next Snapshot; it never touches
// storage and reads time exclusively from its clock.
package timer

import (
	"fmt"

	"queuetimer-backend/internal/clock"
)

// allowed is the guard table: the states each action may be applied from.
var allowed = map[Action][]State{
	ActionStart:    {StateNotStarted},
	ActionPause:    {StateRunning},
	ActionResume:   {StatePaused},
	ActionComplete: {StateRunning, StatePaused},
}

// Machine applies lifecycle actions to snapshots.
type Machine struct {
	clock clock.Clock
}

// NewMachine creates a Machine reading time from c.
func NewMachine(c clock.Clock) *Machine {
	return &Machine{clock: c}
}

// Apply validates action against the snapshot's state and returns the updated
// snapshot. A rejected action returns an error and no outcome.
func (m *Machine) Apply(s Snapshot, action Action) (Outcome, error) {
	sources, known := allowed[action]
	if !known {
		return Outcome{}, fmt.Errorf("unknown action %q", action)
	}
	if !contains(sources, s.State) {
		return Outcome{}, rejection(action, s.State)
	}
	if err := checkIntegrity(s); err != nil {
		return Outcome{}, err
	}

	var (
		out Outcome
		err error
	)
	switch action {
	case ActionStart:
		out = m.start(s)
	case ActionPause:
		out, err = m.pause(s)
	case ActionResume:
		out = m.resume(s)
	case ActionComplete:
		out, err = m.complete(s)
	}
	if err != nil {
		return Outcome{}, err
	}
	out.Action = action
	return out, nil
}

func (m *Machine) start(s Snapshot) Outcome {
	now := m.clock.Now()
	next := s
	next.State = StateRunning
	next.StartTime = timePtr(now)
	return Outcome{
		Snapshot:     next,
		StartTime:    now,
		EstimatedEnd: now.Add(seconds(float64(s.MaxDurationSeconds))),
	}
}

func (m *Machine) pause(s Snapshot) (Outcome, error) {
	now := m.clock.Now()
	anchor, err := Anchor(s)
	if err != nil {
		return Outcome{}, err
	}
	elapsed := s.ElapsedSeconds + RunSeconds(anchor, now)

	// remaining may be zero or negative here; pause never completes.
	next := s
	next.State = StatePaused
	next.ElapsedSeconds = elapsed
	next.RemainingSeconds = floatPtr(float64(s.MaxDurationSeconds) - elapsed)
	next.LastPausedTime = timePtr(now)
	next.PauseCount = s.PauseCount + 1
	return Outcome{Snapshot: next, Elapsed: elapsed}, nil
}

func (m *Machine) resume(s Snapshot) Outcome {
	now := m.clock.Now()
	next := s
	next.State = StateRunning
	next.LastResumedTime = timePtr(now)
	return Outcome{
		Snapshot:     next,
		EstimatedEnd: now.Add(seconds(*s.RemainingSeconds)),
	}
}

func (m *Machine) complete(s Snapshot) (Outcome, error) {
	now := m.clock.Now()
	elapsed, end, err := Settle(s, now)
	if err != nil {
		return Outcome{}, err
	}
	next := s
	next.State = StateComplete
	next.ElapsedSeconds = elapsed
	next.EndTime = timePtr(end)
	return Outcome{Snapshot: next, Elapsed: elapsed, EndTime: end}, nil
}

// checkIntegrity verifies the fields the current state depends on.
func checkIntegrity(s Snapshot) error {
	if s.MaxDurationSeconds < 1 {
		return &IntegrityError{State: s.State, Field: "max_duration_seconds", Reason: "must be positive"}
	}
	switch s.State {
	case StateRunning:
		if s.StartTime == nil {
			return missing(s.State, "start_time")
		}
		if s.PauseCount > 0 && s.LastResumedTime == nil {
			return missing(s.State, "last_resumed_time")
		}
	case StatePaused:
		if s.StartTime == nil {
			return missing(s.State, "start_time")
		}
		if s.LastPausedTime == nil {
			return missing(s.State, "last_paused_time")
		}
		if s.RemainingSeconds == nil {
			return missing(s.State, "remaining_seconds")
		}
	}
	return nil
}

func contains(states []State, s State) bool {
	for _, v := range states {
		if v == s {
			return true
		}
	}
	return false
}

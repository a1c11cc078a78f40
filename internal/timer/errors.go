package timer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition matches every *TransitionError.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrIntegrityFault matches every *IntegrityError.
	ErrIntegrityFault = errors.New("assignment state integrity fault")
)

// TransitionError rejects an action that the current state does not allow.
type TransitionError struct {
	Action Action
	From   State
	// Flag is the lifecycle flag that conflicts with the action.
	Flag   string
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s assignment: %s", e.Action, e.Reason)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// IntegrityError reports persisted state that violates an invariant the
// state machine depends on. It signals a server-side defect.
type IntegrityError struct {
	State  State
	Field  string
	Reason string
}

func (e *IntegrityError) Error() string {
	if e.State == "" {
		return fmt.Sprintf("integrity fault on %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("integrity fault on %s in state %s: %s", e.Field, e.State, e.Reason)
}

func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrityFault }

func rejection(action Action, from State) *TransitionError {
	e := &TransitionError{Action: action, From: from}
	switch {
	case from == StateComplete:
		e.Flag, e.Reason = "is_complete", "assignment is already complete"
	case from == StateNotStarted:
		e.Flag, e.Reason = "is_started", "assignment has not been started"
	case action == ActionStart:
		e.Flag, e.Reason = "is_started", "assignment has already been started"
	case action == ActionPause && from == StatePaused:
		e.Flag, e.Reason = "is_paused", "assignment is already paused"
	case action == ActionResume && from == StateRunning:
		e.Flag, e.Reason = "is_paused", "assignment is not paused"
	default:
		e.Flag, e.Reason = "state", fmt.Sprintf("not allowed while %s", from)
	}
	return e
}

func missing(s State, field string) *IntegrityError {
	return &IntegrityError{State: s, Field: field, Reason: "required value is not set"}
}

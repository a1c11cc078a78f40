// Package service validates client input and drives assignments through the
// timer state machine, one writer per assignment at a time.
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"queuetimer-backend/internal/clock"
	"queuetimer-backend/internal/model"
	"queuetimer-backend/internal/parse"
	"queuetimer-backend/internal/store"
	"queuetimer-backend/internal/timer"
)

// AssignmentInput is the client-supplied part of an assignment.
type AssignmentInput struct {
	Title    string
	Duration string // HH:MM
}

// AssignmentService implements the assignment operations for one owner at a time.
type AssignmentService struct {
	store   store.Store
	machine *timer.Machine
	locks   *keyLock
	log     *zap.Logger
}

// NewAssignmentService creates a new AssignmentService.
func NewAssignmentService(s store.Store, c clock.Clock, log *zap.Logger) *AssignmentService {
	return &AssignmentService{
		store:   s,
		machine: timer.NewMachine(c),
		locks:   newKeyLock(),
		log:     log,
	}
}

func validate(in AssignmentInput) (string, int64, error) {
	title, err := parse.Title(in.Title)
	if err != nil {
		return "", 0, invalid("title", err)
	}
	seconds, err := parse.ParseDuration(in.Duration)
	if err != nil {
		return "", 0, invalid("duration", err)
	}
	if seconds < 1 {
		return "", 0, invalid("duration", fmt.Errorf("%w: must be at least 00:01", parse.ErrInvalidDuration))
	}
	return title, seconds, nil
}

// Create stores a new not-started assignment for user.
func (s *AssignmentService) Create(ctx context.Context, user *model.PublicUser, in AssignmentInput) (*model.Assignment, error) {
	title, seconds, err := validate(in)
	if err != nil {
		return nil, err
	}

	a := &model.Assignment{
		UserID:             user.ID,
		Title:              title,
		MaxDurationSeconds: seconds,
		State:              string(timer.StateNotStarted),
	}
	if err := s.store.CreateAssignment(ctx, a); err != nil {
		return nil, err
	}
	s.log.Info("Assignment created",
		zap.Int64("user_id", user.ID),
		zap.String("assignment_id", a.ID),
		zap.Int64("max_duration_seconds", seconds))
	return a, nil
}

// Get returns one of user's assignments.
func (s *AssignmentService) Get(ctx context.Context, user *model.PublicUser, id string) (*model.Assignment, error) {
	a, err := s.store.GetAssignment(ctx, user.ID, id)
	if err != nil {
		s.logFault(err, user, id, "get")
		return nil, err
	}
	return a, nil
}

// List returns all of user's assignments.
func (s *AssignmentService) List(ctx context.Context, user *model.PublicUser) ([]model.Assignment, error) {
	list, err := s.store.ListAssignments(ctx, user.ID)
	if err != nil {
		s.logFault(err, user, "", "list")
		return nil, err
	}
	return list, nil
}

// Update replaces title and duration. Once the timer has started the
// assignment is frozen and Update fails with timer.ErrInvalidTransition.
func (s *AssignmentService) Update(ctx context.Context, user *model.PublicUser, id string, in AssignmentInput) (*model.Assignment, error) {
	title, seconds, err := validate(in)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	a, err := s.store.MutateAssignment(ctx, user.ID, id, func(a *model.Assignment) error {
		state, err := timer.ParseState(a.State)
		if err != nil {
			return err
		}
		if state != timer.StateNotStarted {
			return &timer.TransitionError{
				Action: "update",
				From:   state,
				Flag:   "is_started",
				Reason: "assignment has already been started",
			}
		}
		a.Title = title
		a.MaxDurationSeconds = seconds
		return nil
	})
	if err != nil {
		s.logFault(err, user, id, "update")
		return nil, err
	}
	return a, nil
}

// Delete removes one of user's assignments in any state.
func (s *AssignmentService) Delete(ctx context.Context, user *model.PublicUser, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.store.DeleteAssignment(ctx, user.ID, id); err != nil {
		return err
	}
	s.log.Info("Assignment deleted", zap.Int64("user_id", user.ID), zap.String("assignment_id", id))
	return nil
}

// Transition loads the assignment, applies action and persists the result
// atomically. A rejected action leaves the stored assignment untouched.
func (s *AssignmentService) Transition(ctx context.Context, user *model.PublicUser, id string, action timer.Action) (*model.Assignment, timer.Outcome, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	var out timer.Outcome
	a, err := s.store.MutateAssignment(ctx, user.ID, id, func(a *model.Assignment) error {
		snap, err := a.Snapshot()
		if err != nil {
			return err
		}
		out, err = s.machine.Apply(snap, action)
		if err != nil {
			return err
		}
		a.SetSnapshot(out.Snapshot)
		return nil
	})
	if err != nil {
		s.logFault(err, user, id, string(action))
		return nil, timer.Outcome{}, err
	}

	s.log.Info("Assignment transition applied",
		zap.Int64("user_id", user.ID),
		zap.String("assignment_id", id),
		zap.String("action", string(action)),
		zap.String("state", a.State),
		zap.Float64("elapsed_seconds", a.Statistic.ElapsedSeconds))
	return a, out, nil
}

// Start begins the timer of an idle assignment.
func (s *AssignmentService) Start(ctx context.Context, user *model.PublicUser, id string) (*model.Assignment, timer.Outcome, error) {
	return s.Transition(ctx, user, id, timer.ActionStart)
}

// Pause freezes a running timer and banks the elapsed time.
func (s *AssignmentService) Pause(ctx context.Context, user *model.PublicUser, id string) (*model.Assignment, timer.Outcome, error) {
	return s.Transition(ctx, user, id, timer.ActionPause)
}

// Resume restarts a paused timer.
func (s *AssignmentService) Resume(ctx context.Context, user *model.PublicUser, id string) (*model.Assignment, timer.Outcome, error) {
	return s.Transition(ctx, user, id, timer.ActionResume)
}

// Complete stops a running or paused timer for good.
func (s *AssignmentService) Complete(ctx context.Context, user *model.PublicUser, id string) (*model.Assignment, timer.Outcome, error) {
	return s.Transition(ctx, user, id, timer.ActionComplete)
}

// logFault records integrity faults with full identifiers. Callers only
// ever see an opaque error for these.
func (s *AssignmentService) logFault(err error, user *model.PublicUser, id, op string) {
	if !errors.Is(err, timer.ErrIntegrityFault) && !errors.Is(err, store.ErrIntegrity) {
		return
	}
	s.log.Error("Assignment integrity fault",
		zap.Int64("user_id", user.ID),
		zap.String("assignment_id", id),
		zap.String("operation", op),
		zap.Error(err))
}

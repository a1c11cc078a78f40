package notification

import (
	"context"
	"time"

	"go.uber.org/zap"

	"queuetimer-backend/config"
	"queuetimer-backend/internal/clock"
	"queuetimer-backend/internal/model"
	"queuetimer-backend/internal/timer"
)

// LapseStore is the part of the store the watcher needs.
type LapseStore interface {
	ListRunningAssignments(ctx context.Context) ([]model.Assignment, error)
	MarkLapseNotified(ctx context.Context, assignmentID string, at time.Time) (bool, error)
	ClearLapseNotified(ctx context.Context, assignmentID string) error
}

// Watcher finds running assignments whose budget has run out and queues
// one notification per assignment.
type Watcher struct {
	cfg   config.WatcherConfig
	store LapseStore
	pool  *WorkerPool
	clock clock.Clock
	log   *zap.Logger
}

// NewWatcher creates a new lapse watcher.
func NewWatcher(cfg config.WatcherConfig, s LapseStore, pool *WorkerPool, c clock.Clock, log *zap.Logger) *Watcher {
	return &Watcher{cfg: cfg, store: s, pool: pool, clock: c, log: log}
}

// Run starts the worker pool and scans in a loop until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	if !w.cfg.Enabled {
		w.log.Info("Lapse watcher is disabled. Not starting.")
		return
	}
	w.log.Info("Starting lapse watcher", zap.Duration("interval", w.cfg.Interval))

	w.pool.Start(ctx)

	w.ScanOnce(ctx)

	t := time.NewTimer(w.cfg.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Lapse watcher shutting down.")
			return
		case <-t.C:
			w.ScanOnce(ctx)
			t.Reset(w.cfg.Interval)
		}
	}
}

// ScanOnce dispatches a job for every newly lapsed assignment and reports how many it queued.
func (w *Watcher) ScanOnce(ctx context.Context) int {
	running, err := w.store.ListRunningAssignments(ctx)
	if err != nil {
		w.log.Error("Failed to list running assignments", zap.Error(err))
		return 0
	}

	now := w.clock.Now()
	queued := 0
	for i := range running {
		a := &running[i]
		snap, err := a.Snapshot()
		if err != nil {
			w.log.Warn("Skipping assignment with invalid state", zap.String("assignment_id", a.ID), zap.Error(err))
			continue
		}
		end, ok, err := timer.EstimatedEnd(snap)
		if err != nil {
			w.log.Warn("Skipping assignment with invalid statistics", zap.String("assignment_id", a.ID), zap.Error(err))
			continue
		}
		if !ok || now.Before(end) {
			continue
		}

		marked, err := w.store.MarkLapseNotified(ctx, a.ID, now)
		if err != nil {
			w.log.Error("Failed to mark lapse", zap.String("assignment_id", a.ID), zap.Error(err))
			continue
		}
		if !marked {
			continue
		}

		if !w.pool.Dispatch(ctx, LapseJob{UserID: a.UserID, AssignmentID: a.ID, Title: a.Title}) {
			w.unmark(ctx, a.ID)
			return queued
		}
		queued++
	}

	if queued > 0 {
		w.log.Info("Queued lapse notifications", zap.Int("count", queued))
	}
	return queued
}

// unmark releases the lapse marker of a job that never reached the pool, so
// the next scan picks the assignment up again.
func (w *Watcher) unmark(ctx context.Context, assignmentID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := w.store.ClearLapseNotified(ctx, assignmentID); err != nil {
		w.log.Error("Failed to clear lapse marker", zap.String("assignment_id", assignmentID), zap.Error(err))
	}
}

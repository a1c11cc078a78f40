// Package janitor periodically removes anonymous users whose token expired.
package janitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"queuetimer-backend/config"
)

// Cleaner deletes expired users and everything they own.
type Cleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Service runs the cleanup on a fixed interval.
type Service struct {
	cfg     config.JanitorConfig
	cleaner Cleaner
	log     *zap.Logger
}

// NewService creates a new janitor.
func NewService(cfg config.JanitorConfig, c Cleaner, log *zap.Logger) *Service {
	return &Service{cfg: cfg, cleaner: c, log: log}
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		s.log.Info("Janitor is disabled. Not starting.")
		return
	}
	s.log.Info("Starting janitor", zap.Duration("interval", s.cfg.Interval))

	s.SweepOnce(ctx)

	t := time.NewTimer(s.cfg.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Janitor shutting down.")
			return
		case <-t.C:
			s.SweepOnce(ctx)
			t.Reset(s.cfg.Interval)
		}
	}
}

// SweepOnce removes expired users and reports how many were deleted.
func (s *Service) SweepOnce(ctx context.Context) (int64, error) {
	removed, err := s.cleaner.CleanupExpired(ctx)
	if err != nil {
		s.log.Error("Failed to remove expired users", zap.Error(err))
		return 0, err
	}
	if removed > 0 {
		s.log.Info("Removed expired users", zap.Int64("count", removed))
	}
	return removed, nil
}

package janitor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"queuetimer-backend/config"
	"queuetimer-backend/internal/clock"
	"queuetimer-backend/internal/db"
	"queuetimer-backend/internal/service"
	"queuetimer-backend/internal/store"
)

type countingCleaner struct {
	calls atomic.Int32
	err   error
}

func (c *countingCleaner) CleanupExpired(context.Context) (int64, error) {
	c.calls.Add(1)
	return 2, c.err
}

func TestSweepOnceRemovesExpiredUsers(t *testing.T) {
	gormDB, err := db.Init(&config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 1,
		LogLevel:     "silent",
	}, zap.NewNop())
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	ctx := context.Background()
	c := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	users := service.NewUserService(store.NewGormStore(gormDB), c, time.Hour, zap.NewNop())

	for i := 0; i < 3; i++ {
		_, err := users.Register(ctx, "UTC")
		require.NoError(t, err)
	}
	c.Advance(90 * time.Minute)
	keep, err := users.Register(ctx, "UTC")
	require.NoError(t, err)

	j := NewService(config.JanitorConfig{Enabled: true, Interval: time.Minute}, users, zap.NewNop())
	removed, err := j.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	_, err = users.Authenticate(ctx, keep.Token)
	assert.NoError(t, err)
}

func TestSweepOnceReportsFailure(t *testing.T) {
	cleaner := &countingCleaner{err: errors.New("db down")}
	j := NewService(config.JanitorConfig{Enabled: true}, cleaner, zap.NewNop())

	removed, err := j.SweepOnce(context.Background())
	assert.Error(t, err)
	assert.Zero(t, removed)
}

func TestRunLoopsUntilCancelled(t *testing.T) {
	cleaner := &countingCleaner{}
	j := NewService(config.JanitorConfig{Enabled: true, Interval: 5 * time.Millisecond}, cleaner, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return cleaner.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestRunDisabled(t *testing.T) {
	cleaner := &countingCleaner{}
	j := NewService(config.JanitorConfig{Enabled: false}, cleaner, zap.NewNop())
	j.Run(context.Background())
	assert.Zero(t, cleaner.calls.Load())
}

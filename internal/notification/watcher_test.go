package notification

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"queuetimer-backend/config"
	"queuetimer-backend/internal/clock"
	"queuetimer-backend/internal/db"
	"queuetimer-backend/internal/model"
	"queuetimer-backend/internal/store"
)

var epoch = time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)

func newSQLiteStore(t *testing.T) store.Store {
	t.Helper()
	gormDB, err := db.Init(&config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 1,
		LogLevel:     "silent",
	}, zap.NewNop())
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return store.NewGormStore(gormDB)
}

// seedRunning stores an assignment started at epoch with the given budget.
func seedRunning(t *testing.T, s store.Store, userID int64, budget time.Duration) *model.Assignment {
	t.Helper()
	start := epoch
	a := &model.Assignment{
		UserID:             userID,
		Title:              "Essay",
		MaxDurationSeconds: int64(budget / time.Second),
		State:              "running",
		Statistic:          model.AssignmentStatistic{StartTime: &start},
	}
	require.NoError(t, s.CreateAssignment(context.Background(), a))
	return a
}

func TestWatcherScanOnce(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	u := &model.PublicUser{Token: uuid.NewString(), TokenExpiryTime: epoch.Add(time.Hour), Timezone: "UTC"}
	require.NoError(t, s.CreateUser(ctx, u))
	require.NoError(t, s.PutSubscription(ctx, &model.PushSubscription{
		Endpoint: "https://example.com/push", UserID: u.ID, P256DH: "k", Auth: "a",
	}))

	short := seedRunning(t, s, u.ID, time.Minute)
	seedRunning(t, s, u.ID, time.Hour)

	c := clock.NewManual(epoch.Add(30 * time.Second))
	pool := NewWorkerPool(4, s, &webpush.Options{}, zap.NewNop())
	w := NewWatcher(config.WatcherConfig{Enabled: true, Interval: time.Second}, s, pool, c, zap.NewNop())

	assert.Equal(t, 0, w.ScanOnce(ctx))

	c.Set(epoch.Add(2 * time.Minute))
	assert.Equal(t, 1, w.ScanOnce(ctx))
	job := <-pool.jobs
	assert.Equal(t, short.ID, job.AssignmentID)
	assert.Equal(t, u.ID, job.UserID)

	// Already notified.
	assert.Equal(t, 0, w.ScanOnce(ctx))
}

// detachedStore ignores cancellation on reads so a scan can run past shutdown.
type detachedStore struct {
	store.Store
}

func (d detachedStore) ListRunningAssignments(context.Context) ([]model.Assignment, error) {
	return d.Store.ListRunningAssignments(context.Background())
}

func (d detachedStore) MarkLapseNotified(_ context.Context, id string, at time.Time) (bool, error) {
	return d.Store.MarkLapseNotified(context.Background(), id, at)
}

func TestWatcherScanOnceKeepsLapseWhenDispatchFails(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	u := &model.PublicUser{Token: uuid.NewString(), TokenExpiryTime: epoch.Add(time.Hour), Timezone: "UTC"}
	require.NoError(t, s.CreateUser(ctx, u))
	lapsed := seedRunning(t, s, u.ID, time.Minute)

	c := clock.NewManual(epoch.Add(2 * time.Minute))
	pool := NewWorkerPool(1, s, &webpush.Options{}, zap.NewNop())
	w := NewWatcher(config.WatcherConfig{Enabled: true, Interval: time.Second}, detachedStore{s}, pool, c, zap.NewNop())

	stopped, cancel := context.WithCancel(ctx)
	cancel()
	assert.Equal(t, 0, w.ScanOnce(stopped))
	assert.Empty(t, pool.jobs)

	running, err := s.ListRunningAssignments(ctx)
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Nil(t, running[0].Statistic.LapseNotifiedAt)

	assert.Equal(t, 1, w.ScanOnce(ctx))
	job := <-pool.jobs
	assert.Equal(t, lapsed.ID, job.AssignmentID)
}

func TestWatcherRunSendsNotification(t *testing.T) {
	s := newSQLiteStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	u := &model.PublicUser{Token: uuid.NewString(), TokenExpiryTime: epoch.Add(time.Hour), Timezone: "UTC"}
	require.NoError(t, s.CreateUser(ctx, u))
	require.NoError(t, s.PutSubscription(ctx, &model.PushSubscription{
		Endpoint: "https://example.com/push", UserID: u.ID, P256DH: "k", Auth: "a",
	}))
	seedRunning(t, s, u.ID, time.Minute)

	var (
		mu        sync.Mutex
		endpoints []string
	)
	pool := NewWorkerPool(1, s, &webpush.Options{}, zap.NewNop())
	pool.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			mu.Lock()
			endpoints = append(endpoints, sub.Endpoint)
			mu.Unlock()
			return response(http.StatusCreated), nil
		},
	}

	c := clock.NewManual(epoch.Add(time.Hour))
	w := NewWatcher(config.WatcherConfig{Enabled: true, Interval: 10 * time.Millisecond}, s, pool, c, zap.NewNop())

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(endpoints) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"https://example.com/push"}, endpoints)
}

func TestWatcherDisabled(t *testing.T) {
	w := NewWatcher(config.WatcherConfig{Enabled: false}, nil, nil, clock.Real{}, zap.NewNop())
	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled watcher did not return")
	}
}

package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"queuetimer-backend/config"
	"queuetimer-backend/internal/api"
	"queuetimer-backend/internal/clock"
	"queuetimer-backend/internal/db"
	"queuetimer-backend/internal/janitor"
	"queuetimer-backend/internal/mw"
	"queuetimer-backend/internal/service"
	"queuetimer-backend/internal/store"
)

// TestAssignmentLifecycle drives one user through the HTTP API from token
// issue to expiry cleanup and checks the stored timer at each step.
func TestAssignmentLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// --- Test Setup ---
	cfg := &config.Config{}
	cfg.Database = config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 1,
		LogLevel:     "silent",
	}
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000
	cfg.Server.CacheTTLSeconds = 60
	cfg.Auth.CacheTTLSeconds = 30
	cfg.Janitor = config.JanitorConfig{Enabled: true, Interval: time.Minute}

	gormDB, err := db.Init(&cfg.Database, zap.NewNop())
	require.NoError(t, err)
	sqlDB, _ := gormDB.DB()
	defer sqlDB.Close()

	start := time.Date(2024, 9, 2, 7, 0, 0, 0, time.UTC)
	clk := clock.NewManual(start)
	appStore := store.NewGormStore(gormDB)
	users := service.NewUserService(appStore, clk, time.Hour, zap.NewNop())
	assignments := service.NewAssignmentService(appStore, clk, zap.NewNop())
	handler := api.NewHandler(assignments, users, appStore, &webpush.Options{}, clk, zap.NewNop())
	router := api.NewRouter(handler, cfg)

	call := func(method, path, token string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set(mw.UserHeader, token)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	// --- Step 1: issue a token ---
	w := call(http.MethodPost, "/api/users/new", "", map[string]string{"timezone": "Asia/Tokyo"})
	require.Equal(t, http.StatusCreated, w.Code)
	var token struct {
		UserID string `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &token))

	// --- Step 2: a one-minute assignment overshoots its budget ---
	w = call(http.MethodPost, "/api/assignments", token.UserID, map[string]string{"title": "Reading", "duration": "00:01"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	base := "/api/assignments/" + created.ID

	w = call(http.MethodPost, base+"/start", token.UserID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"start_time":"16:00:00","estimated_end_time":"16:01:00"}`, w.Body.String())

	clk.Advance(70 * time.Second)
	require.Equal(t, http.StatusNoContent, call(http.MethodPost, base+"/complete", token.UserID, nil).Code)

	// Completion is backdated to the moment the budget ran out.
	stored, err := appStore.GetAssignment(context.Background(), mustUser(t, appStore, token.UserID, clk.Now()), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "complete", stored.State)
	assert.Equal(t, 60.0, stored.Statistic.ElapsedSeconds)
	require.NotNil(t, stored.Statistic.EndTime)
	assert.True(t, start.Add(time.Minute).Equal(*stored.Statistic.EndTime))

	w = call(http.MethodGet, base, token.UserID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "00:01:00", view["elapsed_time_formatted"])
	assert.Equal(t, "16:01:00", view["end_time_formatted"])
	assert.Equal(t, true, view["is_complete"])

	// --- Step 3: the token expires and the janitor removes everything ---
	clk.Advance(2 * time.Hour)
	assert.Equal(t, http.StatusNotFound, call(http.MethodGet, "/api/assignments", token.UserID, nil).Code)

	removed, err := janitor.NewService(cfg.Janitor, users, zap.NewNop()).SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	var remaining int64
	require.NoError(t, gormDB.Table("assignment_statistics").Count(&remaining).Error)
	assert.Zero(t, remaining)
}

func mustUser(t *testing.T, s store.Store, token string, now time.Time) int64 {
	t.Helper()
	u, err := s.FindUserByToken(context.Background(), token, now)
	require.NoError(t, err)
	return u.ID
}

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"queuetimer-backend/config"
	"queuetimer-backend/internal/clock"
	"queuetimer-backend/internal/db"
	"queuetimer-backend/internal/mw"
	"queuetimer-backend/internal/service"
	"queuetimer-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// 14:00 UTC is 10:00 in New York during daylight saving time.
var epoch = time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)

type testEnv struct {
	router *gin.Engine
	clock  *clock.Manual
	store  store.Store
}

func newTestEnv(t *testing.T) *testEnv {
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

	cfg := &config.Config{}
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000
	cfg.Server.CacheTTLSeconds = 60
	cfg.Auth.CacheTTLSeconds = 30

	s := store.NewGormStore(gormDB)
	c := clock.NewManual(epoch)
	log := zap.NewNop()
	h := NewHandler(
		service.NewAssignmentService(s, c, log),
		service.NewUserService(s, c, time.Hour, log),
		s,
		&webpush.Options{VAPIDPublicKey: "public-key"},
		c,
		log,
	)
	return &testEnv{router: NewRouter(h, cfg), clock: c, store: s}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
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
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) newUser(t *testing.T, tz string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/users/new", "", map[string]string{"timezone": tz})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		UserID string `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.UserID
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jurix/config"
	"jurix/tracker"
	"jurix/types"
)

func testConfig(backendURL, redisAddr string) *config.Config {
	return &config.Config{
		Port: "0",
		Backend: config.BackendConfig{
			URL:               backendURL,
			NotifyTimeout:     time.Second,
			GenerationTimeout: 5 * time.Second,
		},
		Redis: config.RedisConfig{Enabled: redisAddr != "", Addr: redisAddr},
		Router: config.RouterConfig{
			ResolvedStatuses: config.DefaultResolvedStatuses,
			Workers:          2,
			QueueSize:        16,
		},
		Tracker: config.TrackerConfig{
			InProgressTTL: time.Minute,
			GeneratedTTL:  time.Hour,
			SweepSchedule: "@every 1h",
		},
		Ledger: config.LedgerConfig{Cap: 10},
	}
}

func TestWebhookToArticle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)

	var generations atomic.Int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/api/notify-update":
			w.Write([]byte(`{"status":"ok"}`))
		case strings.HasPrefix(r.URL.Path, "/api/article/generate/"):
			generations.Add(1)
			w.Write([]byte(`{"status":"success","article":{"title":"Safari login fix"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer backend.Close()

	ctx := context.Background()
	a, err := New(ctx, testConfig(backend.URL, mr.Addr()))
	require.NoError(t, err)
	_, err = a.Start(ctx)
	require.NoError(t, err)

	payload := `{"eventTypeId":4,"issue":{"key":"ABC-1","fields":{"summary":"Login fails","status":{"name":"Done"},"project":{"key":"ABC"},"assignee":{"name":"alex"}}}}`
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/webhook/jira", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		a.Handler().ServeHTTP(w, req)
		require.Equal(t, http.StatusAccepted, w.Code)
	}

	require.Eventually(t, func() bool {
		return a.tracker.HasBeenGenerated(ctx, "ABC-1")
	}, 5*time.Second, 10*time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, a.Shutdown(shutdownCtx))

	assert.Equal(t, int32(1), generations.Load(), "repeated events generate once")
	assert.True(t, mr.Exists(tracker.GeneratedPrefix+"ABC-1"))

	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/updates/ABC?since=0", nil))
	var updates types.UpdatesSince
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updates))
	assert.Equal(t, 3, updates.UpdateCount)
}

func TestNewWithoutRedisFallsBackToMemory(t *testing.T) {
	a, err := New(context.Background(), testConfig("http://localhost:5001", ""))
	require.NoError(t, err)
	assert.True(t, a.tracker.Degraded())
	assert.Nil(t, a.jira)
	assert.Len(t, a.buses, 1)
	require.NoError(t, a.tracker.Close())
}

func TestStartRejectsBadSweepSchedule(t *testing.T) {
	cfg := testConfig("http://localhost:5001", "")
	cfg.Tracker.SweepSchedule = "every now and then"
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)

	_, err = a.Start(context.Background())
	assert.ErrorContains(t, err, "stale claim sweep")
}

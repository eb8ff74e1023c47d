package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	gojira "github.com/andygrunwald/go-jira"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jurix/articles"
	"jurix/events"
	"jurix/jira"
	"jurix/ledger"
	"jurix/tracker"
	"jurix/types"
)

var now = time.UnixMilli(1_700_000_000_000)

type fakeTrigger struct {
	result events.TriggerResult
	err    error
	got    []types.IssueSnapshot
}

func (f *fakeTrigger) TriggerGeneration(_ context.Context, snap types.IssueSnapshot) (events.TriggerResult, error) {
	f.got = append(f.got, snap)
	return f.result, f.err
}

func (f *fakeTrigger) Pending() int { return 3 }

type fakeIssues struct {
	issue *gojira.Issue
	err   error
}

func (f *fakeIssues) FetchIssue(context.Context, string) (*gojira.Issue, error) {
	return f.issue, f.err
}

type fakeHealth struct{ err error }

func (f fakeHealth) Health(context.Context) error { return f.err }

type testServer struct {
	router   *gin.Engine
	ledger   *ledger.Ledger
	tracker  *tracker.Tracker
	articles *articles.Service
	trigger  *fakeTrigger
	bus      *events.LocalBus
	clock    time.Time
}

func newTestServer(t *testing.T, mutate func(*Deps)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &testServer{
		ledger:   ledger.New(10),
		articles: articles.New(nil),
		trigger:  &fakeTrigger{result: events.TriggerStarted},
		bus:      events.NewLocalBus(),
		clock:    now,
	}
	clock := func() time.Time { return s.clock }
	s.tracker = tracker.New(tracker.NewMemoryStoreWithClock(clock), tracker.WithClock(clock))
	d := Deps{
		Updates:  s.ledger,
		Articles: s.articles,
		Tracker:  s.tracker,
		Trigger:  s.trigger,
		Webhook:  s.bus,
		Backend:  fakeHealth{},
		Now:      func() time.Time { return now },
	}
	if mutate != nil {
		mutate(&d)
	}
	s.router = NewRouter(d)
	return s
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "memory", body["tracker"])
	assert.Equal(t, float64(3), body["pendingTasks"])
}

func TestDeepHealthReportsBackendFailure(t *testing.T) {
	s := newTestServer(t, func(d *Deps) { d.Backend = fakeHealth{err: errors.New("connection refused")} })

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/health", "").Code)

	w := s.do(http.MethodGet, "/health?deep=true", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestUpdatesSince(t *testing.T) {
	s := newTestServer(t, nil)
	s.ledger.RecordUpdate("ABC", types.UpdateEvent{IssueKey: "ABC-1", Status: "Done", EventType: types.EventResolved, Timestamp: now.UnixMilli() - 1000})
	s.ledger.RecordUpdate("ABC", types.UpdateEvent{IssueKey: "ABC-2", Status: "To Do", EventType: types.EventCreated, Timestamp: now.UnixMilli()})

	w := s.do(http.MethodGet, "/api/updates/ABC?since="+itoa(now.UnixMilli()-1000), "")
	require.Equal(t, http.StatusOK, w.Code)
	var got types.UpdatesSince
	decode(t, w, &got)
	assert.True(t, got.HasUpdates)
	require.Len(t, got.Updates, 1)
	assert.Equal(t, "ABC-2", got.Updates[0].IssueKey)

	w = s.do(http.MethodGet, "/api/updates/ABC", "")
	decode(t, w, &got)
	assert.Equal(t, 2, got.UpdateCount, "default window covers the last five minutes")

	w = s.do(http.MethodGet, "/api/updates/XYZ?since=0", "")
	got = types.UpdatesSince{}
	decode(t, w, &got)
	assert.False(t, got.HasUpdates)
	assert.Nil(t, got.LatestTimestamp)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/updates/ABC?since=yesterday", "").Code)
}

func TestProjectSummary(t *testing.T) {
	s := newTestServer(t, nil)
	s.ledger.RecordUpdate("ABC", types.UpdateEvent{IssueKey: "ABC-1", Timestamp: 42})

	w := s.do(http.MethodGet, "/api/updates/ABC/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got types.ProjectSummary
	decode(t, w, &got)
	assert.Equal(t, int64(1), got.UpdateCount)
	assert.Equal(t, int64(42), got.LastUpdate)
}

func TestGetArticle(t *testing.T) {
	s := newTestServer(t, nil)
	require.NoError(t, s.articles.Store(context.Background(), "ABC-1", map[string]interface{}{"title": "Safari login"}))

	w := s.do(http.MethodGet, "/api/article/ABC-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got types.ArticleData
	decode(t, w, &got)
	assert.Equal(t, types.ArticleSuccess, got.Status)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/article/ABC-2", "").Code)
}

func TestArticleStatus(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	require.True(t, s.tracker.TryMarkInProgress(ctx, "ABC-1"))
	require.NoError(t, s.articles.StoreError(ctx, "ABC-2", "backend returned 500"))

	tests := []struct {
		key    string
		state  types.GenerationState
		reason string
	}{
		{"ABC-1", types.StateInProgress, ""},
		{"ABC-2", types.StateFailed, "backend returned 500"},
		{"ABC-3", types.StateAbsent, ""},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			w := s.do(http.MethodGet, "/api/article/"+tc.key+"/status", "")
			require.Equal(t, http.StatusOK, w.Code)
			var got ArticleStatusResponse
			decode(t, w, &got)
			assert.Equal(t, tc.key, got.IssueKey)
			assert.Equal(t, tc.state, got.State)
			assert.Equal(t, tc.reason, got.Reason)
		})
	}
}

func TestGenerateFromBody(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/api/article/ABC-7/generate", `{"summary":"Crash on save","status":"Done","type":"Bug"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"started"`)

	require.Len(t, s.trigger.got, 1)
	assert.Equal(t, "ABC-7", s.trigger.got[0].Key)
	assert.Equal(t, "ABC", s.trigger.got[0].ProjectKey)
	assert.Equal(t, "Crash on save", s.trigger.got[0].Summary)
}

func TestGenerateFromChunkedBody(t *testing.T) {
	s := newTestServer(t, func(d *Deps) { d.Issues = nil })

	// a reader of unknown size leaves ContentLength at -1
	body := io.MultiReader(bytes.NewReader([]byte(`{"summary":"Crash on save",`)), bytes.NewReader([]byte(`"status":"Done"}`)))
	req := httptest.NewRequest(http.MethodPost, "/api/article/ABC-7/generate", body)
	req.Header.Set("Content-Type", "application/json")
	req.TransferEncoding = []string{"chunked"}
	require.Equal(t, int64(-1), req.ContentLength)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	require.Len(t, s.trigger.got, 1)
	assert.Equal(t, "Crash on save", s.trigger.got[0].Summary)
}

func TestGenerateFetchesFromJira(t *testing.T) {
	issue := &gojira.Issue{Key: "ABC-9", Fields: &gojira.IssueFields{
		Summary: "Timeout on export",
		Status:  &gojira.Status{Name: "Resolved"},
		Project: gojira.Project{Key: "ABC"},
	}}

	tests := []struct {
		name     string
		issues   IssueFetcher
		result   events.TriggerResult
		err      error
		wantCode int
	}{
		{"started", &fakeIssues{issue: issue}, events.TriggerStarted, nil, http.StatusAccepted},
		{"already generated", &fakeIssues{issue: issue}, events.TriggerAlreadyGenerated, nil, http.StatusConflict},
		{"in progress", &fakeIssues{issue: issue}, events.TriggerInProgress, nil, http.StatusConflict},
		{"queue full", &fakeIssues{issue: issue}, "", events.ErrQueueFull, http.StatusServiceUnavailable},
		{"unknown issue", &fakeIssues{err: jira.ErrIssueNotFound}, events.TriggerStarted, nil, http.StatusNotFound},
		{"jira down", &fakeIssues{err: errors.New("dial tcp: refused")}, events.TriggerStarted, nil, http.StatusBadGateway},
		{"jira not configured", nil, events.TriggerStarted, nil, http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, func(d *Deps) { d.Issues = tc.issues })
			s.trigger.result = tc.result
			s.trigger.err = tc.err

			w := s.do(http.MethodPost, "/api/article/ABC-9/generate", "")
			assert.Equal(t, tc.wantCode, w.Code, w.Body.String())
			if tc.wantCode == http.StatusAccepted {
				require.Len(t, s.trigger.got, 1)
				assert.Equal(t, "Timeout on export", s.trigger.got[0].Summary)
			}
		})
	}
}

func TestArticleFeedback(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()
	require.NoError(t, s.articles.Store(ctx, "ABC-1", map[string]interface{}{"title": "Safari login"}))
	require.NoError(t, s.articles.StoreError(ctx, "ABC-2", "boom"))

	w := s.do(http.MethodPost, "/api/article/ABC-1/feedback", `{"feedback":"add steps","action":"refine","user":"sam"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var got types.ArticleData
	decode(t, w, &got)
	assert.Equal(t, 2, got.Version)

	w = s.do(http.MethodPost, "/api/article/ABC-1/feedback", `{"action":"approve"}`)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &got)
	assert.Equal(t, "approved", got.Article["approval_status"])

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/article/ABC-1/feedback", `{"action":"delete"}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/article/ABC-1/feedback", `{`).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/article/ABC-3/feedback", `{"action":"refine"}`).Code)
	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/api/article/ABC-2/feedback", `{"action":"refine"}`).Code)
}

func TestNotifications(t *testing.T) {
	s := newTestServer(t, nil)
	n, ok := s.articles.CreateUserNotification("alex", "ABC-1", "Login fails")
	require.True(t, ok)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/notifications", "").Code)

	w := s.do(http.MethodGet, "/api/notifications?user=alex", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Notifications []types.Notification `json:"notifications"`
	}
	decode(t, w, &body)
	require.Len(t, body.Notifications, 1)
	assert.Equal(t, n.ID, body.Notifications[0].ID)
	assert.False(t, body.Notifications[0].Read)

	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/notifications/"+n.ID+"/read?user=alex", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/notifications/missing/read?user=alex", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/notifications/"+n.ID+"/read", "").Code)
}

func TestSweep(t *testing.T) {
	s := newTestServer(t, nil)
	require.True(t, s.tracker.TryMarkInProgress(context.Background(), "ABC-1"))

	w := s.do(http.MethodPost, "/api/admin/sweep", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"removed":0`)

	s.clock = now.Add(time.Minute)
	w = s.do(http.MethodPost, "/api/admin/sweep?maxAge=30s", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"removed":1`)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/admin/sweep?maxAge=soon", "").Code)
}

func TestJiraWebhook(t *testing.T) {
	s := newTestServer(t, nil)
	received := make(chan *events.IssueEvent, 1)
	_, err := s.bus.Subscribe(func(_ context.Context, ev *events.IssueEvent) { received <- ev })
	require.NoError(t, err)

	body := `{"webhookEvent":"jira:issue_updated","issue_event_type_name":"issue_resolved","issue":{"key":"ABC-1","fields":{"project":{"key":"ABC"}}}}`
	w := s.do(http.MethodPost, "/webhook/jira", body)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"eventType":"resolved"`)

	ev := <-received
	assert.Equal(t, "ABC-1", ev.Issue.Key)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/webhook/jira", "not json").Code)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, handler http.HandlerFunc, args ...string) (string, error) {
	t.Helper()
	srv := httptest.NewServer(handler)
	defer srv.Close()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--url", srv.URL))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSummaryCommand(t *testing.T) {
	out, err := run(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/updates/ABC/summary", r.URL.Path)
		w.Write([]byte(`{"projectKey":"ABC","lastUpdate":1700000000000,"updateCount":7,"recentUpdates":[{"issueKey":"ABC-1","status":"Done","eventType":"resolved","timestamp":1700000000000}]}`))
	}, "summary", "ABC")
	require.NoError(t, err)
	assert.Contains(t, out, "updates: 7")
	assert.Contains(t, out, "ABC-1")
}

func TestUpdatesCommandWithoutUpdates(t *testing.T) {
	out, err := run(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"projectKey":"ABC","hasUpdates":false,"updateCount":0}`))
	}, "updates", "ABC", "--since", "1m")
	require.NoError(t, err)
	assert.Contains(t, out, "no updates for ABC")
}

func TestSweepCommand(t *testing.T) {
	out, err := run(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/sweep", r.URL.Path)
		w.Write([]byte(`{"removed":3}`))
	}, "sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "removed 3 stale claims")
}

func TestArticleCommandReportsFailure(t *testing.T) {
	out, err := run(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/article/ABC-1/status":
			w.Write([]byte(`{"issueKey":"ABC-1","state":"failed","reason":"backend returned 500","articleStatus":"error"}`))
		case "/api/article/ABC-1":
			w.Write([]byte(`{"issueKey":"ABC-1","status":"error","error":"backend returned 500","version":0}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}, "article", "ABC-1")
	require.NoError(t, err)
	assert.Contains(t, out, "state: failed")
	assert.Contains(t, out, "backend returned 500")
}

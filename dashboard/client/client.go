// Package client is the HTTP client for the listener's dashboard API.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"jurix/types"
)

// DefaultBaseURL is the listener address used when none is configured
const DefaultBaseURL = "http://localhost:8080"

// Client represents the jurix dashboard API client
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new dashboard client
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// GetEnvOrDefault returns the value of an environment variable or a default value
func GetEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// APIError is a non-2xx response from the listener
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// Health is the listener health report
type Health struct {
	Status       string `json:"status"`
	Tracker      string `json:"tracker"`
	PendingTasks int    `json:"pendingTasks"`
	Backend      string `json:"backend,omitempty"`
}

// ArticleStatus is the generation state of one issue
type ArticleStatus struct {
	types.GenerationStatus
	ArticleStatus types.ArticleStatus `json:"articleStatus,omitempty"`
	Title         string              `json:"title,omitempty"`
}

// GenerateResult is the response to a manual generation request
type GenerateResult struct {
	IssueKey string `json:"issueKey"`
	Result   string `json:"result"`
}

// Health fetches the listener health. deep also checks the AI backend.
func (c *Client) Health(ctx context.Context, deep bool) (*Health, error) {
	path := "/health"
	if deep {
		path += "?deep=true"
	}
	var h Health
	if err := c.doJSONRequest(ctx, http.MethodGet, path, nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// UpdatesSince fetches project updates newer than since (ms)
func (c *Client) UpdatesSince(ctx context.Context, projectKey string, since int64) (*types.UpdatesSince, error) {
	path := "/api/updates/" + url.PathEscape(projectKey) + "?since=" + strconv.FormatInt(since, 10)
	var u types.UpdatesSince
	if err := c.doJSONRequest(ctx, http.MethodGet, path, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Summary fetches the cumulative project summary
func (c *Client) Summary(ctx context.Context, projectKey string) (*types.ProjectSummary, error) {
	var s types.ProjectSummary
	if err := c.doJSONRequest(ctx, http.MethodGet, "/api/updates/"+url.PathEscape(projectKey)+"/summary", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Article fetches the stored article record for an issue
func (c *Client) Article(ctx context.Context, issueKey string) (*types.ArticleData, error) {
	var a types.ArticleData
	if err := c.doJSONRequest(ctx, http.MethodGet, "/api/article/"+url.PathEscape(issueKey), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ArticleStatus fetches the generation state of an issue
func (c *Client) ArticleStatus(ctx context.Context, issueKey string) (*ArticleStatus, error) {
	var s ArticleStatus
	if err := c.doJSONRequest(ctx, http.MethodGet, "/api/article/"+url.PathEscape(issueKey)+"/status", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Generate requests article generation; the listener fetches the issue from Jira.
// A conflict (already generated or in progress) is reported in the result, not as an error.
func (c *Client) Generate(ctx context.Context, issueKey string) (*GenerateResult, error) {
	var r GenerateResult
	err := c.doJSONRequest(ctx, http.MethodPost, "/api/article/"+url.PathEscape(issueKey)+"/generate", nil, &r)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict && r.Result != "" {
		return &r, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Feedback records a refine or approve action on an article
func (c *Client) Feedback(ctx context.Context, issueKey string, entry types.FeedbackEntry) (*types.ArticleData, error) {
	var a types.ArticleData
	if err := c.doJSONRequest(ctx, http.MethodPost, "/api/article/"+url.PathEscape(issueKey)+"/feedback", entry, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Notifications lists the user's recent notifications
func (c *Client) Notifications(ctx context.Context, user string) ([]types.Notification, error) {
	var resp struct {
		Notifications []types.Notification `json:"notifications"`
	}
	if err := c.doJSONRequest(ctx, http.MethodGet, "/api/notifications?user="+url.QueryEscape(user), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Notifications, nil
}

// Sweep removes generation claims older than maxAge; zero uses the server default
func (c *Client) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	path := "/api/admin/sweep"
	if maxAge > 0 {
		path += "?maxAge=" + url.QueryEscape(maxAge.String())
	}
	var resp struct {
		Removed int `json:"removed"`
	}
	if err := c.doJSONRequest(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

// doJSONRequest sends a JSON request and decodes the response into result.
// The body of a non-2xx response is still decoded so callers can inspect it.
func (c *Client) doJSONRequest(ctx context.Context, method, path string, payload, result interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if result != nil {
			_ = json.Unmarshal(data, result)
		}
		var errBody struct {
			Error string `json:"error"`
		}
		msg := string(data)
		if json.Unmarshal(data, &errBody) == nil && errBody.Error != "" {
			msg = errBody.Error
		}
		return &APIError{Code: resp.StatusCode, Message: msg}
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

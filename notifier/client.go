// Package notifier is the HTTP client for the AI backend: update
// notifications, article generation and health checks.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"jurix/config"
	"jurix/logging"
	"jurix/types"
)

// Client talks to the AI backend
type Client struct {
	baseURL           string
	httpClient        *http.Client
	notifyTimeout     time.Duration
	generationTimeout time.Duration
	now               func() time.Time
}

// New creates a backend client. A non-empty token is sent as a bearer token
// on every request.
func New(cfg config.BackendConfig) *Client {
	httpClient := &http.Client{}
	if cfg.Token != "" {
		httpClient = oauth2.NewClient(context.Background(),
			oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"}))
	}

	notifyTimeout := cfg.NotifyTimeout
	if notifyTimeout <= 0 {
		notifyTimeout = config.DefaultNotifyTimeout
	}
	generationTimeout := cfg.GenerationTimeout
	if generationTimeout <= 0 {
		generationTimeout = config.DefaultGenerationTimeout
	}

	return &Client{
		baseURL:           cfg.URL,
		httpClient:        httpClient,
		notifyTimeout:     notifyTimeout,
		generationTimeout: generationTimeout,
		now:               time.Now,
	}
}

// GenerationTimeout returns the hard limit applied to one generation request
func (c *Client) GenerationTimeout() time.Duration {
	return c.generationTimeout
}

// UpdateDetails is the issue summary sent with every update notification
type UpdateDetails struct {
	IssueKey string `json:"issueKey"`
	Status   string `json:"status"`
	Summary  string `json:"summary"`
	Assignee string `json:"assignee,omitempty"`
	Priority string `json:"priority,omitempty"`
}

// UpdateNotification is the body of POST /api/notify-update
type UpdateNotification struct {
	ProjectKey string          `json:"projectKey"`
	UpdateType types.EventType `json:"updateType"`
	Details    UpdateDetails   `json:"details"`
	Timestamp  int64           `json:"timestamp"`
}

// NotifyUpdate tells the backend about an issue change. Failures are logged
// and never returned.
func (c *Client) NotifyUpdate(ctx context.Context, projectKey string, eventType types.EventType, issue types.IssueSnapshot) {
	ctx, cancel := context.WithTimeout(ctx, c.notifyTimeout)
	defer cancel()

	payload := UpdateNotification{
		ProjectKey: projectKey,
		UpdateType: eventType,
		Details: UpdateDetails{
			IssueKey: issue.Key,
			Status:   issue.Status,
			Summary:  issue.Summary,
			Assignee: issue.Assignee,
			Priority: issue.Priority,
		},
		Timestamp: c.now().UnixMilli(),
	}

	if err := c.doJSONRequest(ctx, http.MethodPost, "/api/notify-update", payload, nil); err != nil {
		logging.Warn("failed to notify backend of update",
			"issue", issue.Key, "project", projectKey, "error", err)
		return
	}
	logging.Debug("notified backend of update", "issue", issue.Key, "type", eventType)
}

// GenerationRequest is the body of POST /api/article/generate/{issueKey}
type GenerationRequest struct {
	Key         string `json:"key"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Type        string `json:"type"`
	ProjectKey  string `json:"projectKey"`
	Resolution  string `json:"resolution,omitempty"`
}

type generationResponse struct {
	Status  string                 `json:"status"`
	Article map[string]interface{} `json:"article"`
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
}

// RequestArticleGeneration asks the backend to write an article for a
// resolved issue. It blocks for up to the generation timeout and reports every
// failure through the returned outcome.
func (c *Client) RequestArticleGeneration(ctx context.Context, issue types.IssueSnapshot) types.GenerationOutcome {
	ctx, cancel := context.WithTimeout(ctx, c.generationTimeout)
	defer cancel()

	req := GenerationRequest{
		Key:         issue.Key,
		Summary:     issue.Summary,
		Description: issue.Description,
		Status:      issue.Status,
		Type:        issue.Type,
		ProjectKey:  issue.ProjectKey,
		Resolution:  issue.Resolution,
	}

	var resp generationResponse
	path := "/api/article/generate/" + url.PathEscape(issue.Key)
	if err := c.doJSONRequest(ctx, http.MethodPost, path, req, &resp); err != nil {
		if isTimeout(err) {
			return types.GenerationOutcome{
				ErrorMessage: fmt.Sprintf("article generation timed out after %s", c.generationTimeout),
				TimedOut:     true,
			}
		}
		return types.GenerationOutcome{ErrorMessage: err.Error()}
	}

	if resp.Status != string(types.ArticleSuccess) || resp.Article == nil {
		msg := resp.Error
		if msg == "" {
			msg = resp.Message
		}
		if msg == "" {
			msg = fmt.Sprintf("backend returned status %q without an article", resp.Status)
		}
		return types.GenerationOutcome{ErrorMessage: msg}
	}

	return types.GenerationOutcome{Success: true, Article: resp.Article}
}

// Health checks GET /health
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.notifyTimeout)
	defer cancel()
	if err := c.doJSONRequest(ctx, http.MethodGet, "/health", nil, nil); err != nil {
		return fmt.Errorf("backend health check failed: %w", err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

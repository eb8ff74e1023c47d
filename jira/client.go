package jira

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gojira "github.com/andygrunwald/go-jira"

	"jurix/config"
	"jurix/logging"
)

// ErrIssueNotFound is returned when Jira has no issue with the requested key
var ErrIssueNotFound = errors.New("issue not found")

// Client handles interactions with the Jira REST API
type Client struct {
	client *gojira.Client
}

// NewClient creates a Jira client authenticated with basic auth (username + API token)
func NewClient(cfg config.JiraConfig) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("JIRA_URL, JIRA_USERNAME and JIRA_TOKEN must all be set")
	}

	tp := gojira.BasicAuthTransport{
		Username: cfg.Username,
		Password: cfg.Token,
	}
	client, err := gojira.NewClient(tp.Client(), cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %w", err)
	}
	return &Client{client: client}, nil
}

// FetchIssue loads an issue document; pass it to Snapshot for the service view
func (c *Client) FetchIssue(ctx context.Context, issueKey string) (*gojira.Issue, error) {
	issue, resp, err := c.client.Issue.GetWithContext(ctx, issueKey, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%s: %w", issueKey, ErrIssueNotFound)
		}
		return nil, fmt.Errorf("failed to fetch jira issue %s: %w", issueKey, err)
	}
	return issue, nil
}

// AddComment posts a comment on the issue
func (c *Client) AddComment(ctx context.Context, issueKey, body string) error {
	_, resp, err := c.client.Issue.AddCommentWithContext(ctx, issueKey, &gojira.Comment{Body: body})
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return fmt.Errorf("failed to comment on %s (status: %d): %w", issueKey, status, err)
	}
	return nil
}

const (
	startedComment = "AI Article Generation Started\n\n" +
		"JURIX AI is now analyzing this resolved issue to generate a knowledge base article. " +
		"This typically takes 1-2 minutes."
	completeComment = "AI Article Generated Successfully\n\n" +
		"*Title:* %s\n\n" +
		"The article has been generated and is available in the knowledge base."
	failedComment = "AI Article Generation Failed\n\n" +
		"The AI article generation encountered an error. " +
		"Please try again later or contact your administrator."
	timeoutComment = "AI Article Generation Timeout\n\n" +
		"The article generation process took longer than expected and was stopped. " +
		"It can be triggered again from the dashboard."
)

// GenerationStarted comments that generation began
func (c *Client) GenerationStarted(ctx context.Context, issueKey string) {
	c.comment(ctx, issueKey, startedComment)
}

// GenerationComplete comments with the new article title
func (c *Client) GenerationComplete(ctx context.Context, issueKey, title string) {
	if title == "" {
		title = issueKey
	}
	c.comment(ctx, issueKey, fmt.Sprintf(completeComment, title))
}

// GenerationFailed comments that generation failed
func (c *Client) GenerationFailed(ctx context.Context, issueKey string) {
	c.comment(ctx, issueKey, failedComment)
}

// GenerationTimedOut comments that generation hit the time limit
func (c *Client) GenerationTimedOut(ctx context.Context, issueKey string) {
	c.comment(ctx, issueKey, timeoutComment)
}

func (c *Client) comment(ctx context.Context, issueKey, body string) {
	if err := c.AddComment(ctx, issueKey, body); err != nil {
		logging.Warn("failed to add generation comment", "issue", issueKey, "error", err)
		return
	}
	logging.Debug("added generation comment", "issue", issueKey)
}

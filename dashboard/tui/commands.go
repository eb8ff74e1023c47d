package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"jurix/dashboard/client"
)

const requestTimeout = 5 * time.Second

// pollUpdates fetches updates newer than since
func pollUpdates(c *client.Client, projectKey string, since int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		updates, err := c.UpdatesSince(ctx, projectKey, since)
		return UpdatesMsg{Updates: updates, Err: err}
	}
}

// fetchSummary loads the cumulative project summary
func fetchSummary(c *client.Client, projectKey string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		summary, err := c.Summary(ctx, projectKey)
		return SummaryMsg{Summary: summary, Err: err}
	}
}

// fetchHealth loads the listener health
func fetchHealth(c *client.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		health, err := c.Health(ctx, false)
		return HealthMsg{Health: health, Err: err}
	}
}

// tickCmd schedules the next poll
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// Package tui is the terminal dashboard: it polls a project's update feed
// the way the issue panel does and lists changes as they arrive.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"jurix/config"
	"jurix/dashboard/client"
	"jurix/types"
)

// maxFeed is the number of updates kept on screen
const maxFeed = 20

// Model represents the dashboard state
type Model struct {
	Client     *client.Client
	ProjectKey string
	Interval   time.Duration

	// Since is the newest timestamp seen; the next poll asks for later updates
	Since   int64
	Feed    []types.UpdateEvent
	Summary *types.ProjectSummary
	Health  *client.Health
	Err     error

	Connected bool
	LastPoll  time.Time
}

// NewModel creates a dashboard for one project. The first poll covers the
// default update window.
func NewModel(c *client.Client, projectKey string, interval time.Duration) Model {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return Model{
		Client:     c,
		ProjectKey: projectKey,
		Interval:   interval,
		Since:      time.Now().Add(-config.DefaultUpdatesWindow).UnixMilli(),
	}
}

// Init implements tea.Model interface
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		pollUpdates(m.Client, m.ProjectKey, m.Since),
		fetchSummary(m.Client, m.ProjectKey),
		fetchHealth(m.Client),
		tickCmd(m.Interval),
	)
}

// applyUpdates prepends new updates to the feed and advances Since
func (m Model) applyUpdates(u *types.UpdatesSince) Model {
	if u == nil || !u.HasUpdates {
		return m
	}
	feed := make([]types.UpdateEvent, 0, len(u.Updates)+len(m.Feed))
	feed = append(feed, u.Updates...)
	feed = append(feed, m.Feed...)
	if len(feed) > maxFeed {
		feed = feed[:maxFeed]
	}
	m.Feed = feed
	if u.LatestTimestamp != nil && *u.LatestTimestamp > m.Since {
		m.Since = *u.LatestTimestamp
	}
	return m
}

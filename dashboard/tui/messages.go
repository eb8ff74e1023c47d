package tui

import (
	"time"

	"jurix/dashboard/client"
	"jurix/types"
)

// Messages for the tea program (polling-based)

// UpdatesMsg carries the delta fetched by one poll
type UpdatesMsg struct {
	Updates *types.UpdatesSince
	Err     error
}

// SummaryMsg carries the project summary
type SummaryMsg struct {
	Summary *types.ProjectSummary
	Err     error
}

// HealthMsg carries the listener health
type HealthMsg struct {
	Health *client.Health
	Err    error
}

// TickMsg is sent periodically to trigger polling
type TickMsg struct {
	Time time.Time
}

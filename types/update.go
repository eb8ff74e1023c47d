package types

// EventType classifies an issue lifecycle event
type EventType string

const (
	EventCreated     EventType = "created"
	EventUpdated     EventType = "updated"
	EventResolved    EventType = "resolved"
	EventClosed      EventType = "closed"
	EventReopened    EventType = "reopened"
	EventAssigned    EventType = "assigned"
	EventWorkStarted EventType = "work_started"
	EventWorkStopped EventType = "work_stopped"
	EventChanged     EventType = "changed"
)

// IsTransition reports whether the event itself moved the issue into a resolution
func (e EventType) IsTransition() bool {
	return e == EventResolved || e == EventClosed
}

// UpdateEvent is one recorded issue change. It is never mutated after creation.
type UpdateEvent struct {
	IssueKey  string    `json:"issueKey"`
	Status    string    `json:"status"`
	EventType EventType `json:"eventType"`
	Timestamp int64     `json:"timestamp"`
}

// UpdatesSince is the dashboard delta for a project
type UpdatesSince struct {
	ProjectKey      string        `json:"projectKey"`
	HasUpdates      bool          `json:"hasUpdates"`
	UpdateCount     int           `json:"updateCount"`
	LatestTimestamp *int64        `json:"latestTimestamp,omitempty"`
	Updates         []UpdateEvent `json:"updates,omitempty"`
}

// ProjectSummary is the cumulative view of a project's updates since process start
type ProjectSummary struct {
	ProjectKey    string        `json:"projectKey"`
	LastUpdate    int64         `json:"lastUpdate"`
	UpdateCount   int64         `json:"updateCount"`
	RecentUpdates []UpdateEvent `json:"recentUpdates"`
}

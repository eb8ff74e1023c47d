// Package ledger keeps the capped, per-project log of recent issue updates
// that the dashboard polls for deltas. Contents live for the process lifetime.
package ledger

import (
	"sync"

	"jurix/config"
	"jurix/logging"
	"jurix/types"
)

// Ledger holds one update log per project with thread-safe access
type Ledger struct {
	mu       sync.RWMutex
	projects map[string]*projectLog
	cap      int
}

// projectLog is newest first. updateCount and lastUpdate are cumulative and
// survive cap truncation.
type projectLog struct {
	mu          sync.Mutex
	events      []types.UpdateEvent
	updateCount int64
	lastUpdate  int64
}

// New creates a ledger retaining at most capacity events per project
func New(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = config.DefaultLedgerCap
	}
	return &Ledger{
		projects: make(map[string]*projectLog),
		cap:      capacity,
	}
}

// RecordUpdate prepends the event to the project's log and drops the oldest
// entries beyond the cap. Timestamps are strictly increasing per project: an
// event that is not newer than the head is restamped just after it, so a
// poller whose cursor already passed the head still sees it.
func (l *Ledger) RecordUpdate(projectKey string, event types.UpdateEvent) {
	p := l.project(projectKey, true)

	p.mu.Lock()
	if p.updateCount > 0 && event.Timestamp <= p.lastUpdate {
		event.Timestamp = p.lastUpdate + 1
	}
	p.events = append(p.events, types.UpdateEvent{})
	copy(p.events[1:], p.events)
	p.events[0] = event
	if len(p.events) > l.cap {
		clear(p.events[l.cap:])
		p.events = p.events[:l.cap]
	}
	p.updateCount++
	p.lastUpdate = event.Timestamp
	p.mu.Unlock()

	logging.Debug("recorded update",
		"project", projectKey, "issue", event.IssueKey, "event", event.EventType)
}

// GetUpdatesSince returns the retained events strictly newer than since
func (l *Ledger) GetUpdatesSince(projectKey string, since int64) types.UpdatesSince {
	result := types.UpdatesSince{ProjectKey: projectKey}

	p := l.project(projectKey, false)
	if p == nil {
		return result
	}

	p.mu.Lock()
	var updates []types.UpdateEvent
	for _, ev := range p.events {
		if ev.Timestamp > since {
			updates = append(updates, ev)
		}
	}
	p.mu.Unlock()

	if len(updates) == 0 {
		return result
	}

	latest := updates[0].Timestamp
	result.HasUpdates = true
	result.UpdateCount = len(updates)
	result.LatestTimestamp = &latest
	result.Updates = updates
	return result
}

// GetProjectSummary returns cumulative counters and up to the 50 newest events
func (l *Ledger) GetProjectSummary(projectKey string) types.ProjectSummary {
	summary := types.ProjectSummary{
		ProjectKey:    projectKey,
		RecentUpdates: []types.UpdateEvent{},
	}

	p := l.project(projectKey, false)
	if p == nil {
		return summary
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	n := min(len(p.events), config.SummaryRecentUpdates)
	summary.RecentUpdates = append(summary.RecentUpdates, p.events[:n]...)
	summary.UpdateCount = p.updateCount
	summary.LastUpdate = p.lastUpdate
	return summary
}

// Events returns a copy of the retained log, newest first
func (l *Ledger) Events(projectKey string) []types.UpdateEvent {
	p := l.project(projectKey, false)
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]types.UpdateEvent(nil), p.events...)
}

// Projects returns the keys of every project with at least one update
func (l *Ledger) Projects() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	keys := make([]string, 0, len(l.projects))
	for k := range l.projects {
		keys = append(keys, k)
	}
	return keys
}

func (l *Ledger) project(projectKey string, create bool) *projectLog {
	l.mu.RLock()
	p, ok := l.projects[projectKey]
	l.mu.RUnlock()
	if ok || !create {
		return p
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok = l.projects[projectKey]; ok {
		return p
	}
	p = &projectLog{events: make([]types.UpdateEvent, 0, l.cap)}
	l.projects[projectKey] = p
	return p
}

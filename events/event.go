package events

import (
	"strings"

	gojira "github.com/andygrunwald/go-jira"

	"jurix/types"
)

// Jira issue event type ids
const (
	TypeIDCreated     int64 = 1
	TypeIDUpdated     int64 = 2
	TypeIDAssigned    int64 = 3
	TypeIDResolved    int64 = 4
	TypeIDClosed      int64 = 5
	TypeIDReopened    int64 = 7
	TypeIDWorkStarted int64 = 11
	TypeIDWorkStopped int64 = 12
)

var typeByID = map[int64]types.EventType{
	TypeIDCreated:     types.EventCreated,
	TypeIDUpdated:     types.EventUpdated,
	TypeIDAssigned:    types.EventAssigned,
	TypeIDResolved:    types.EventResolved,
	TypeIDClosed:      types.EventClosed,
	TypeIDReopened:    types.EventReopened,
	TypeIDWorkStarted: types.EventWorkStarted,
	TypeIDWorkStopped: types.EventWorkStopped,
}

var typeByName = map[string]types.EventType{
	"created":      types.EventCreated,
	"updated":      types.EventUpdated,
	"assigned":     types.EventAssigned,
	"resolved":     types.EventResolved,
	"closed":       types.EventClosed,
	"reopened":     types.EventReopened,
	"work_started": types.EventWorkStarted,
	"work_stopped": types.EventWorkStopped,
}

// IssueEvent is one issue lifecycle event as delivered by the event bus or
// the Jira webhook. Either EventTypeID or one of the names identifies the type.
type IssueEvent struct {
	EventTypeID        int64         `json:"eventTypeId,omitempty"`
	WebhookEvent       string        `json:"webhookEvent,omitempty"`
	IssueEventTypeName string        `json:"issue_event_type_name,omitempty"`
	Timestamp          int64         `json:"timestamp,omitempty"`
	Issue              *gojira.Issue `json:"issue"`
}

// Type classifies the event. Unknown types map to EventChanged.
func (e *IssueEvent) Type() types.EventType {
	if e.EventTypeID != 0 {
		if t, ok := typeByID[e.EventTypeID]; ok {
			return t
		}
		return types.EventChanged
	}
	if e.IssueEventTypeName != "" {
		if t, ok := typeByName[strings.TrimPrefix(e.IssueEventTypeName, "issue_")]; ok {
			return t
		}
		return types.EventChanged
	}
	switch e.WebhookEvent {
	case "jira:issue_created":
		return types.EventCreated
	case "jira:issue_updated":
		return types.EventUpdated
	}
	return types.EventChanged
}

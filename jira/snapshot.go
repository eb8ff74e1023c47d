// Package jira reads issues from Jira REST documents and the Jira API, and
// posts article generation comments back to issues.
package jira

import (
	"strings"
	"time"

	gojira "github.com/andygrunwald/go-jira"

	"jurix/types"
)

// Snapshot extracts the fields the service needs from a Jira issue document.
// It reports false when the issue has no key or project.
func Snapshot(issue *gojira.Issue) (types.IssueSnapshot, bool) {
	if issue == nil || issue.Key == "" {
		return types.IssueSnapshot{}, false
	}

	snap := types.IssueSnapshot{Key: issue.Key}
	if f := issue.Fields; f != nil {
		snap.Summary = f.Summary
		snap.Description = f.Description
		snap.Type = f.Type.Name
		snap.ProjectKey = f.Project.Key
		if f.Status != nil {
			snap.Status = f.Status.Name
		}
		if f.Assignee != nil {
			snap.Assignee = userName(f.Assignee)
		}
		if f.Priority != nil {
			snap.Priority = f.Priority.Name
		}
		if f.Resolution != nil {
			snap.Resolution = f.Resolution.Name
		}
		snap.ResolvedAt = jiraTime(f.Resolutiondate)
		snap.CreatedAt = jiraTime(f.Created)
		snap.UpdatedAt = jiraTime(f.Updated)
	}

	if snap.ProjectKey == "" {
		snap.ProjectKey = ProjectFromKey(issue.Key)
	}
	if snap.ProjectKey == "" {
		return types.IssueSnapshot{}, false
	}
	return snap, true
}

// ProjectFromKey returns "ABC" for "ABC-123", or "" when the key has no project part
func ProjectFromKey(issueKey string) string {
	i := strings.LastIndex(issueKey, "-")
	if i <= 0 {
		return ""
	}
	return issueKey[:i]
}

func userName(u *gojira.User) string {
	switch {
	case u.Name != "":
		return u.Name
	case u.AccountID != "":
		return u.AccountID
	default:
		return u.DisplayName
	}
}

func jiraTime(t gojira.Time) time.Time {
	return time.Time(t)
}

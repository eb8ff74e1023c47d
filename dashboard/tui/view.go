package tui

import (
	"fmt"
	"strings"
	"time"
)

// View implements tea.Model interface
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("jurix · " + m.ProjectKey))
	b.WriteString("\n")

	if !m.Connected {
		msg := TextDisconnected
		if m.Err != nil {
			msg += ": " + m.Err.Error()
		}
		b.WriteString(ErrorStyle.Render(msg))
		b.WriteString("\n\n")
	}

	if m.Health != nil {
		status := StatusStyle
		if m.Health.Tracker == "memory" {
			status = WarningStyle
		}
		b.WriteString(status.Render(fmt.Sprintf("listener %s | tracker %s | pending %d",
			m.Health.Status, m.Health.Tracker, m.Health.PendingTasks)))
		b.WriteString("\n")
	}

	if m.Summary != nil {
		last := "never"
		if m.Summary.LastUpdate > 0 {
			last = time.UnixMilli(m.Summary.LastUpdate).Format(time.Kitchen)
		}
		b.WriteString(InfoStyle.Render(fmt.Sprintf("%d updates since listener start, last at %s",
			m.Summary.UpdateCount, last)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(BoxStyle.Render(m.formatFeed()))
	b.WriteString("\n\n")
	b.WriteString(InfoStyle.Render(TextFooter))
	return b.String()
}

// formatFeed renders the update feed, newest first
func (m Model) formatFeed() string {
	if len(m.Feed) == 0 {
		return InfoStyle.Render(TextNoUpdates)
	}

	var b strings.Builder
	b.WriteString(HighlightStyle.Render("Recent updates"))
	b.WriteString("\n\n")
	for _, u := range m.Feed {
		ts := time.UnixMilli(u.Timestamp).Format("15:04:05")
		line := fmt.Sprintf("%s  %-10s %-12s %s", ts, u.IssueKey, string(u.EventType), u.Status)
		b.WriteString(EventStyle(string(u.EventType)).Render(line))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model interface
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case TickMsg:
		m.LastPoll = msg.Time
		return m, tea.Batch(pollUpdates(m.Client, m.ProjectKey, m.Since), tickCmd(m.Interval))
	case UpdatesMsg:
		return m.handleUpdates(msg)
	case SummaryMsg:
		if msg.Err == nil {
			m.Summary = msg.Summary
		}
		return m, nil
	case HealthMsg:
		if msg.Err == nil {
			m.Health = msg.Health
		}
		return m, nil
	}
	return m, nil
}

// handleKeyPress processes keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "r", "R":
		return m, tea.Batch(fetchSummary(m.Client, m.ProjectKey), fetchHealth(m.Client))
	}
	return m, nil
}

// handleUpdates applies one poll result. New updates also refresh the summary.
func (m Model) handleUpdates(msg UpdatesMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.Connected = false
		m.Err = msg.Err
		return m, nil
	}
	m.Connected = true
	m.Err = nil

	if msg.Updates == nil || !msg.Updates.HasUpdates {
		return m, nil
	}
	m = m.applyUpdates(msg.Updates)
	return m, fetchSummary(m.Client, m.ProjectKey)
}

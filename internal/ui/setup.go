package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shleen/threadline/internal/validate"
)

// handleSetupKey drives the first-run username prompt.
func (m Model) handleSetupKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Select):
		name := strings.TrimSpace(m.setup.Value())
		if err := validate.Username(name); err != nil {
			m.setupErr = err.Error()
			return m, nil
		}
		return m.completeSetup(name)
	}
	var cmd tea.Cmd
	m.setup, cmd = m.setup.Update(msg)
	m.setupErr = ""
	return m, cmd
}

// completeSetup switches every component to the new user and starts the
// first fetch.
func (m Model) completeSetup(name string) (tea.Model, tea.Cmd) {
	m.username = name
	m.setupErr = ""
	m.setup.Blur()
	if m.session != nil {
		m.session.SetUsername(name)
	}
	if m.refresher != nil {
		m.refresher.SetUsername(name)
	}
	m.history = historyState{viewport: m.history.viewport}
	m.logger.Info("username configured", "user", name)
	return m, tea.Batch(m.savePrefsCmd(), m.fetchOutfitsCmd())
}

func (m Model) renderSetup() string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(styles.Logo.Render("threadline"))
	b.WriteString("\n\n")
	b.WriteString(styles.Text.Render("Welcome! Who's getting dressed today?"))
	b.WriteString("\n\n")
	b.WriteString(m.setup.View())
	b.WriteString("\n\n")
	if m.setupErr != "" {
		b.WriteString(styles.DangerText.Render(m.setupErr))
	} else {
		b.WriteString(styles.FaintText.Render("Letters and digits, at least 3 characters."))
	}
	b.WriteString("\n\n")
	b.WriteString(styles.MutedText.Render("enter continue  esc quit"))

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.BorderFocus)).
		Padding(1, 3).
		Width(50)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, panel.Render(b.String()))
}

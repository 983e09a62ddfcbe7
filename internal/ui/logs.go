package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shleen/threadline/internal/logtail"
)

type logState struct {
	entries  []logtail.Entry
	follow   bool
	err      error
	viewport viewport.Model
}

func (m Model) readLogsCmd() tea.Cmd {
	path := m.logPath
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		lines, err := logtail.Read(path, LogLineLimit)
		return logLinesMsg{lines: lines, err: err}
	}
}

func (m *Model) handleLogLines(msg logLinesMsg) {
	if msg.err != nil {
		m.logs.err = msg.err
	} else {
		m.logs.err = nil
		m.logs.entries = logtail.ParseLines(msg.lines)
	}
	m.updateLogViewport()
}

func (m *Model) updateLogViewport() {
	if !m.ready {
		return
	}
	m.logs.viewport.SetContent(m.renderLogContent())
	if m.logs.follow {
		m.logs.viewport.GotoBottom()
	}
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logs.follow = !m.logs.follow
		if m.logs.follow {
			m.logs.viewport.GotoBottom()
		}
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, m.readLogsCmd()
	}
	var cmd tea.Cmd
	m.logs.viewport, cmd = m.logs.viewport.Update(msg)
	if !m.logs.viewport.AtBottom() {
		m.logs.follow = false
	}
	return m, cmd
}

func (m Model) renderLogContent() string {
	styles := m.theme.Styles()
	if m.logs.err != nil {
		return styles.DangerText.Render("Could not read log: " + m.logs.err.Error())
	}
	if len(m.logs.entries) == 0 {
		return styles.MutedText.Render("No log entries yet in " + truncateMiddle(m.logPath, 60))
	}
	lines := make([]string, 0, len(m.logs.entries))
	for _, e := range m.logs.entries {
		lines = append(lines, m.colorizeEntry(e))
	}
	return strings.Join(lines, "\n")
}

// colorizeEntry renders a log entry with the level highlighted.
func (m Model) colorizeEntry(e logtail.Entry) string {
	styles := m.theme.Styles()
	if !e.Structured() {
		return styles.MutedText.Render(e.Raw)
	}
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(styles.FaintText.Render(e.Time.Local().Format("15:04:05")))
		b.WriteString(" ")
	}
	b.WriteString(m.levelStyle(e.Level).Render(padRight(e.Level, 5)))
	b.WriteString(" ")
	b.WriteString(styles.Text.Render(e.Msg))
	for _, a := range e.Attrs {
		b.WriteString(" ")
		b.WriteString(styles.InfoText.Render(a.Key + "="))
		b.WriteString(styles.MutedText.Render(a.Value))
	}
	return b.String()
}

func (m Model) levelStyle(level string) lipgloss.Style {
	styles := m.theme.Styles()
	switch strings.ToUpper(level) {
	case "ERROR":
		return styles.DangerText
	case "WARN", "WARNING":
		return styles.WarningText.Bold(true)
	case "DEBUG":
		return styles.FaintText
	default:
		return styles.SuccessText
	}
}

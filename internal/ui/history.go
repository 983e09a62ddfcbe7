package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/shleen/threadline/internal/wardrobe"
)

type historyState struct {
	items    []wardrobe.HistoryOutfit
	loaded   bool
	loading  bool
	err      error
	viewport viewport.Model
}

func (m Model) fetchHistoryCmd() tea.Cmd {
	if m.backend == nil {
		return nil
	}
	backend, ctx, user := m.backend, m.ctx, m.username
	return func() tea.Msg {
		items, err := backend.FetchHistory(ctx, user)
		return historyMsg{items: items, err: err}
	}
}

func (m *Model) handleHistory(msg historyMsg) {
	m.history.loading = false
	if msg.err != nil {
		m.history.err = msg.err
		m.logger.Warn("history fetch failed", "error", msg.err)
	} else {
		m.history.err = nil
		m.history.items = msg.items
		m.history.loaded = true
	}
	if m.ready {
		m.history.viewport.SetContent(m.renderHistoryContent())
		m.history.viewport.GotoTop()
	}
}

func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Refresh) {
		if m.history.loading {
			return m, nil
		}
		m.history.loading = true
		m.history.viewport.SetContent(m.renderHistoryContent())
		return m, m.fetchHistoryCmd()
	}
	var cmd tea.Cmd
	m.history.viewport, cmd = m.history.viewport.Update(msg)
	return m, cmd
}

func (m Model) renderHistoryContent() string {
	styles := m.theme.Styles()
	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render("Outfit history"))
	b.WriteString("\n\n")

	switch {
	case m.history.loading && len(m.history.items) == 0:
		b.WriteString(styles.MutedText.Render("Loading history..."))
		return b.String()
	case m.history.err != nil && len(m.history.items) == 0:
		b.WriteString(styles.DangerText.Render("Could not load history: " + describeError(m.history.err)))
		b.WriteString("\n\n" + styles.MutedText.Render("Press r to retry."))
		return b.String()
	case m.history.loaded && len(m.history.items) == 0:
		b.WriteString(styles.MutedText.Render("No outfits logged yet. Wear one from the Outfit view."))
		return b.String()
	}

	for _, h := range m.history.items {
		when := h.Timestamp
		if t := h.ParsedTimestamp(); !t.IsZero() {
			when = t.Local().Format("Mon Jan 2, 15:04")
		}
		b.WriteString(styles.Text.Bold(true).Render(when))
		b.WriteString(styles.FaintText.Render(fmt.Sprintf("  outfit #%d", h.ID)))
		b.WriteString("\n")
		for _, item := range h.Outfit.Items() {
			fmt.Fprintf(&b, "  %s #%-5d %s\n",
				styles.Chip(padRight(item.Category.Singular(), 9), m.theme.CategoryColor(item.Category)),
				item.ID,
				styles.FaintText.Render(truncateMiddle(item.ImageURL(m.mediaURL), 48)),
			)
		}
		b.WriteString("\n")
	}
	return b.String()
}

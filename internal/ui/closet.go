package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/shleen/threadline/internal/wardrobe"
)

type closetState struct {
	filter   int // 0 = all, otherwise wardrobe.Categories[filter-1]
	cursor   int
	selected map[int64]bool
	logging  bool
}

func (c closetState) category() wardrobe.Category {
	if c.filter <= 0 || c.filter > len(wardrobe.Categories) {
		return ""
	}
	return wardrobe.Categories[c.filter-1]
}

func (m Model) closetItems() []wardrobe.Clothing {
	if cat := m.closet.category(); cat != "" {
		return m.snapshot.ClosetByCategory(cat)
	}
	return m.snapshot.Closet
}

func (m Model) handleClosetKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.closetItems())
	switch {
	case key.Matches(msg, m.keys.CycleCategory):
		m.closet.filter = (m.closet.filter + 1) % (len(wardrobe.Categories) + 1)
		m.closet.cursor = 0
	case key.Matches(msg, m.keys.Up):
		if m.closet.cursor > 0 {
			m.closet.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.closet.cursor < n-1 {
			m.closet.cursor++
		}
	case key.Matches(msg, m.keys.Top):
		m.closet.cursor = 0
	case key.Matches(msg, m.keys.Bottom):
		m.closet.cursor = max(n-1, 0)
	case key.Matches(msg, m.keys.Refresh):
		if m.refresher != nil {
			m.refresher.Trigger()
			m.setStatus("Refreshing closet...", false)
		}
	case key.Matches(msg, m.keys.ToggleSelect):
		items := m.closetItems()
		if len(items) == 0 {
			return m, nil
		}
		id := items[clamp(m.closet.cursor, len(items))].ID
		selected := make(map[int64]bool, len(m.closet.selected)+1)
		for k := range m.closet.selected {
			selected[k] = true
		}
		if selected[id] {
			delete(selected, id)
		} else {
			selected[id] = true
		}
		m.closet.selected = selected
	case key.Matches(msg, m.keys.LogOutfit):
		ids := m.selectedClosetIDs()
		if len(ids) == 0 {
			m.setStatus("Select items with space first", true)
			return m, nil
		}
		if m.closet.logging || m.backend == nil {
			return m, nil
		}
		m.closet.logging = true
		m.setStatus(fmt.Sprintf("Logging %d item%s...", len(ids), plural(len(ids))), false)
		return m, m.logOutfitCmd(ids)
	}
	return m, nil
}

// selectedClosetIDs returns the selected ids in closet order, skipping
// items that have since left the closet.
func (m Model) selectedClosetIDs() []int64 {
	var ids []int64
	for _, c := range m.snapshot.Closet {
		if m.closet.selected[c.ID] {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

func (m Model) logOutfitCmd(ids []int64) tea.Cmd {
	backend, ctx, username := m.backend, m.ctx, m.username
	return func() tea.Msg {
		return logOutfitDoneMsg{ids: ids, err: backend.LogOutfit(ctx, username, ids)}
	}
}

// handleLogOutfitDone clears the selection on success and marks wear
// history and counts stale.
func (m Model) handleLogOutfitDone(msg logOutfitDoneMsg) (tea.Model, tea.Cmd) {
	m.closet.logging = false
	if msg.err != nil {
		m.setStatus("Log outfit failed: "+describeError(msg.err), true)
		return m, nil
	}
	m.closet.selected = nil
	m.history.loaded = false
	m.setStatus(fmt.Sprintf("Logged an outfit of %d item%s", len(msg.ids), plural(len(msg.ids))), false)
	if m.refresher != nil {
		m.refresher.Trigger()
	}
	return m, nil
}

func (m Model) renderCloset() string {
	styles := m.theme.Styles()
	items := m.closetItems()

	var b strings.Builder
	label := "All"
	if cat := m.closet.category(); cat != "" {
		label = cat.Label()
	}
	b.WriteString(styles.AccentText.Bold(true).Render(fmt.Sprintf("Closet: %s", label)))
	b.WriteString(styles.MutedText.Render(fmt.Sprintf("  %d items", len(items))))
	if n := len(m.closet.selected); n > 0 {
		b.WriteString(styles.AccentText.Render(fmt.Sprintf("  %d selected", n)))
	}
	b.WriteString("\n\n")

	if len(items) == 0 {
		switch {
		case m.snapshot.LastUpdated.IsZero() && m.snapshot.LastError == nil:
			b.WriteString(m.spinner.View() + " " + styles.MutedText.Render("Loading your closet..."))
		case m.snapshot.LastError != nil && len(m.snapshot.Closet) == 0:
			b.WriteString(styles.DangerText.Render("Could not load closet: " + describeError(m.snapshot.LastError)))
			b.WriteString("\n\n" + styles.MutedText.Render("Press r to retry."))
		default:
			b.WriteString(styles.MutedText.Render("Nothing here yet. Add clothes with `threadline add`."))
		}
		return b.String()
	}

	rows := max(m.contentHeight()-2, 1)
	start, end := window(m.closet.cursor, len(items), rows)
	for i := start; i < end; i++ {
		mark := "[ ] "
		if m.closet.selected[items[i].ID] {
			mark = styles.SuccessText.Render("[x] ")
		}
		line := mark + closetLine(styles, m.theme, items[i])
		if i == m.closet.cursor {
			b.WriteString(styles.Selected.Render("> ") + line)
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// closetLine renders one garment as a single row.
func closetLine(styles Styles, theme Theme, c wardrobe.Clothing) string {
	parts := []string{
		styles.Chip(padRight(c.Category.Singular(), 9), theme.CategoryColor(c.Category)),
		fmt.Sprintf("#%-5d", c.ID),
	}
	desc := strings.TrimSpace(titleCase(c.Subtype) + " " + titleCase(c.Fit))
	if desc != "" {
		parts = append(parts, styles.Text.Render(desc))
	}
	if c.Occasion != "" {
		parts = append(parts, styles.MutedText.Render(titleCase(c.Occasion)))
	}
	var flags []string
	if c.Winter {
		flags = append(flags, "winter")
	}
	if c.Layerable {
		flags = append(flags, "layerable")
	}
	for _, t := range c.Tags {
		if t.Label != "" {
			flags = append(flags, t.Label)
		}
	}
	if len(flags) > 0 {
		parts = append(parts, styles.FaintText.Render(strings.Join(flags, ", ")))
	}
	return strings.Join(parts, "  ")
}

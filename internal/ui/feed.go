package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/shleen/threadline/internal/wardrobe"
)

type feedState struct {
	cursor int
}

func (m Model) loadFeedCmd(first bool) tea.Cmd {
	if m.pager == nil {
		return nil
	}
	pager, ctx := m.pager, m.ctx
	return func() tea.Msg {
		if first {
			return feedDoneMsg{err: pager.LoadFirst(ctx)}
		}
		return feedDoneMsg{err: pager.LoadMore(ctx)}
	}
}

func (m Model) handleFeedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.pager == nil {
		return m, nil
	}
	st := m.pager.State()
	n := len(st.Items)
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.feed.cursor > 0 {
			m.feed.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.feed.cursor < n-1 {
			m.feed.cursor++
			return m, nil
		}
		// At the last item: pull the next page.
		if st.HasMore && !st.Loading {
			return m, m.loadFeedCmd(false)
		}
	case key.Matches(msg, m.keys.Top):
		m.feed.cursor = 0
	case key.Matches(msg, m.keys.Bottom):
		m.feed.cursor = max(n-1, 0)
	case key.Matches(msg, m.keys.LoadMore):
		if st.HasMore && !st.Loading {
			return m, m.loadFeedCmd(false)
		}
	case key.Matches(msg, m.keys.Refresh):
		m.pager.Reset()
		m.feed.cursor = 0
		return m, m.loadFeedCmd(true)
	}
	return m, nil
}

func (m Model) renderFeed() string {
	styles := m.theme.Styles()
	if m.pager == nil {
		return styles.MutedText.Render("The feed is unavailable.")
	}
	st := m.pager.State()

	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render("Feed"))
	b.WriteString(styles.MutedText.Render("  what everyone is wearing"))
	b.WriteString("\n\n")

	if len(st.Items) == 0 {
		switch {
		case st.Loading || !st.Loaded && st.Err == nil:
			b.WriteString(m.spinner.View() + " " + styles.MutedText.Render("Loading feed..."))
		case st.Err != nil:
			b.WriteString(styles.DangerText.Render("Could not load feed: " + describeError(st.Err)))
			b.WriteString("\n\n" + styles.MutedText.Render("Press r to retry."))
		default:
			b.WriteString(styles.MutedText.Render("No outfits have been shared yet."))
		}
		return b.String()
	}

	rows := max(m.contentHeight()-4, 1)
	cursor := clamp(m.feed.cursor, len(st.Items))
	start, end := window(cursor, len(st.Items), rows)
	for i := start; i < end; i++ {
		line := m.feedLine(st.Items[i])
		if i == cursor {
			b.WriteString(styles.Selected.Render("> ") + line)
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case st.Loading:
		b.WriteString(m.spinner.View() + " " + styles.MutedText.Render("Loading more..."))
	case st.Err != nil:
		b.WriteString(styles.DangerText.Render("Load failed: "+describeError(st.Err)) + styles.MutedText.Render("  m to retry"))
	case st.HasMore:
		b.WriteString(styles.FaintText.Render(fmt.Sprintf("%d loaded, m for more", len(st.Items))))
	default:
		b.WriteString(styles.FaintText.Render("You're all caught up."))
	}
	return b.String()
}

func (m Model) feedLine(item wardrobe.FeedItem) string {
	styles := m.theme.Styles()
	when := "recently"
	if t := item.ParsedDateWorn(); !t.IsZero() {
		when = t.Local().Format("Jan 2")
	}
	chips := make([]string, 0, len(item.ClothingItems))
	for _, c := range item.ClothingItems {
		chips = append(chips, styles.Chip(c.Category.Singular(), m.theme.CategoryColor(c.Category)))
	}
	return fmt.Sprintf("%s  %s  %s",
		styles.AccentText.Render(padRight("@"+item.Username, 16)),
		styles.MutedText.Render(padRight(when, 7)),
		strings.Join(chips, " "),
	)
}

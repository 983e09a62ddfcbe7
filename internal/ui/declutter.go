package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/shleen/threadline/internal/wardrobe"
)

type declutterState struct {
	cursor  int
	posting bool
}

func (m Model) handleDeclutterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.snapshot.Declutter
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.declutter.cursor > 0 {
			m.declutter.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.declutter.cursor < len(items)-1 {
			m.declutter.cursor++
		}
	case key.Matches(msg, m.keys.Refresh):
		if m.refresher != nil {
			m.refresher.Trigger()
			m.setStatus("Refreshing suggestions...", false)
		}
	case key.Matches(msg, m.keys.Remove):
		if len(items) == 0 || m.declutter.posting {
			return m, nil
		}
		item := items[clamp(m.declutter.cursor, len(items))]
		m.declutter.posting = true
		return m, m.postDeclutterCmd([]int64{item.ID})
	case key.Matches(msg, m.keys.RemoveAll):
		if len(items) == 0 || m.declutter.posting {
			return m, nil
		}
		ids := make([]int64, len(items))
		for i, item := range items {
			ids[i] = item.ID
		}
		m.declutter.posting = true
		return m, m.postDeclutterCmd(ids)
	}
	return m, nil
}

func (m Model) postDeclutterCmd(ids []int64) tea.Cmd {
	backend, ctx := m.backend, m.ctx
	return func() tea.Msg {
		return declutterDoneMsg{ids: ids, err: backend.PostDeclutter(ctx, ids)}
	}
}

// handleDeclutterDone applies a successful removal locally and asks for
// fresh suggestions once the list is empty.
func (m Model) handleDeclutterDone(msg declutterDoneMsg) (tea.Model, tea.Cmd) {
	m.declutter.posting = false
	if msg.err != nil {
		m.setStatus("Declutter failed: "+describeError(msg.err), true)
		return m, nil
	}
	remaining := len(m.snapshot.Declutter)
	if m.store != nil {
		remaining = m.store.RemoveDeclutter(msg.ids...)
	}
	m.setStatus(fmt.Sprintf("Removed %d item%s from your closet", len(msg.ids), plural(len(msg.ids))), false)
	if remaining == 0 && m.refresher != nil {
		m.refresher.Trigger()
	}
	if m.store != nil {
		return m, fetchSnapshotCmd(m.store)
	}
	return m, nil
}

func (m Model) renderDeclutter() string {
	styles := m.theme.Styles()
	items := m.snapshot.Declutter

	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render("Declutter"))
	b.WriteString(styles.MutedText.Render("  items you rarely wear"))
	b.WriteString("\n\n")

	if len(items) == 0 {
		if m.snapshot.LastError != nil {
			b.WriteString(styles.DangerText.Render("Could not load suggestions: " + describeError(m.snapshot.LastError)))
			b.WriteString("\n\n" + styles.MutedText.Render("Press r to retry."))
		} else {
			b.WriteString(styles.SuccessText.Render("Nothing to declutter. Your closet is in good shape."))
		}
		return b.String()
	}

	rows := max(m.contentHeight()-2, 1)
	start, end := window(m.declutter.cursor, len(items), rows)
	for i := start; i < end; i++ {
		item := items[i]
		last := "never"
		if t := item.LastWorn(); !t.IsZero() {
			last = t.Local().Format("Jan 2, 2006")
		}
		line := fmt.Sprintf("#%-5d %-16s %s  %s",
			item.ID,
			item.WearText(),
			styles.MutedText.Render("last worn "+last),
			styles.FaintText.Render(truncateMiddle(wardrobe.JoinMediaURL(m.mediaURL, item.ImgFilename), 48)),
		)
		if i == m.declutter.cursor {
			b.WriteString(styles.Selected.Render("> ") + line)
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	if m.declutter.posting {
		b.WriteString("\n" + m.spinner.View() + " " + styles.MutedText.Render("Removing..."))
	}
	return b.String()
}

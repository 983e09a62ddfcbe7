package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/shleen/threadline/internal/recommend"
	"github.com/shleen/threadline/internal/wardrobe"
)

type pickerMode int

const (
	pickSwap pickerMode = iota
	pickAdd
)

// pickerState is the closet chooser opened by swap and add.
type pickerState struct {
	mode   pickerMode
	target wardrobe.Category
	oldID  int64
	items  []wardrobe.Clothing
	cursor int
}

type outfitState struct {
	cursor int // selected item within the current outfit
	picker *pickerState
}

func (m Model) handleOutfitKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.session == nil {
		return m, nil
	}
	snap := m.session.Snapshot()

	if key.Matches(msg, m.keys.Refresh) {
		m.status = ""
		if m.location != nil {
			m.location.Invalidate()
		}
		return m, m.fetchOutfitsCmd()
	}

	if !snap.HasCurrent {
		return m, nil
	}
	items := snap.Current.Items()

	switch {
	case key.Matches(msg, m.keys.NextOutfit):
		m.session.Next()
		m.outfit.cursor = 0
		m.status = ""
	case key.Matches(msg, m.keys.PrevOutfit):
		m.session.Prev()
		m.outfit.cursor = 0
		m.status = ""
	case key.Matches(msg, m.keys.Up):
		if m.outfit.cursor > 0 {
			m.outfit.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.outfit.cursor < len(items)-1 {
			m.outfit.cursor++
		}
	case key.Matches(msg, m.keys.Confirm):
		if snap.Confirm == recommend.ConfirmPending {
			return m, nil
		}
		m.setStatus("Saving outfit...", false)
		return m, m.confirmCmd()
	case key.Matches(msg, m.keys.Swap):
		if len(items) == 0 {
			return m, nil
		}
		m.openSwapPicker(snap.Current, items[clamp(m.outfit.cursor, len(items))])
	case key.Matches(msg, m.keys.Add):
		m.openAddPicker(snap.Current)
	case key.Matches(msg, m.keys.Remove):
		if len(items) == 0 {
			return m, nil
		}
		target := items[clamp(m.outfit.cursor, len(items))]
		if _, err := m.session.Remove(target.ID); err != nil {
			m.setStatus("Remove failed: "+describeError(err), true)
			return m, nil
		}
		m.outfit.cursor = clamp(m.outfit.cursor, len(items)-1)
		m.setStatus(fmt.Sprintf("Removed %s #%d", strings.ToLower(target.Category.Singular()), target.ID), false)
	}
	return m, nil
}

// closetCandidates returns closet items not already in o, optionally
// limited to one category.
func (m Model) closetCandidates(o wardrobe.Outfit, only wardrobe.Category) []wardrobe.Clothing {
	inOutfit := make(map[int64]struct{}, o.Len())
	for _, id := range o.IDs() {
		inOutfit[id] = struct{}{}
	}
	var out []wardrobe.Clothing
	for _, c := range m.snapshot.Closet {
		if only != "" && c.Category != only {
			continue
		}
		if _, taken := inOutfit[c.ID]; taken {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (m *Model) openSwapPicker(o wardrobe.Outfit, item wardrobe.ClothingItem) {
	candidates := m.closetCandidates(o, item.Category)
	if len(candidates) == 0 {
		m.setStatus(fmt.Sprintf("No other %s in your closet", strings.ToLower(item.Category.Label())), true)
		return
	}
	m.outfit.picker = &pickerState{mode: pickSwap, target: item.Category, oldID: item.ID, items: candidates}
}

func (m *Model) openAddPicker(o wardrobe.Outfit) {
	candidates := m.closetCandidates(o, "")
	if len(candidates) == 0 {
		m.setStatus("Nothing left in your closet to add", true)
		return
	}
	m.outfit.picker = &pickerState{mode: pickAdd, items: candidates}
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := *m.outfit.picker
	switch {
	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Quit):
		m.outfit.picker = nil
		return m, nil
	case key.Matches(msg, m.keys.Up):
		if p.cursor > 0 {
			p.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if p.cursor < len(p.items)-1 {
			p.cursor++
		}
	case key.Matches(msg, m.keys.Top):
		p.cursor = 0
	case key.Matches(msg, m.keys.Bottom):
		p.cursor = len(p.items) - 1
	case key.Matches(msg, m.keys.Select):
		m.outfit.picker = nil
		m.applyPick(p)
		return m, nil
	}
	m.outfit.picker = &p
	return m, nil
}

func (m *Model) applyPick(p pickerState) {
	if len(p.items) == 0 {
		return
	}
	choice := p.items[clamp(p.cursor, len(p.items))].Item()
	switch p.mode {
	case pickSwap:
		found, err := m.session.Swap(p.target, p.oldID, choice)
		switch {
		case err != nil:
			m.setStatus("Swap rejected: "+describeError(err), true)
		case !found:
			m.setStatus(fmt.Sprintf("Item #%d is no longer in this outfit", p.oldID), true)
		default:
			m.setStatus(fmt.Sprintf("Swapped in #%d", choice.ID), false)
		}
	case pickAdd:
		if err := m.session.Add(choice); err != nil {
			m.setStatus("Add rejected: "+describeError(err), true)
			return
		}
		m.setStatus(fmt.Sprintf("Added %s #%d", strings.ToLower(choice.Category.Singular()), choice.ID), false)
	}
}

func (m Model) confirmCmd() tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		return confirmDoneMsg{err: session.Confirm(ctx)}
	}
}

func (m Model) handleConfirmDone(msg confirmDoneMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.err == nil:
		m.setStatus("Outfit logged. Enjoy your day!", false)
		if m.refresher != nil {
			m.refresher.Trigger()
		}
		m.history.loaded = false
	case errors.Is(msg.err, recommend.ErrStale), errors.Is(msg.err, context.Canceled):
		m.status = ""
	case errors.Is(msg.err, recommend.ErrConfirmInFlight):
	default:
		m.setStatus("Could not log outfit: "+describeError(msg.err)+" (c to retry)", true)
	}
	return m, nil
}

func (m Model) renderOutfit() string {
	styles := m.theme.Styles()
	if m.session == nil {
		return styles.MutedText.Render("Recommendations are unavailable.")
	}
	snap := m.session.Snapshot()

	switch snap.Phase {
	case recommend.PhaseLoading:
		if !snap.HasCurrent {
			return m.spinner.View() + " " + styles.MutedText.Render("Finding outfits for today's weather...")
		}
	case recommend.PhaseEmpty:
		return styles.WarningText.Render("No outfits to recommend today.") + "\n\n" +
			styles.MutedText.Render("Add more clothes to your closet, then press r to try again.")
	case recommend.PhaseError:
		if !snap.HasCurrent {
			return m.renderFetchError(snap.Err)
		}
	case recommend.PhaseIdle:
		if !snap.HasCurrent {
			return styles.MutedText.Render("Press r to get outfit recommendations.")
		}
	}

	if m.outfit.picker != nil {
		return m.renderPicker(*m.outfit.picker)
	}

	var b strings.Builder
	title := fmt.Sprintf("Outfit %d of %d", snap.Index+1, snap.Collection.Len())
	b.WriteString(styles.AccentText.Bold(true).Render(title))
	b.WriteString("  ")
	b.WriteString(m.renderConfirmBadge(snap))
	if snap.Phase == recommend.PhaseLoading {
		b.WriteString("  " + m.spinner.View())
	}
	b.WriteString("\n\n")

	items := snap.Current.Items()
	if len(items) == 0 {
		b.WriteString(styles.MutedText.Render("This outfit is empty. Press a to add an item."))
	}
	cursor := clamp(m.outfit.cursor, len(items))
	for i, item := range items {
		line := fmt.Sprintf("%s  #%-5d %s",
			styles.Chip(padRight(item.Category.Singular(), 9), m.theme.CategoryColor(item.Category)),
			item.ID,
			truncateMiddle(item.ImageURL(m.mediaURL), m.contentWidth()-22),
		)
		if i == cursor {
			line = styles.Selected.Render("> ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if snap.Phase == recommend.PhaseError && snap.Err != nil {
		b.WriteString("\n")
		b.WriteString(styles.DangerText.Render("Refresh failed: " + describeError(snap.Err)))
	}
	return b.String()
}

func (m Model) renderConfirmBadge(snap recommend.Snapshot) string {
	styles := m.theme.Styles()
	switch snap.Confirm {
	case recommend.ConfirmPending:
		return styles.Chip("saving", m.theme.Info)
	case recommend.ConfirmConfirmed:
		return styles.Chip("worn today", m.theme.Success)
	case recommend.ConfirmFailed:
		return styles.Chip("not saved", m.theme.Danger)
	default:
		return ""
	}
}

func (m Model) renderFetchError(err error) string {
	styles := m.theme.Styles()
	var b strings.Builder
	b.WriteString(styles.DangerText.Render("Could not load recommendations"))
	b.WriteString("\n\n")
	b.WriteString(styles.Text.Render(describeError(err)))
	b.WriteString("\n\n")
	if wardrobe.KindOf(err) == wardrobe.KindLocationUnavailable {
		b.WriteString(styles.MutedText.Render("Set latitude and longitude in the config file or THREADLINE_LAT/THREADLINE_LON."))
		b.WriteString("\n")
	}
	b.WriteString(styles.MutedText.Render("Press r to retry."))
	return b.String()
}

func (m Model) renderPicker(p pickerState) string {
	styles := m.theme.Styles()
	var b strings.Builder
	title := "Add an item"
	if p.mode == pickSwap {
		title = fmt.Sprintf("Swap %s #%d for", strings.ToLower(p.target.Singular()), p.oldID)
	}
	b.WriteString(styles.AccentText.Bold(true).Render(title))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("enter select  esc cancel"))
	b.WriteString("\n\n")

	rows := max(m.contentHeight()-4, 1)
	start, end := window(p.cursor, len(p.items), rows)
	for i := start; i < end; i++ {
		line := closetLine(styles, m.theme, p.items[i])
		if i == p.cursor {
			b.WriteString(styles.Selected.Render("> ") + line)
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

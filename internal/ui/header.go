package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shleen/threadline/internal/recommend"
	"github.com/shleen/threadline/internal/wardrobe"
)

// renderHeader renders the status bar: logo, user, closet size, sync
// state and the last refresh error.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth

	parts := []string{
		bg.Render("threadline", styles.Logo),
		bg.Render("@"+m.username, styles.AccentText),
	}

	if m.snapshot.LastUpdated.IsZero() && m.snapshot.LastError == nil {
		parts = append(parts, bg.Render("Syncing...", styles.WarningText))
	} else {
		parts = append(parts,
			bg.Render("Closet:", styles.MutedText)+bg.Space()+
				bg.Render(fmt.Sprintf("%d", len(m.snapshot.Closet)), styles.Text))
		if n := len(m.snapshot.Declutter); n > 0 {
			parts = append(parts,
				bg.Render("Declutter:", styles.MutedText)+bg.Space()+
					bg.Render(fmt.Sprintf("%d", n), styles.WarningText))
		}
	}

	if m.snapshot.IsOffline() {
		parts = append(parts, bg.Render("● "+classifyConnectionError(m.snapshot.LastError), styles.DangerText))
	} else if !m.snapshot.LastUpdated.IsZero() {
		parts = append(parts, bg.Render("● ONLINE", styles.SuccessText))
	}

	if ts := m.formatTimestamp(); ts != "" {
		parts = append(parts, bg.Render(ts, styles.MutedText))
	}

	if err := m.snapshot.LastError; err != nil {
		limit := 60
		if compact {
			limit = 30
		}
		parts = append(parts, bg.Render(truncate(describeError(err), limit), styles.DangerText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

// formatTimestamp renders the last successful refresh with a relative age.
func (m Model) formatTimestamp() string {
	if m.snapshot.LastUpdated.IsZero() {
		return ""
	}
	age := time.Since(m.snapshot.LastUpdated)
	return m.snapshot.LastUpdated.Format("15:04:05") + " (" + humanizeDuration(age) + ")"
}

// classifyConnectionError returns a short label for a refresh failure.
func classifyConnectionError(err error) string {
	if err == nil {
		return "OFFLINE"
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "OFFLINE"
	case strings.Contains(msg, "no such host"):
		return "HOST NOT FOUND"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "TIMEOUT"
	case strings.Contains(msg, "circuit breaker"):
		return "PAUSED"
	default:
		return "ERROR"
	}
}

func (m Model) renderTabs() string {
	styles := m.theme.Styles()
	tabs := make([]string, 0, len(viewOrder))
	for i, v := range viewOrder {
		label := fmt.Sprintf("%d %s", i+1, v)
		if v == m.currentView {
			tabs = append(tabs, styles.TabActive.Render(label))
		} else {
			tabs = append(tabs, styles.TabInactive.Render(label))
		}
	}
	return strings.Join(tabs, "")
}

// renderFooter shows the last status message, or the view's key hints.
func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)

	if m.status != "" {
		style := styles.SuccessText
		if m.statusErr {
			style = styles.DangerText
		}
		return styles.Footer.Width(m.width).Render(bg.Render(m.status, style))
	}

	bindings := append(m.keys.viewHints(m.currentView), m.keys.ShortHelp()...)
	segments := make([]string, 0, len(bindings)+1)
	for _, b := range bindings {
		h := b.Help()
		segments = append(segments, bg.Render(h.Key, styles.AccentText)+bg.Render(":", styles.FaintText)+bg.Render(h.Desc, styles.MutedText))
	}
	segments = append(segments, bg.Render("T", styles.AccentText)+bg.Render(":", styles.FaintText)+bg.Render(m.theme.Name, styles.FaintText))
	return styles.Footer.Width(m.width).Render(bg.Join(segments, "  "))
}

// describeError turns domain errors into short user-facing text.
func describeError(err error) string {
	if err == nil {
		return ""
	}
	var werr *wardrobe.Error
	switch wardrobe.KindOf(err) {
	case wardrobe.KindLocationUnavailable:
		return "your location is unavailable"
	case wardrobe.KindEmptyResult:
		return "nothing to show"
	case wardrobe.KindDuplicateID:
		return "that item is already in the outfit"
	case wardrobe.KindInvariantViolation:
		return "that item doesn't fit that slot"
	case wardrobe.KindDecode:
		return "the server sent an unexpected response"
	case wardrobe.KindNetwork:
		if errors.As(err, &werr) && werr.Status > 0 {
			return fmt.Sprintf("server error (%d)", werr.Status)
		}
		return "can't reach the server"
	}
	if errors.Is(err, recommend.ErrNoOutfit) {
		return "no outfit selected"
	}
	return err.Error()
}

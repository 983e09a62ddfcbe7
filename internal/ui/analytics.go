package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shleen/threadline/internal/wardrobe"
)

const analyticsBarWidth = 30

func (m Model) handleAnalyticsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Refresh) {
		if m.refresher != nil {
			m.refresher.Trigger()
			m.setStatus("Refreshing utilization...", false)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.analyticsViewport, cmd = m.analyticsViewport.Update(msg)
	return m, cmd
}

func (m Model) renderAnalyticsContent() string {
	styles := m.theme.Styles()
	snap := m.snapshot

	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render("This month"))
	b.WriteString("\n\n")

	if !snap.HasUtilization {
		if snap.LastError != nil {
			b.WriteString(styles.DangerText.Render("Could not load utilization: " + describeError(snap.LastError)))
			b.WriteString("\n\n" + styles.MutedText.Render("Press r to retry."))
		} else {
			b.WriteString(styles.MutedText.Render("Loading utilization..."))
		}
		return b.String()
	}

	util := snap.Utilization
	if util.IsEmpty() {
		b.WriteString(styles.MutedText.Render("You haven't logged any outfits this month."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(m.utilizationRow("Overall", util.Total, m.theme.Accent))
	b.WriteString("\n\n")
	for _, c := range wardrobe.Categories {
		frac, ok := util.ByCategory[c]
		if !ok {
			continue
		}
		b.WriteString(m.utilizationRow(c.Label(), frac, m.theme.CategoryColor(c)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.AccentText.Bold(true).Render("Most reworn"))
	b.WriteString("\n\n")
	if !util.HasRewears() {
		b.WriteString(styles.MutedText.Render("No item has been worn twice yet."))
		b.WriteString("\n")
		return b.String()
	}
	for _, c := range wardrobe.Categories {
		item, ok := util.TopRewear(c)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s  #%-5d %s  %s\n",
			styles.Chip(padRight(c.Singular(), 9), m.theme.CategoryColor(c)),
			item.ID,
			styles.Text.Render(fmt.Sprintf("worn %d times", item.Wears)),
			styles.FaintText.Render(truncateMiddle(wardrobe.JoinMediaURL(m.mediaURL, item.ImgFilename), 48)),
		)
	}
	return b.String()
}

func (m Model) utilizationRow(label string, frac wardrobe.Fraction, color string) string {
	styles := m.theme.Styles()
	filled := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
	empty := styles.FaintText
	full, rest := barSegments(float64(frac), analyticsBarWidth)
	return fmt.Sprintf("%s %s%s %s",
		styles.Text.Render(padRight(label, 10)),
		filled.Render(strings.Repeat("█", full)),
		empty.Render(strings.Repeat("░", rest)),
		styles.MutedText.Render(fmt.Sprintf("%3d%%", frac.Percent())),
	)
}

// barSegments splits width cells into filled and empty for fraction f,
// clamping f to [0, 1].
func barSegments(f float64, width int) (filled, empty int) {
	if width <= 0 {
		return 0, 0
	}
	switch {
	case f < 0:
		f = 0
	case f > 1:
		f = 1
	}
	filled = int(f*float64(width) + 0.5)
	return filled, width - filled
}

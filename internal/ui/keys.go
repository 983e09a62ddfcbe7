package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Escape     key.Binding
	Refresh    key.Binding

	// View switching
	ViewOutfit    key.Binding
	ViewCloset    key.Binding
	ViewDeclutter key.Binding
	ViewFeed      key.Binding
	ViewAnalytics key.Binding
	ViewHistory   key.Binding
	ViewLogs      key.Binding

	// Navigation
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding

	// Outfit actions
	NextOutfit key.Binding
	PrevOutfit key.Binding
	Confirm    key.Binding
	Swap       key.Binding
	Add        key.Binding
	Remove     key.Binding

	// Closet
	CycleCategory key.Binding
	ToggleSelect  key.Binding
	LogOutfit     key.Binding

	// Declutter
	RemoveAll key.Binding

	// Feed
	LoadMore key.Binding

	// Logs
	ToggleFollow key.Binding

	Select key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next view"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous view"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Close"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Refresh / retry"),
		),

		ViewOutfit: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "Outfit"),
		),
		ViewCloset: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "Closet"),
		),
		ViewDeclutter: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "Declutter"),
		),
		ViewFeed: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "Feed"),
		),
		ViewAnalytics: key.NewBinding(
			key.WithKeys("5"),
			key.WithHelp("5", "Analytics"),
		),
		ViewHistory: key.NewBinding(
			key.WithKeys("6"),
			key.WithHelp("6", "History"),
		),
		ViewLogs: key.NewBinding(
			key.WithKeys("7"),
			key.WithHelp("7", "Logs"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),

		NextOutfit: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("l/right", "Next outfit"),
		),
		PrevOutfit: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("h/left", "Previous outfit"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Wear this outfit"),
		),
		Swap: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Swap item"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Add item"),
		),
		Remove: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Remove item"),
		),

		CycleCategory: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Cycle category"),
		),
		ToggleSelect: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "Select item"),
		),
		LogOutfit: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "Log selected as worn"),
		),
		RemoveAll: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "Remove all"),
		),
		LoadMore: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "Load more"),
		),
		ToggleFollow: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "Toggle follow"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Select"),
		),
	}
}

// ShortHelp returns key bindings for the footer.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Refresh, k.Help, k.Quit}
}

// FullHelp returns key bindings for the help overlay, one column per group.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab, k.ViewOutfit, k.ViewCloset, k.ViewDeclutter, k.ViewFeed, k.ViewAnalytics, k.ViewHistory, k.ViewLogs},
		{k.Up, k.Down, k.Top, k.Bottom},
		{k.NextOutfit, k.PrevOutfit, k.Confirm, k.Swap, k.Add, k.Remove},
		{k.CycleCategory, k.ToggleSelect, k.LogOutfit, k.RemoveAll, k.LoadMore, k.ToggleFollow},
		{k.Refresh, k.CycleTheme, k.Help, k.Quit},
	}
}

// viewHints returns the footer bindings for a view.
func (k keyMap) viewHints(v View) []key.Binding {
	switch v {
	case ViewOutfit:
		return []key.Binding{k.PrevOutfit, k.NextOutfit, k.Confirm, k.Swap, k.Add, k.Remove, k.Refresh}
	case ViewCloset:
		return []key.Binding{k.CycleCategory, k.Up, k.Down, k.ToggleSelect, k.LogOutfit}
	case ViewDeclutter:
		return []key.Binding{k.Remove, k.RemoveAll, k.Refresh}
	case ViewFeed:
		return []key.Binding{k.Up, k.Down, k.LoadMore, k.Refresh}
	case ViewLogs:
		return []key.Binding{k.ToggleFollow, k.Refresh}
	default:
		return []key.Binding{k.Refresh}
	}
}

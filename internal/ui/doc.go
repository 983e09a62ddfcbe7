// Package ui implements the threadline terminal interface with Bubble Tea.
//
// # Views
//
//   - Outfit: today's recommendations. Step through outfits, swap, add or
//     remove items and log the outfit as worn.
//   - Closet: every garment, filterable by category.
//   - Declutter: rarely worn items, removable one at a time or all at once.
//   - Feed: outfits other users logged, paged on demand.
//   - Analytics: this month's utilization per category and the most
//     reworn items.
//   - History: the user's logged outfits.
//   - Logs: the tail of threadline's own log file.
//
// A setup prompt replaces all views until a valid username is known.
//
// # State
//
// Closet, utilization and declutter data come from state.Store, which the
// background refresher fills; the model re-reads it every tick.
// Recommendations live in a recommend.Session and the feed in a
// feed.Pager. Every network call runs in a tea.Cmd and reports back with a
// message, so model fields change only inside Update.
//
// # Themes
//
// T cycles the lipgloss themes and stores the choice in prefs.toml.
package ui

// Package state shares closet data between the background refresher and
// the UI.
//
// # Overview
//
// The refresher polls the backend for the closet, utilization and
// declutter suggestions and writes the result into a Store. The UI reads
// a Snapshot on each tick:
//
//	Refresher:                      UI:
//	┌──────────────────┐           ┌──────────────────┐
//	│ FetchCloset()    │           │                  │
//	│ FetchUtilization │           │                  │
//	│ FetchDeclutter() │           │                  │
//	│      ↓           │           │                  │
//	│ store.Update()   │──────────→│ store.Snapshot() │
//	└──────────────────┘  (mutex)  └──────────────────┘
//
// # Update Semantics
//
// A successful Update replaces everything and clears the failure count.
// A failed Update keeps the previous data, records the error and bumps
// ConsecutiveFailures; IsOffline reports true from the second failure in
// a row so the header can show an offline badge while the last good data
// stays on screen.
//
// RemoveDeclutter applies a local removal right after the user
// declutters, so the view does not wait for the next poll.
//
// # Copying
//
// Update and Snapshot copy slices and utilization maps. Callers may
// mutate what they get back.
//
// The zero Store is ready to use.
package state

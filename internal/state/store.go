package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/shleen/threadline/internal/wardrobe"
)

// Snapshot represents the latest closet data available to the UI.
type Snapshot struct {
	Closet              []wardrobe.Clothing
	Utilization         wardrobe.Utilization
	HasUtilization      bool
	Declutter           []wardrobe.DeclutterItem
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive refresh failures
}

// IsOffline returns true when the backend has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// ClosetByCategory returns closet items in category c.
func (s Snapshot) ClosetByCategory(c wardrobe.Category) []wardrobe.Clothing {
	var out []wardrobe.Clothing
	for _, item := range s.Closet {
		if item.Category == c {
			out = append(out, item)
		}
	}
	return out
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update replaces the stored snapshot. When err is non-nil the previous data is
// kept but the error is recorded for visibility.
func (s *Store) Update(closet []wardrobe.Clothing, util *wardrobe.Utilization, declutter []wardrobe.DeclutterItem, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		s.snapshot.ConsecutiveFailures++
		return
	}

	s.snapshot.Closet = cloneSlice(closet)
	s.snapshot.Declutter = cloneSlice(declutter)
	if util != nil {
		s.snapshot.Utilization = cloneUtilization(*util)
		s.snapshot.HasUtilization = true
	} else {
		s.snapshot.Utilization = wardrobe.Utilization{}
		s.snapshot.HasUtilization = false
	}
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// RemoveDeclutter drops items the user has just decluttered so the view
// updates before the next refresh. It reports how many suggestions remain.
func (s *Store) RemoveDeclutter(ids ...int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := s.snapshot.Declutter[:0:0]
	for _, item := range s.snapshot.Declutter {
		if _, ok := drop[item.ID]; !ok {
			kept = append(kept, item)
		}
	}
	closet := s.snapshot.Closet[:0:0]
	for _, item := range s.snapshot.Closet {
		if _, ok := drop[item.ID]; !ok {
			closet = append(closet, item)
		}
	}
	s.snapshot.Declutter = kept
	s.snapshot.Closet = closet
	return len(kept)
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Closet = cloneSlice(s.snapshot.Closet)
	snap.Declutter = cloneSlice(s.snapshot.Declutter)
	snap.Utilization = cloneUtilization(s.snapshot.Utilization)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneSlice[T any](items []T) []T {
	if len(items) == 0 {
		return nil
	}
	dup := make([]T, len(items))
	copy(dup, items)
	return dup
}

func cloneUtilization(u wardrobe.Utilization) wardrobe.Utilization {
	out := wardrobe.Utilization{Total: u.Total}
	if u.ByCategory != nil {
		out.ByCategory = make(map[wardrobe.Category]wardrobe.Fraction, len(u.ByCategory))
		for k, v := range u.ByCategory {
			out.ByCategory[k] = v
		}
	}
	if u.Rewears != nil {
		out.Rewears = make(map[wardrobe.Category][]wardrobe.RewornItem, len(u.Rewears))
		for k, v := range u.Rewears {
			out.Rewears[k] = cloneSlice(v)
		}
	}
	return out
}

package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shleen/threadline/internal/state"
	"github.com/shleen/threadline/internal/wardrobe"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	// Verify that backoff never exceeds maxBackoff regardless of input
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 20; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
}

func TestCalculateBackoff_LongIntervals(t *testing.T) {
	tests := []struct {
		name     string
		base     time.Duration
		failures int
		want     time.Duration
	}{
		{"default interval one failure", 30 * time.Second, 1, time.Minute},
		{"default interval three failures", 30 * time.Second, 3, 4 * time.Minute},
		{"default interval capped", 30 * time.Second, 10, 4 * time.Minute},
		{"five minutes one failure", 5 * time.Minute, 1, 10 * time.Minute},
		{"five minutes capped", 5 * time.Minute, 10, 40 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, tt.base)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, tt.base, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_NeverShorterThanBase(t *testing.T) {
	for _, base := range []time.Duration{time.Second, 30 * time.Second, 5 * time.Minute, time.Hour} {
		for failures := 1; failures <= 20; failures++ {
			if got := calculateBackoff(failures, base); got <= base {
				t.Errorf("calculateBackoff(%d, %v) = %v, want more than the base interval", failures, base, got)
			}
		}
	}
}

type fakeSource struct {
	mu        sync.Mutex
	calls     int
	users     []string
	closetErr error
}

func (f *fakeSource) FetchCloset(ctx context.Context, username string, category wardrobe.Category) ([]wardrobe.Clothing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.users = append(f.users, username)
	if f.closetErr != nil {
		return nil, f.closetErr
	}
	return []wardrobe.Clothing{{ID: 1, Category: wardrobe.Top}, {ID: 2, Category: wardrobe.Shoes}}, nil
}

func (f *fakeSource) FetchUtilization(ctx context.Context, username string) (wardrobe.Utilization, error) {
	return wardrobe.Utilization{Total: 0.5}, nil
}

func (f *fakeSource) FetchDeclutter(ctx context.Context, username string) ([]wardrobe.DeclutterItem, error) {
	return []wardrobe.DeclutterItem{{ID: 2}}, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRefresh_PopulatesStore(t *testing.T) {
	store := &state.Store{}
	r := NewRefresher(store, &fakeSource{}, "alice", time.Minute, nil)

	r.Refresh(context.Background())

	snap := store.Snapshot()
	if len(snap.Closet) != 2 || len(snap.Declutter) != 1 {
		t.Fatalf("snapshot closet/declutter = %d/%d, want 2/1", len(snap.Closet), len(snap.Declutter))
	}
	if !snap.HasUtilization || snap.Utilization.Total != 0.5 {
		t.Fatalf("utilization = %+v, want total 0.5", snap.Utilization)
	}
}

func TestRefresh_SkipsWithoutUser(t *testing.T) {
	src := &fakeSource{}
	r := NewRefresher(&state.Store{}, src, "", time.Minute, nil)
	r.Refresh(context.Background())
	if src.callCount() != 0 {
		t.Fatalf("FetchCloset called %d times without a user", src.callCount())
	}
}

func TestRefresh_FailureKeepsData(t *testing.T) {
	store := &state.Store{}
	src := &fakeSource{}
	r := NewRefresher(store, src, "alice", time.Minute, nil)
	r.Refresh(context.Background())

	src.closetErr = errors.New("connection refused")
	r.Refresh(context.Background())
	r.Refresh(context.Background())

	snap := store.Snapshot()
	if len(snap.Closet) != 2 {
		t.Fatalf("closet len = %d, want previous data kept", len(snap.Closet))
	}
	if snap.ConsecutiveFailures != 2 || !snap.IsOffline() {
		t.Fatalf("failures = %d offline = %v, want 2/true", snap.ConsecutiveFailures, snap.IsOffline())
	}
}

func TestRefresher_TriggerAndSetUsername(t *testing.T) {
	src := &fakeSource{}
	r := NewRefresher(&state.Store{}, src, "", time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	r.SetUsername("bob")
	deadline := time.Now().Add(2 * time.Second)
	for src.callCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("refresh not triggered after SetUsername")
		}
		time.Sleep(5 * time.Millisecond)
	}
	src.mu.Lock()
	user := src.users[0]
	src.mu.Unlock()
	if user != "bob" {
		t.Fatalf("polled user = %q, want bob", user)
	}
}

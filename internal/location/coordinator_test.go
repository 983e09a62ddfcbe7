package location

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shleen/threadline/internal/wardrobe"
)

// gatedProvider blocks every lookup until release is closed.
type gatedProvider struct {
	calls   atomic.Int32
	release chan struct{}
	loc     Location
	err     error
}

func newGated(loc Location, err error) *gatedProvider {
	return &gatedProvider{release: make(chan struct{}), loc: loc, err: err}
}

func (g *gatedProvider) Lookup(ctx context.Context) (Location, error) {
	g.calls.Add(1)
	select {
	case <-g.release:
	case <-ctx.Done():
		return Location{}, ctx.Err()
	}
	return g.loc, g.err
}

type outcome struct {
	loc Location
	err error
}

func collect(t *testing.T, c *Coordinator, n int) []outcome {
	t.Helper()
	var mu sync.Mutex
	var wg sync.WaitGroup
	got := make([]outcome, 0, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go c.Request(func(loc Location, err error) {
			mu.Lock()
			got = append(got, outcome{loc, err})
			mu.Unlock()
			wg.Done()
		})
	}
	return waitAll(t, &wg, &mu, &got)
}

func waitAll(t *testing.T, wg *sync.WaitGroup, mu *sync.Mutex, got *[]outcome) []outcome {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callbacks did not all fire")
	}
	mu.Lock()
	defer mu.Unlock()
	return *got
}

func TestCoordinator_ConcurrentRequestsShareOneLookup(t *testing.T) {
	want := Location{Lat: 40.7, Lon: -74.0}
	p := newGated(want, nil)
	c := NewCoordinator(p)

	const n = 25
	var started sync.WaitGroup
	started.Add(1)
	go func() {
		// let every request queue before the lookup settles
		assert.Eventually(t, func() bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			return len(c.waiters) == n
		}, time.Second, time.Millisecond)
		close(p.release)
		started.Done()
	}()

	got := collect(t, c, n)
	started.Wait()

	require.Len(t, got, n)
	for _, o := range got {
		assert.NoError(t, o.err)
		assert.Equal(t, want, o.loc)
	}
	assert.Equal(t, int32(1), p.calls.Load())
	assert.Equal(t, 1, c.Lookups())

	cached, ok := c.Cached()
	require.True(t, ok)
	assert.Equal(t, want, cached)
}

func TestCoordinator_FailureNotifiesEveryWaiter(t *testing.T) {
	p := newGated(Location{}, errors.New("permission denied"))
	c := NewCoordinator(p)

	const n = 5
	go func() {
		assert.Eventually(t, func() bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			return len(c.waiters) == n
		}, time.Second, time.Millisecond)
		close(p.release)
	}()

	got := collect(t, c, n)
	require.Len(t, got, n)
	for _, o := range got {
		require.Error(t, o.err)
		assert.ErrorIs(t, o.err, wardrobe.ErrLocationUnavailable)
		assert.Contains(t, o.err.Error(), "permission denied")
	}
	_, ok := c.Cached()
	assert.False(t, ok)
	assert.ErrorIs(t, c.LastError(), wardrobe.ErrLocationUnavailable)
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestCoordinator_RetryAfterFailureStartsFreshLookup(t *testing.T) {
	var calls atomic.Int32
	c := NewCoordinator(ProviderFunc(func(ctx context.Context) (Location, error) {
		if calls.Add(1) == 1 {
			return Location{}, errors.New("no fix")
		}
		return Location{Lat: 1, Lon: 2}, nil
	}))

	_, err := c.Current(context.Background())
	require.ErrorIs(t, err, wardrobe.ErrLocationUnavailable)

	loc, err := c.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Location{Lat: 1, Lon: 2}, loc)
	assert.NoError(t, c.LastError())
	assert.Equal(t, int32(2), calls.Load())
}

func TestCoordinator_CachedFixIsSynchronous(t *testing.T) {
	c := NewCoordinator(Static{Loc: Location{Lat: 3, Lon: 4}, Set: true})
	_, err := c.Current(context.Background())
	require.NoError(t, err)

	var got Location
	c.Request(func(loc Location, err error) {
		got = loc
	})
	assert.Equal(t, Location{Lat: 3, Lon: 4}, got)
	assert.Equal(t, 1, c.Lookups())
}

func TestCoordinator_InvalidateForcesLookup(t *testing.T) {
	var calls atomic.Int32
	c := NewCoordinator(ProviderFunc(func(ctx context.Context) (Location, error) {
		n := calls.Add(1)
		return Location{Lat: float64(n), Lon: 0}, nil
	}))

	first, err := c.Current(context.Background())
	require.NoError(t, err)
	c.Invalidate()
	second, err := c.Current(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1.0, first.Lat)
	assert.Equal(t, 2.0, second.Lat)
}

func TestCoordinator_CurrentHonorsContext(t *testing.T) {
	p := newGated(Location{Lat: 1, Lon: 1}, nil)
	c := NewCoordinator(p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Current(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// the abandoned waiter is still settled once the lookup finishes
	close(p.release)
	require.Eventually(t, func() bool {
		_, ok := c.Cached()
		return ok
	}, time.Second, time.Millisecond)
}

func TestCoordinator_LookupTimeout(t *testing.T) {
	c := NewCoordinator(newGated(Location{}, nil), WithTimeout(20*time.Millisecond))
	_, err := c.Current(context.Background())
	require.ErrorIs(t, err, wardrobe.ErrLocationUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCoordinator_RejectsOutOfRangeFix(t *testing.T) {
	c := NewCoordinator(Static{Loc: Location{Lat: 120, Lon: 0}, Set: true})
	_, err := c.Current(context.Background())
	require.ErrorIs(t, err, wardrobe.ErrLocationUnavailable)
}

func TestStatic(t *testing.T) {
	_, err := NewStatic(nil, nil).Lookup(context.Background())
	require.ErrorIs(t, err, ErrNotConfigured)

	lat, lon := 51.5, -0.12
	loc, err := NewStatic(&lat, &lon).Lookup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "51.5000,-0.1200", loc.String())
}

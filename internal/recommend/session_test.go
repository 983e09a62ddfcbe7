package recommend

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shleen/threadline/internal/backend"
	"github.com/shleen/threadline/internal/location"
	"github.com/shleen/threadline/internal/wardrobe"
)

type fetchResult struct {
	coll wardrobe.Collection
	err  error
}

type fakeAPI struct {
	mu       sync.Mutex
	fetches  []chan fetchResult
	confirms []backend.ConfirmRequest
	confirm  func(backend.ConfirmRequest) error
	started  chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{started: make(chan struct{}, 16)}
}

// FetchRecommendations blocks until the test answers on the call's channel.
func (f *fakeAPI) FetchRecommendations(ctx context.Context, username string, lat, lon float64) (wardrobe.Collection, error) {
	ch := make(chan fetchResult, 1)
	f.mu.Lock()
	f.fetches = append(f.fetches, ch)
	f.mu.Unlock()
	f.started <- struct{}{}
	select {
	case r := <-ch:
		return r.coll, r.err
	case <-ctx.Done():
		return wardrobe.Collection{}, ctx.Err()
	}
}

func (f *fakeAPI) ConfirmOutfit(ctx context.Context, req backend.ConfirmRequest) error {
	f.mu.Lock()
	f.confirms = append(f.confirms, req)
	fn := f.confirm
	f.mu.Unlock()
	if fn != nil {
		return fn(req)
	}
	return nil
}

func (f *fakeAPI) answer(t *testing.T, i int, r fetchResult) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Greater(t, len(f.fetches), i)
	f.fetches[i] <- r
}

func (f *fakeAPI) waitStarted(t *testing.T) {
	t.Helper()
	select {
	case <-f.started:
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not start")
	}
}

func staticLocator() Locator {
	return location.NewCoordinator(location.Static{Loc: location.Location{Lat: 1, Lon: 2}, Set: true})
}

func outfit(ids ...int64) wardrobe.Outfit {
	items := make([]wardrobe.ClothingItem, len(ids))
	for i, id := range ids {
		items[i] = wardrobe.ClothingItem{ID: id, Image: "x.jpg", Category: wardrobe.Top}
	}
	return wardrobe.MustOutfit(items...)
}

func twoOutfits() wardrobe.Collection {
	return wardrobe.NewCollection([]wardrobe.Outfit{
		wardrobe.MustOutfit(
			wardrobe.ClothingItem{ID: 1, Image: "a.jpg", Category: wardrobe.Top},
			wardrobe.ClothingItem{ID: 2, Image: "b.jpg", Category: wardrobe.Bottom},
		),
		outfit(10),
	})
}

func fetchAsync(s *Session) <-chan error {
	done := make(chan error, 1)
	go func() { done <- s.Fetch(context.Background()) }()
	return done
}

func loadedSession(t *testing.T, api *fakeAPI) *Session {
	t.Helper()
	s := NewSession(api, staticLocator(), "alice", nil)
	done := fetchAsync(s)
	api.waitStarted(t)
	api.answer(t, 0, fetchResult{coll: twoOutfits()})
	require.NoError(t, <-done)
	return s
}

func TestFetch_LoadsCollection(t *testing.T) {
	api := newFakeAPI()
	s := NewSession(api, staticLocator(), "alice", nil)
	assert.Equal(t, PhaseIdle, s.Snapshot().Phase)

	done := fetchAsync(s)
	api.waitStarted(t)
	assert.Equal(t, PhaseLoading, s.Snapshot().Phase)

	api.answer(t, 0, fetchResult{coll: twoOutfits()})
	require.NoError(t, <-done)

	snap := s.Snapshot()
	assert.Equal(t, PhaseReady, snap.Phase)
	assert.Equal(t, 2, snap.Collection.Len())
	assert.Equal(t, 0, snap.Index)
	require.True(t, snap.HasCurrent)
	assert.Equal(t, []int64{1, 2}, snap.Current.IDs())
}

func TestFetch_StaleResponseIsDropped(t *testing.T) {
	api := newFakeAPI()
	s := NewSession(api, staticLocator(), "alice", nil)

	first := fetchAsync(s)
	api.waitStarted(t)
	second := fetchAsync(s)
	api.waitStarted(t)

	// first fetch was cancelled by the second
	err := <-first
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStale) || errors.Is(err, context.Canceled))

	api.answer(t, 1, fetchResult{coll: wardrobe.NewCollection([]wardrobe.Outfit{outfit(42)})})
	require.NoError(t, <-second)

	snap := s.Snapshot()
	assert.Equal(t, []int64{42}, snap.Current.IDs())
}

func TestFetch_EmptyIsDistinctFromError(t *testing.T) {
	api := newFakeAPI()
	s := NewSession(api, staticLocator(), "alice", nil)

	done := fetchAsync(s)
	api.waitStarted(t)
	api.answer(t, 0, fetchResult{err: wardrobe.NewError(wardrobe.KindEmptyResult, "fetch", nil)})
	require.ErrorIs(t, <-done, wardrobe.ErrEmptyResult)
	assert.Equal(t, PhaseEmpty, s.Snapshot().Phase)

	done = fetchAsync(s)
	api.waitStarted(t)
	api.answer(t, 1, fetchResult{err: wardrobe.NewError(wardrobe.KindNetwork, "fetch", errors.New("refused"))})
	require.ErrorIs(t, <-done, wardrobe.ErrNetwork)
	snap := s.Snapshot()
	assert.Equal(t, PhaseError, snap.Phase)
	assert.ErrorIs(t, snap.Err, wardrobe.ErrNetwork)
}

func TestFetch_ErrorKeepsPreviousCollection(t *testing.T) {
	api := newFakeAPI()
	s := loadedSession(t, api)

	done := fetchAsync(s)
	api.waitStarted(t)
	api.answer(t, 1, fetchResult{err: wardrobe.NewError(wardrobe.KindDecode, "fetch", nil)})
	require.Error(t, <-done)

	snap := s.Snapshot()
	assert.Equal(t, PhaseError, snap.Phase)
	assert.Equal(t, 2, snap.Collection.Len())
}

func TestFetch_LocationFailure(t *testing.T) {
	api := newFakeAPI()
	loc := location.NewCoordinator(location.NewStatic(nil, nil))
	s := NewSession(api, loc, "alice", nil)

	err := s.Fetch(context.Background())
	require.ErrorIs(t, err, wardrobe.ErrLocationUnavailable)
	assert.Equal(t, PhaseError, s.Snapshot().Phase)
}

func TestCancel_DropsInFlightFetch(t *testing.T) {
	api := newFakeAPI()
	s := NewSession(api, staticLocator(), "alice", nil)

	done := fetchAsync(s)
	api.waitStarted(t)
	s.Cancel()

	err := <-done
	assert.True(t, errors.Is(err, ErrStale) || errors.Is(err, context.Canceled))
	assert.Equal(t, PhaseIdle, s.Snapshot().Phase)
}

func TestNavigation_Cycles(t *testing.T) {
	s := loadedSession(t, newFakeAPI())
	assert.Equal(t, 1, s.Next())
	assert.Equal(t, 0, s.Next())
	assert.Equal(t, 1, s.Prev())
}

func TestEdits_ApplyToCurrentOutfit(t *testing.T) {
	s := loadedSession(t, newFakeAPI())

	found, err := s.Swap(wardrobe.Top, 1, wardrobe.ClothingItem{ID: 99, Image: "n.jpg", Category: wardrobe.Top})
	require.NoError(t, err)
	require.True(t, found)
	cur := s.Snapshot().Current
	assert.Equal(t, int64(99), cur.Bucket(wardrobe.Top)[0].ID)
	assert.Equal(t, int64(2), cur.Bucket(wardrobe.Bottom)[0].ID)

	found, err = s.Swap(wardrobe.Top, 1, wardrobe.ClothingItem{ID: 5, Category: wardrobe.Top})
	require.NoError(t, err)
	assert.False(t, found)

	_, err = s.Swap(wardrobe.Top, 99, wardrobe.ClothingItem{ID: 5, Category: wardrobe.Shoes})
	require.ErrorIs(t, err, wardrobe.ErrInvariantViolation)
	assert.Equal(t, int64(99), s.Snapshot().Current.Bucket(wardrobe.Top)[0].ID)

	require.NoError(t, s.Add(wardrobe.ClothingItem{ID: 7, Category: wardrobe.Shoes}))
	require.ErrorIs(t, s.Add(wardrobe.ClothingItem{ID: 7, Category: wardrobe.Dress}), wardrobe.ErrDuplicateID)

	found, err = s.Remove(2)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []int64{99, 7}, s.Snapshot().Current.IDs())

	// other outfits are untouched
	s.Next()
	assert.Equal(t, []int64{10}, s.Snapshot().Current.IDs())
}

func TestEdits_WithoutOutfit(t *testing.T) {
	s := NewSession(newFakeAPI(), staticLocator(), "alice", nil)
	_, err := s.Remove(1)
	require.ErrorIs(t, err, ErrNoOutfit)
	require.ErrorIs(t, s.Confirm(context.Background()), ErrNoOutfit)
}

func TestConfirm_OnlyAfterServerSuccess(t *testing.T) {
	api := newFakeAPI()
	s := loadedSession(t, api)

	release := make(chan error)
	api.confirm = func(backend.ConfirmRequest) error { return <-release }

	done := make(chan error, 1)
	go func() { done <- s.Confirm(context.Background()) }()
	require.Eventually(t, func() bool { return s.Snapshot().Confirm == ConfirmPending }, time.Second, time.Millisecond)
	require.ErrorIs(t, s.Confirm(context.Background()), ErrConfirmInFlight)

	release <- nil
	require.NoError(t, <-done)
	assert.Equal(t, ConfirmConfirmed, s.Snapshot().Confirm)
	assert.Equal(t, []int64{1, 2}, api.confirms[0].ClothingIDs)
	assert.Equal(t, "alice", api.confirms[0].Username)
}

func TestConfirm_RetryReusesIdempotencyKey(t *testing.T) {
	api := newFakeAPI()
	s := loadedSession(t, api)

	fail := true
	api.confirm = func(backend.ConfirmRequest) error {
		if fail {
			return wardrobe.NewError(wardrobe.KindNetwork, "confirm", errors.New("timeout"))
		}
		return nil
	}

	require.ErrorIs(t, s.Confirm(context.Background()), wardrobe.ErrNetwork)
	snap := s.Snapshot()
	assert.Equal(t, ConfirmFailed, snap.Confirm)
	assert.ErrorIs(t, snap.ConfirmErr, wardrobe.ErrNetwork)

	fail = false
	require.NoError(t, s.Confirm(context.Background()))
	require.Len(t, api.confirms, 2)
	assert.Equal(t, api.confirms[0].IdempotencyKey, api.confirms[1].IdempotencyKey)
	assert.Equal(t, ConfirmConfirmed, s.Snapshot().Confirm)
}

func TestConfirm_EditResetsState(t *testing.T) {
	api := newFakeAPI()
	s := loadedSession(t, api)
	api.confirm = func(backend.ConfirmRequest) error { return errors.New("boom") }

	require.Error(t, s.Confirm(context.Background()))
	_, err := s.Remove(2)
	require.NoError(t, err)
	assert.Equal(t, ConfirmNone, s.Snapshot().Confirm)

	api.confirm = nil
	require.NoError(t, s.Confirm(context.Background()))
	require.Len(t, api.confirms, 2)
	assert.NotEqual(t, api.confirms[0].IdempotencyKey, api.confirms[1].IdempotencyKey)
	assert.Equal(t, []int64{1}, api.confirms[1].ClothingIDs)

	s.Next()
	assert.Equal(t, ConfirmNone, s.Snapshot().Confirm)
}

func TestConfirm_EditWhilePendingDropsResponse(t *testing.T) {
	api := newFakeAPI()
	s := loadedSession(t, api)

	release := make(chan error)
	api.confirm = func(backend.ConfirmRequest) error { return <-release }

	done := make(chan error, 1)
	go func() { done <- s.Confirm(context.Background()) }()
	require.Eventually(t, func() bool { return s.Snapshot().Confirm == ConfirmPending }, time.Second, time.Millisecond)

	s.Next()
	release <- nil
	require.ErrorIs(t, <-done, ErrStale)
	assert.Equal(t, ConfirmNone, s.Snapshot().Confirm)
}

func TestSetUsername_ClearsCollection(t *testing.T) {
	s := loadedSession(t, newFakeAPI())
	s.SetUsername("bob")
	snap := s.Snapshot()
	assert.Equal(t, "bob", snap.Username)
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.False(t, snap.HasCurrent)
}

package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shleen/threadline/internal/wardrobe"
)

type call struct {
	cursor   string
	pageSize int
}

type fakeFeed struct {
	mu    sync.Mutex
	calls []call
	pages map[string]wardrobe.FeedPage
	gate  chan struct{}
	err   error
}

func (f *fakeFeed) FetchFeed(ctx context.Context, cursor string, pageSize int) (wardrobe.FeedPage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{cursor, pageSize})
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if f.err != nil {
		return wardrobe.FeedPage{}, f.err
	}
	return f.pages[cursor], nil
}

func strptr(s string) *string { return &s }

func twoPages() *fakeFeed {
	return &fakeFeed{pages: map[string]wardrobe.FeedPage{
		"":   {Items: []wardrobe.FeedItem{{ID: 1}, {ID: 2}}, NextCursor: strptr("p2")},
		"p2": {Items: []wardrobe.FeedItem{{ID: 3}}},
	}}
}

func ids(items []wardrobe.FeedItem) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestPager_AccumulatesUntilLastPage(t *testing.T) {
	api := twoPages()
	p := NewPager(api, 0, nil)
	ctx := context.Background()

	require.NoError(t, p.LoadFirst(ctx))
	st := p.State()
	assert.Equal(t, []int64{1, 2}, ids(st.Items))
	assert.True(t, st.HasMore)

	require.NoError(t, p.LoadMore(ctx))
	st = p.State()
	assert.Equal(t, []int64{1, 2, 3}, ids(st.Items))
	assert.False(t, st.HasMore)

	// past the end: no request
	require.NoError(t, p.LoadMore(ctx))
	assert.Len(t, api.calls, 2)
	assert.Equal(t, []call{{"", DefaultPageSize}, {"p2", DefaultPageSize}}, api.calls)
}

func TestPager_LoadMoreBeforeFirstLoadsFirstPage(t *testing.T) {
	api := twoPages()
	p := NewPager(api, 5, nil)
	require.NoError(t, p.LoadMore(context.Background()))
	assert.Equal(t, []call{{"", 5}}, api.calls)
}

func TestPager_RejectsConcurrentLoads(t *testing.T) {
	api := twoPages()
	api.gate = make(chan struct{})
	p := NewPager(api, 0, nil)

	done := make(chan error, 1)
	go func() { done <- p.LoadFirst(context.Background()) }()
	require.Eventually(t, func() bool { return p.State().Loading }, time.Second, time.Millisecond)

	assert.ErrorIs(t, p.LoadMore(context.Background()), ErrBusy)
	assert.ErrorIs(t, p.LoadFirst(context.Background()), ErrBusy)

	close(api.gate)
	require.NoError(t, <-done)
	api.mu.Lock()
	assert.Len(t, api.calls, 1)
	api.mu.Unlock()
}

func TestPager_ErrorKeepsItems(t *testing.T) {
	api := twoPages()
	p := NewPager(api, 0, nil)
	require.NoError(t, p.LoadFirst(context.Background()))

	api.err = errors.New("offline")
	require.Error(t, p.LoadMore(context.Background()))
	st := p.State()
	assert.Equal(t, []int64{1, 2}, ids(st.Items))
	assert.True(t, st.HasMore)
	assert.EqualError(t, st.Err, "offline")

	api.err = nil
	require.NoError(t, p.LoadMore(context.Background()))
	assert.Equal(t, []int64{1, 2, 3}, ids(p.State().Items))
}

func TestPager_Reset(t *testing.T) {
	p := NewPager(twoPages(), 0, nil)
	require.NoError(t, p.LoadFirst(context.Background()))
	p.Reset()
	st := p.State()
	assert.Empty(t, st.Items)
	assert.False(t, st.Loaded)
}

// Package feed pages through the public outfit feed.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/shleen/threadline/internal/wardrobe"
)

// DefaultPageSize matches the backend's default page.
const DefaultPageSize = 10

// ErrBusy is returned when a page load is already in flight.
var ErrBusy = errors.New("feed page already loading")

// Fetcher loads one page of the feed.
type Fetcher interface {
	FetchFeed(ctx context.Context, cursor string, pageSize int) (wardrobe.FeedPage, error)
}

// Pager accumulates feed pages. Loads are strictly sequential.
type Pager struct {
	api      Fetcher
	pageSize int
	logger   *slog.Logger

	mu      sync.Mutex
	items   []wardrobe.FeedItem
	cursor  string
	hasMore bool
	loaded  bool
	loading bool
	epoch   uint64
	lastErr error
}

// NewPager builds a pager. A non-positive pageSize uses DefaultPageSize.
func NewPager(api Fetcher, pageSize int, logger *slog.Logger) *Pager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pager{api: api, pageSize: pageSize, logger: logger}
}

// LoadFirst discards accumulated items and loads the first page.
func (p *Pager) LoadFirst(ctx context.Context) error {
	p.mu.Lock()
	if p.loading {
		p.mu.Unlock()
		return ErrBusy
	}
	p.items = nil
	p.cursor = ""
	p.hasMore = false
	p.loaded = false
	p.mu.Unlock()
	return p.load(ctx, "")
}

// LoadMore appends the next page. It is a no-op once the last page has
// been loaded, and loads the first page if nothing was loaded yet.
func (p *Pager) LoadMore(ctx context.Context) error {
	p.mu.Lock()
	if p.loading {
		p.mu.Unlock()
		return ErrBusy
	}
	if p.loaded && !p.hasMore {
		p.mu.Unlock()
		return nil
	}
	cursor := p.cursor
	p.mu.Unlock()
	return p.load(ctx, cursor)
}

func (p *Pager) load(ctx context.Context, cursor string) error {
	p.mu.Lock()
	if p.loading {
		p.mu.Unlock()
		return ErrBusy
	}
	p.loading = true
	epoch := p.epoch
	p.mu.Unlock()

	page, err := p.api.FetchFeed(ctx, cursor, p.pageSize)

	p.mu.Lock()
	defer p.mu.Unlock()
	if epoch != p.epoch {
		return nil
	}
	p.loading = false
	if err != nil {
		p.lastErr = err
		p.logger.Warn("feed page failed", "cursor", cursor, "error", err)
		return err
	}
	p.lastErr = nil
	p.items = append(p.items, page.Items...)
	p.hasMore = page.HasMore()
	if p.hasMore {
		p.cursor = *page.NextCursor
	} else {
		p.cursor = ""
	}
	p.loaded = true
	p.logger.Debug("feed page loaded", "items", len(page.Items), "total", len(p.items), "has_more", p.hasMore)
	return nil
}

// Reset clears all pages. A load in flight is discarded when it returns.
func (p *Pager) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.epoch++
	p.items = nil
	p.cursor = ""
	p.hasMore = false
	p.loaded = false
	p.loading = false
	p.lastErr = nil
}

// State is a copy of the pager's progress.
type State struct {
	Items   []wardrobe.FeedItem
	HasMore bool
	Loaded  bool
	Loading bool
	Err     error
}

// State returns a snapshot.
func (p *Pager) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	items := make([]wardrobe.FeedItem, len(p.items))
	copy(items, p.items)
	return State{
		Items:   items,
		HasMore: p.hasMore,
		Loaded:  p.loaded,
		Loading: p.loading,
		Err:     p.lastErr,
	}
}

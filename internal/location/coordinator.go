package location

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shleen/threadline/internal/wardrobe"
)

// DefaultTimeout bounds a single provider lookup.
const DefaultTimeout = 15 * time.Second

// Callback receives the outcome of a location request.
type Callback func(Location, error)

// Coordinator resolves the location once for any number of concurrent
// callers. The first request starts a lookup; requests arriving while it
// is in flight are queued and all receive the same outcome.
type Coordinator struct {
	provider Provider
	timeout  time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	cached   *Location
	lastErr  error
	waiters  []Callback
	inFlight bool
	lookups  int
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTimeout sets the per-lookup timeout. Non-positive values keep the
// default.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used for lookup outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCoordinator builds a coordinator around p.
func NewCoordinator(p Provider, opts ...Option) *Coordinator {
	c := &Coordinator{
		provider: p,
		timeout:  DefaultTimeout,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request delivers the location to cb. A cached fix is delivered
// synchronously; otherwise cb runs on the lookup goroutine once the
// lookup settles. On failure cb receives an error of kind
// LocationUnavailable. cb is invoked exactly once.
func (c *Coordinator) Request(cb Callback) {
	c.mu.Lock()
	if c.cached != nil {
		loc := *c.cached
		c.mu.Unlock()
		cb(loc, nil)
		return
	}
	c.waiters = append(c.waiters, cb)
	if c.inFlight {
		c.mu.Unlock()
		return
	}
	c.inFlight = true
	c.lookups++
	c.mu.Unlock()

	go c.lookup()
}

func (c *Coordinator) lookup() {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	start := time.Now()
	loc, err := c.provider.Lookup(ctx)
	if err == nil && !loc.Valid() {
		err = fmt.Errorf("provider returned out-of-range location %s", loc)
	}

	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.inFlight = false
	if err != nil {
		err = wardrobe.NewError(wardrobe.KindLocationUnavailable, "lookup location", err)
		c.lastErr = err
	} else {
		c.cached = &loc
		c.lastErr = nil
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("location lookup failed", "error", err, "waiters", len(waiters), "elapsed", time.Since(start))
	} else {
		c.logger.Debug("location resolved", "location", loc.String(), "waiters", len(waiters), "elapsed", time.Since(start))
	}

	for _, cb := range waiters {
		if err != nil {
			cb(Location{}, err)
		} else {
			cb(loc, nil)
		}
	}
}

// Current blocks until the location is known or ctx is done.
func (c *Coordinator) Current(ctx context.Context) (Location, error) {
	type result struct {
		loc Location
		err error
	}
	ch := make(chan result, 1)
	c.Request(func(loc Location, err error) {
		ch <- result{loc, err}
	})
	select {
	case r := <-ch:
		return r.loc, r.err
	case <-ctx.Done():
		return Location{}, ctx.Err()
	}
}

// Cached returns the cached fix, if any.
func (c *Coordinator) Cached() (Location, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached == nil {
		return Location{}, false
	}
	return *c.cached, true
}

// LastError is the most recent lookup failure, cleared by a success.
func (c *Coordinator) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Invalidate drops the cached fix so the next request performs a lookup.
// A lookup already in flight is unaffected.
func (c *Coordinator) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()
}

// Lookups reports how many provider lookups have been started.
func (c *Coordinator) Lookups() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookups
}

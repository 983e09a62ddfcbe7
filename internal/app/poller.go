package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shleen/threadline/internal/state"
	"github.com/shleen/threadline/internal/wardrobe"
)

const (
	defaultPollInterval = 30 * time.Second
	maxBackoff          = 30 * time.Second
)

// ClosetSource is the part of the backend the refresher polls.
type ClosetSource interface {
	FetchCloset(ctx context.Context, username string, category wardrobe.Category) ([]wardrobe.Clothing, error)
	FetchUtilization(ctx context.Context, username string) (wardrobe.Utilization, error)
	FetchDeclutter(ctx context.Context, username string) ([]wardrobe.DeclutterItem, error)
}

// Refresher keeps the store's closet data current for one user.
type Refresher struct {
	store    *state.Store
	source   ClosetSource
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	username string
	trigger  chan struct{}
}

// NewRefresher builds a refresher. A non-positive interval uses the default.
func NewRefresher(store *state.Store, source ClosetSource, username string, interval time.Duration, logger *slog.Logger) *Refresher {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Refresher{
		store:    store,
		source:   source,
		interval: interval,
		logger:   logger,
		username: username,
		trigger:  make(chan struct{}, 1),
	}
}

// SetUsername switches the polled user and asks for an immediate refresh.
func (r *Refresher) SetUsername(name string) {
	r.mu.Lock()
	r.username = name
	r.mu.Unlock()
	r.Trigger()
}

// Trigger requests a refresh without waiting for the next tick. Requests
// made while one is pending collapse into it.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

func (r *Refresher) currentUser() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.username
}

// Start launches the polling goroutine. It returns immediately.
func (r *Refresher) Start(ctx context.Context) {
	go r.run(ctx)
}

func (r *Refresher) run(ctx context.Context) {
	for {
		r.Refresh(ctx)

		wait := r.interval
		if failures := r.store.Snapshot().ConsecutiveFailures; failures > 0 {
			wait = calculateBackoff(failures, r.interval)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-r.trigger:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Refresh fetches closet, utilization and declutter suggestions once and
// records the outcome in the store. It does nothing until a user is set.
func (r *Refresher) Refresh(ctx context.Context) {
	user := r.currentUser()
	if user == "" {
		return
	}
	if ctx.Err() != nil {
		return
	}

	closet, err := r.source.FetchCloset(ctx, user, "")
	if err != nil {
		r.fail(ctx, "closet", err)
		return
	}
	util, err := r.source.FetchUtilization(ctx, user)
	if err != nil {
		r.fail(ctx, "utilization", err)
		return
	}
	declutter, err := r.source.FetchDeclutter(ctx, user)
	if err != nil {
		r.fail(ctx, "declutter", err)
		return
	}
	r.store.Update(closet, &util, declutter, nil)
	r.logger.Debug("closet refreshed", "user", user, "items", len(closet), "declutter", len(declutter))
}

func (r *Refresher) fail(ctx context.Context, what string, err error) {
	if ctx.Err() != nil {
		return
	}
	r.store.Update(nil, nil, nil, err)
	r.logger.Warn("refresh failed",
		"resource", what,
		"error", err,
		"consecutive_failures", r.store.Snapshot().ConsecutiveFailures,
	)
}

// calculateBackoff doubles the base interval per consecutive failure, up to
// maxBackoff or eight times base, whichever is larger.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	limit := max(maxBackoff, base*8)
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= limit {
			return limit
		}
	}
	return backoff
}

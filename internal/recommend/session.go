package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/shleen/threadline/internal/backend"
	"github.com/shleen/threadline/internal/location"
	"github.com/shleen/threadline/internal/wardrobe"
)

// Recommender is the slice of the backend the session needs.
type Recommender interface {
	FetchRecommendations(ctx context.Context, username string, lat, lon float64) (wardrobe.Collection, error)
	ConfirmOutfit(ctx context.Context, req backend.ConfirmRequest) error
}

// Locator resolves the location used for a fetch.
type Locator interface {
	Current(ctx context.Context) (location.Location, error)
}

var (
	// ErrStale is returned by a Fetch or Confirm whose result was discarded
	// because a newer call or a user edit superseded it.
	ErrStale = errors.New("result superseded")
	// ErrNoOutfit means there is no current outfit to act on.
	ErrNoOutfit = errors.New("no outfit selected")
	// ErrConfirmInFlight means a confirmation is already pending.
	ErrConfirmInFlight = errors.New("confirmation already pending")
)

// Phase describes the recommendation screen.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseReady
	PhaseEmpty
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseEmpty:
		return "empty"
	case PhaseError:
		return "error"
	default:
		return "idle"
	}
}

// ConfirmState tracks confirmation of the current outfit. It only moves to
// Confirmed or Failed on a server response.
type ConfirmState int

const (
	ConfirmNone ConfirmState = iota
	ConfirmPending
	ConfirmConfirmed
	ConfirmFailed
)

func (c ConfirmState) String() string {
	switch c {
	case ConfirmPending:
		return "pending"
	case ConfirmConfirmed:
		return "confirmed"
	case ConfirmFailed:
		return "failed"
	default:
		return "none"
	}
}

// Snapshot is a read-only view of the session.
type Snapshot struct {
	Username   string
	Phase      Phase
	Collection wardrobe.Collection
	Current    wardrobe.Outfit
	HasCurrent bool
	Index      int
	Err        error
	Confirm    ConfirmState
	ConfirmErr error
}

// Session owns the recommendation collection shown to the user.
type Session struct {
	api    Recommender
	loc    Locator
	logger *slog.Logger

	mu       sync.Mutex
	username string
	gen      uint64
	cancel   context.CancelFunc
	phase    Phase
	coll     wardrobe.Collection
	err      error

	confirm    ConfirmState
	confirmErr error
	confirmReq *backend.ConfirmRequest
	confirmSeq uint64
}

// NewSession builds a session for username.
func NewSession(api Recommender, loc Locator, username string, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{
		api:      api,
		loc:      loc,
		logger:   logger,
		username: strings.TrimSpace(username),
	}
}

// SetUsername switches user and clears the collection.
func (s *Session) SetUsername(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = strings.TrimSpace(name)
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.coll = wardrobe.Collection{}
	s.phase = PhaseIdle
	s.err = nil
	s.resetConfirmLocked()
}

// Fetch replaces the collection with fresh recommendations. Any fetch
// already in flight is cancelled; if another Fetch or Cancel happens while
// this one runs, its result is dropped and ErrStale returned.
func (s *Session) Fetch(ctx context.Context) error {
	s.mu.Lock()
	if s.username == "" {
		s.mu.Unlock()
		return errors.New("username not configured")
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	fctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.phase = PhaseLoading
	s.err = nil
	username := s.username
	s.mu.Unlock()
	defer cancel()

	coll, err := s.fetch(fctx, username)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.logger.Debug("dropping stale recommendations", "generation", gen, "current", s.gen)
		return ErrStale
	}
	s.cancel = nil

	switch {
	case err == nil:
		s.coll = coll
		s.phase = PhaseReady
		s.resetConfirmLocked()
		s.logger.Info("recommendations loaded", "outfits", coll.Len())
		return nil
	case errors.Is(err, context.Canceled):
		s.phase = s.settledPhaseLocked()
		return err
	case errors.Is(err, wardrobe.ErrEmptyResult):
		s.coll = wardrobe.Collection{}
		s.phase = PhaseEmpty
		s.err = err
		s.resetConfirmLocked()
		s.logger.Info("no recommendations available")
		return err
	default:
		s.phase = PhaseError
		s.err = err
		s.logger.Warn("fetch recommendations failed", "error", err, "kind", wardrobe.KindOf(err).String())
		return err
	}
}

func (s *Session) fetch(ctx context.Context, username string) (wardrobe.Collection, error) {
	loc, err := s.loc.Current(ctx)
	if err != nil {
		return wardrobe.Collection{}, fmt.Errorf("resolve location: %w", err)
	}
	return s.api.FetchRecommendations(ctx, username, loc.Lat, loc.Lon)
}

// Cancel abandons any in-flight fetch.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	s.gen++
	s.phase = s.settledPhaseLocked()
}

func (s *Session) settledPhaseLocked() Phase {
	if !s.coll.IsEmpty() {
		return PhaseReady
	}
	return PhaseIdle
}

// Next moves to the following outfit, wrapping around.
func (s *Session) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coll = s.coll.Next()
	s.resetConfirmLocked()
	return s.coll.Index()
}

// Prev moves to the previous outfit, wrapping around.
func (s *Session) Prev() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coll = s.coll.Prev()
	s.resetConfirmLocked()
	return s.coll.Index()
}

// Swap replaces oldID in target with item on the current outfit. found is
// false when oldID is not in that bucket. Invalid edits leave the session
// unchanged.
func (s *Session) Swap(target wardrobe.Category, oldID int64, item wardrobe.ClothingItem) (bool, error) {
	return s.edit("swap", func(o wardrobe.Outfit) (wardrobe.Outfit, bool, error) {
		return wardrobe.Swap(o, target, oldID, item)
	})
}

// Add appends item to the current outfit.
func (s *Session) Add(item wardrobe.ClothingItem) error {
	_, err := s.edit("add", func(o wardrobe.Outfit) (wardrobe.Outfit, bool, error) {
		next, err := wardrobe.Add(o, item)
		return next, err == nil, err
	})
	return err
}

// Remove deletes id from the current outfit.
func (s *Session) Remove(id int64) (bool, error) {
	return s.edit("remove", func(o wardrobe.Outfit) (wardrobe.Outfit, bool, error) {
		next, found := wardrobe.Remove(o, id)
		return next, found, nil
	})
}

func (s *Session) edit(name string, fn func(wardrobe.Outfit) (wardrobe.Outfit, bool, error)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.coll.Current()
	if !ok {
		return false, ErrNoOutfit
	}
	next, found, err := fn(cur)
	if err != nil {
		s.logger.Warn("outfit edit rejected", "edit", name, "error", err)
		return found, err
	}
	if !found {
		return false, nil
	}
	s.coll = s.coll.Replace(next)
	s.resetConfirmLocked()
	return true, nil
}

// Confirm tells the backend the user is wearing the current outfit. A
// retry after a failure reuses the previous idempotency key.
func (s *Session) Confirm(ctx context.Context) error {
	s.mu.Lock()
	cur, ok := s.coll.Current()
	if !ok || cur.IsEmpty() {
		s.mu.Unlock()
		return ErrNoOutfit
	}
	if s.confirm == ConfirmPending {
		s.mu.Unlock()
		return ErrConfirmInFlight
	}
	if s.confirm == ConfirmConfirmed {
		s.mu.Unlock()
		return nil
	}
	req := s.confirmReq
	if req == nil {
		r := backend.NewConfirmRequest(s.username, cur)
		req = &r
		s.confirmReq = req
	}
	s.confirm = ConfirmPending
	s.confirmErr = nil
	seq := s.confirmSeq
	s.mu.Unlock()

	err := s.api.ConfirmOutfit(ctx, *req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.confirmSeq {
		return ErrStale
	}
	if err != nil {
		s.confirm = ConfirmFailed
		s.confirmErr = err
		s.logger.Warn("confirm outfit failed", "error", err, "idempotency_key", req.IdempotencyKey)
		return err
	}
	s.confirm = ConfirmConfirmed
	s.confirmReq = nil
	s.logger.Info("outfit confirmed", "items", len(req.ClothingIDs))
	return nil
}

func (s *Session) resetConfirmLocked() {
	s.confirmSeq++
	s.confirm = ConfirmNone
	s.confirmErr = nil
	s.confirmReq = nil
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.coll.Current()
	return Snapshot{
		Username:   s.username,
		Phase:      s.phase,
		Collection: s.coll,
		Current:    cur,
		HasCurrent: ok,
		Index:      s.coll.Index(),
		Err:        s.err,
		Confirm:    s.confirm,
		ConfirmErr: s.confirmErr,
	}
}

// Package session tracks whether the user holds the edit token for a
// bookshelf, and caches that bookshelf and its books.
//
// All mutations go through Store, which publishes an immutable Snapshot to
// subscribers after each transition. Responses that arrive after the token
// was cleared or replaced are dropped.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/drallgood/bookshelf/internal/api/bookshelf"
	"github.com/drallgood/bookshelf/internal/logger"
	"github.com/drallgood/bookshelf/internal/models"
	"github.com/drallgood/bookshelf/internal/tokenstore"
)

// ErrEmptyToken is returned by SetEditToken for a blank token
var ErrEmptyToken = errors.New("edit token must not be empty")

// State is the ownership state of the session
type State int

const (
	// Anonymous holds no token
	Anonymous State = iota
	// Loading holds a token and a fetch is in flight
	Loading
	// Owner holds a token and a cached bookshelf. The cache may be stale if
	// the last refresh failed; see Snapshot.LastError.
	Owner
	// Unverified holds a token that has never been confirmed by a successful fetch
	Unverified
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Loading:
		return "loading"
	case Owner:
		return "owner"
	case Unverified:
		return "unverified"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Snapshot is a point-in-time copy of the session
type Snapshot struct {
	State     State
	Token     string
	Bookshelf *models.Bookshelf
	Books     []models.Book
	LastError error
	Version   uint64
}

// CanEdit reports whether owner operations may be attempted
func (s Snapshot) CanEdit() bool { return s.Token != "" }

func (s Snapshot) clone() Snapshot {
	out := s
	if s.Bookshelf != nil {
		shelf := *s.Bookshelf
		out.Bookshelf = &shelf
	}
	out.Books = slices.Clone(s.Books)
	if out.Books == nil {
		out.Books = []models.Book{}
	}
	return out
}

// Store is the session state container
type Store struct {
	api    bookshelf.ClientInterface
	tokens tokenstore.Store
	log    *logger.Logger

	mu  sync.Mutex
	cur Snapshot
	// notifyMu is taken while mu is held, so deliveries run in version order
	notifyMu sync.Mutex
	gen      uint64
	subs     map[int]func(Snapshot)
	next     int
}

// New creates an anonymous session. Call Restore to pick up a stored token.
func New(api bookshelf.ClientInterface, tokens tokenstore.Store, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Get()
	}
	return &Store{
		api:    api,
		tokens: tokens,
		log:    log.With(map[string]interface{}{"component": "session"}),
		cur:    Snapshot{State: Anonymous, Books: []models.Book{}},
		subs:   map[int]func(Snapshot){},
	}
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.clone()
}

// CanEdit reports whether a token is held
func (s *Store) CanEdit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.Token != ""
}

// Subscribe registers fn to receive a snapshot after every transition, in
// version order. fn may read the store but must not change it. The returned
// function removes it.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// commit applies mutate under the lock, bumps the version and notifies
// subscribers outside the state lock. mutate returns false to abort.
func (s *Store) commit(mutate func(cur *Snapshot) bool) bool {
	s.mu.Lock()
	if !mutate(&s.cur) {
		s.mu.Unlock()
		return false
	}
	s.cur.Version++
	snap := s.cur.clone()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	return true
}

// current returns the held token and its generation
func (s *Store) current() (string, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.Token, s.gen
}

// Restore reads the stored token once and, if there is one, refreshes.
// A storage failure leaves the session anonymous.
func (s *Store) Restore(ctx context.Context) error {
	token, ok, err := s.tokens.Get(ctx)
	if err != nil {
		s.log.Warn("Failed to read stored edit token", map[string]interface{}{
			"error": err.Error(),
		})
		return fmt.Errorf("failed to restore session: %w", err)
	}
	if !ok || strings.TrimSpace(token) == "" {
		s.log.Debug("No stored edit token", nil)
		return nil
	}

	s.adopt(token)
	return s.Refresh(ctx)
}

// SetEditToken stores token, moves to Loading and refreshes. The refresh
// error, if any, is returned; the token is kept either way.
func (s *Store) SetEditToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	if err := s.tokens.Set(ctx, token); err != nil {
		s.log.Error("Failed to persist edit token", map[string]interface{}{
			"error": err.Error(),
		})
		return fmt.Errorf("failed to store edit token: %w", err)
	}

	s.adopt(token)
	return s.Refresh(ctx)
}

// adopt makes token the current one. A different token drops the cache.
func (s *Store) adopt(token string) {
	s.commit(func(cur *Snapshot) bool {
		if cur.Token != token {
			s.gen++
			*cur = Snapshot{Token: token, Books: []models.Book{}, Version: cur.Version}
		}
		cur.State = Loading
		cur.LastError = nil
		return true
	})
}

// Refresh fetches the bookshelf and its books for the held token. On
// failure the token and any cached data are kept and the error is returned.
func (s *Store) Refresh(ctx context.Context) error {
	token, gen := s.current()
	if token == "" {
		return bookshelf.ErrMissingToken
	}

	s.commit(func(cur *Snapshot) bool {
		if s.gen != gen || cur.State == Loading {
			return false
		}
		cur.State = Loading
		return true
	})

	var (
		shelf *models.Bookshelf
		books []models.Book
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		shelf, err = s.api.GetOwnBookshelf(gctx, token)
		return err
	})
	g.Go(func() error {
		var err error
		books, err = s.api.ListOwnBooks(gctx, token)
		return err
	})
	err := g.Wait()

	applied := s.commit(func(cur *Snapshot) bool {
		if s.gen != gen {
			return false
		}
		if err != nil {
			cur.LastError = err
			if cur.Bookshelf != nil {
				cur.State = Owner
			} else {
				cur.State = Unverified
			}
			return true
		}
		cur.State = Owner
		cur.Bookshelf = shelf
		cur.Books = books
		cur.LastError = nil
		return true
	})

	if !applied {
		s.log.Debug("Discarding refresh result for a replaced token", nil)
		return nil
	}
	if err != nil {
		s.log.Warn("Failed to refresh bookshelf", map[string]interface{}{
			"error":     err.Error(),
			"has_token": true,
		})
		return fmt.Errorf("failed to refresh bookshelf: %w", err)
	}

	s.log.Debug("Bookshelf refreshed", map[string]interface{}{
		"books": len(books),
	})
	return nil
}

// ClearBookshelf forgets the token, in memory and in storage, and resets the
// cache. The in-memory reset happens even if the storage delete fails.
func (s *Store) ClearBookshelf(ctx context.Context) error {
	s.commit(func(cur *Snapshot) bool {
		s.gen++
		*cur = Snapshot{State: Anonymous, Books: []models.Book{}, Version: cur.Version}
		return true
	})

	if err := s.tokens.Clear(ctx); err != nil {
		s.log.Error("Failed to remove stored edit token", map[string]interface{}{
			"error": err.Error(),
		})
		return fmt.Errorf("failed to remove stored edit token: %w", err)
	}
	s.log.Info("Session cleared", nil)
	return nil
}

package watchlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/iliyamo/movie-booking/internal/auth"
	"github.com/iliyamo/movie-booking/internal/logging"
	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/optimistic"
)

// ErrUserChanged reports a write abandoned because the signed in user
// changed before it was applied.
var ErrUserChanged = errors.New("watchlist: signed in user changed")

// Remote is the per-user persistence the store syncs with.
type Remote interface {
	GetWatchlist(ctx context.Context, userID string) ([]model.WatchlistEntry, error)
	SetWatchlistEntry(ctx context.Context, userID string, e model.WatchlistEntry) error
	DeleteWatchlistEntry(ctx context.Context, userID string, movieID int64) error
}

// Store is the remote synced watchlist bound to an auth source.  Local
// state changes before the remote write and is rolled back if it fails.
type Store struct {
	list

	auth   auth.Source
	remote Remote
	runner optimistic.Runner
	locks  optimistic.KeyedMutex
	logger *slog.Logger
	now    func() time.Time

	stateMu sync.Mutex
	loading int

	// syncMu guards gen and every list change that must not outlive an
	// auth transition.
	syncMu sync.Mutex
	gen    uint64

	unsubscribe func()
}

// NewStore creates a store and registers it on src: sign-in loads the new
// user's list, sign-out clears it.
func NewStore(src auth.Source, remote Remote, runner optimistic.Runner, logger *slog.Logger) *Store {
	s := &Store{auth: src, remote: remote, runner: runner, logger: logger, now: time.Now}
	s.unsubscribe = src.Subscribe(s.onAuthChange)
	return s
}

func (s *Store) onAuthChange(u *auth.User) {
	s.syncMu.Lock()
	s.gen++
	if u == nil {
		s.replace(nil)
	}
	s.syncMu.Unlock()

	if u == nil {
		return
	}
	ctx := context.Background()
	if s.runner.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runner.Timeout)
		defer cancel()
	}
	s.Load(ctx)
}

// Close detaches the store from its auth source.
func (s *Store) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Load replaces local state with the remote list of the current user.
// Signed out it leaves the list empty.  Failures are logged and leave the
// list as it was; a load overtaken by an auth transition is discarded.
func (s *Store) Load(ctx context.Context) {
	gen := s.generation()
	u := s.auth.Current()
	if u == nil {
		s.ifCurrent(gen, func() { s.replace(nil) })
		return
	}

	s.stateMu.Lock()
	s.loading++
	s.stateMu.Unlock()
	defer func() {
		s.stateMu.Lock()
		s.loading--
		s.stateMu.Unlock()
	}()

	items, err := s.remote.GetWatchlist(ctx, u.ID)
	if err != nil {
		logging.Or(ctx, s.logger).Error("load watchlist failed",
			slog.String("user_id", u.ID), slog.Any("err", err))
		return
	}

	s.ifCurrent(gen, func() { s.replace(items) })
}

func (s *Store) generation() uint64 {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	return s.gen
}

// ifCurrent runs fn unless an auth transition happened since gen was read,
// and reports whether it ran.
func (s *Store) ifCurrent(gen uint64, fn func()) bool {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	if gen != s.gen {
		return false
	}
	fn()
	return true
}

// Loading reports whether a load is in flight.
func (s *Store) Loading() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.loading > 0
}

// Items returns the list, most recently added first.
func (s *Store) Items() []model.WatchlistEntry { return s.snapshot() }

// Contains reports whether movieID is in the local list.
func (s *Store) Contains(movieID int64) bool { return s.contains(movieID) }

// Add puts movie at the front of the list and writes it remotely.  A movie
// that is already listed is left where it is and not written again.
func (s *Store) Add(ctx context.Context, movie model.MovieSummary) error {
	gen := s.generation()
	u := s.auth.Current()
	if u == nil {
		return auth.ErrUnauthenticated
	}
	unlock := s.locks.Lock(strconv.FormatInt(movie.ID, 10))
	defer unlock()

	entry := model.WatchlistEntry{MovieSummary: movie, AddedAt: s.now().UTC()}
	var applied, inserted bool
	err := s.runner.Run(ctx, optimistic.Op{
		Name: fmt.Sprintf("add movie %d to watchlist", movie.ID),
		Apply: func() {
			applied = s.ifCurrent(gen, func() { inserted = s.insertFront(entry) })
		},
		Attempt: func(ctx context.Context) error {
			switch {
			case !applied:
				return ErrUserChanged
			case !inserted:
				return nil
			}
			return s.remote.SetWatchlistEntry(ctx, u.ID, entry)
		},
		Compensate: func() {
			if inserted {
				s.ifCurrent(gen, func() { s.remove(movie.ID) })
			}
		},
	})
	if err != nil {
		logging.Or(ctx, s.logger).Warn("watchlist add rolled back",
			slog.String("user_id", u.ID), slog.Int64("movie_id", movie.ID), slog.Any("err", err))
	}
	return err
}

// Remove drops movieID locally and remotely.  On failure the entry is
// restored at its previous position.
func (s *Store) Remove(ctx context.Context, movieID int64) error {
	gen := s.generation()
	u := s.auth.Current()
	if u == nil {
		return auth.ErrUnauthenticated
	}
	unlock := s.locks.Lock(strconv.FormatInt(movieID, 10))
	defer unlock()

	var (
		applied bool
		idx     = -1
		removed model.WatchlistEntry
	)
	err := s.runner.Run(ctx, optimistic.Op{
		Name: fmt.Sprintf("remove movie %d from watchlist", movieID),
		Apply: func() {
			applied = s.ifCurrent(gen, func() { idx, removed = s.remove(movieID) })
		},
		Attempt: func(ctx context.Context) error {
			if !applied {
				return ErrUserChanged
			}
			return s.remote.DeleteWatchlistEntry(ctx, u.ID, movieID)
		},
		Compensate: func() {
			if idx >= 0 {
				s.ifCurrent(gen, func() { s.insertAt(idx, removed) })
			}
		},
	})
	if err != nil {
		logging.Or(ctx, s.logger).Warn("watchlist remove rolled back",
			slog.String("user_id", u.ID), slog.Int64("movie_id", movieID), slog.Any("err", err))
	}
	return err
}

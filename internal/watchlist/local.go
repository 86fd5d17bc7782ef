package watchlist

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/optimistic"
)

// LocalEntryName is the name of the entry the local watchlist lives in.
const LocalEntryName = "watchlist-storage"

// EntryStore persists named JSON entries.
type EntryStore interface {
	Load(name string, v any) (bool, error)
	Save(name string, v any) error
}

type localEntry struct {
	Watchlist []model.WatchlistEntry `json:"watchlist"`
}

// Local is the watchlist variant without authentication.  Every mutation
// is persisted before it returns; a failed persist undoes it.
type Local struct {
	list

	writeMu sync.Mutex
	store   EntryStore
	logger  *slog.Logger
	now     func() time.Time
}

// NewLocal restores the list from store.  An unreadable entry starts empty
// and is logged.
func NewLocal(store EntryStore, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Local{store: store, logger: logger, now: time.Now}
	var saved localEntry
	found, err := store.Load(LocalEntryName, &saved)
	switch {
	case err != nil:
		logger.Error("restore local watchlist failed", slog.Any("err", err))
	case found:
		l.items = dedupe(saved.Watchlist)
	}
	return l
}

// Items returns the list, most recently added first.
func (l *Local) Items() []model.WatchlistEntry { return l.snapshot() }

// Loading is always false; the local entry is read at construction.
func (l *Local) Loading() bool { return false }

// Contains reports whether movieID is listed.
func (l *Local) Contains(movieID int64) bool { return l.contains(movieID) }

// Add puts movie at the front of the list unless it is already listed.  A
// failed persist is reported as *optimistic.WriteError.
func (l *Local) Add(_ context.Context, movie model.MovieSummary) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if !l.insertFront(model.WatchlistEntry{MovieSummary: movie, AddedAt: l.now().UTC()}) {
		return nil
	}
	if err := l.persist(); err != nil {
		l.remove(movie.ID)
		return &optimistic.WriteError{Op: fmt.Sprintf("add movie %d to local watchlist", movie.ID), Err: err}
	}
	return nil
}

// Remove drops movieID.  Removing a movie that is not listed is a no-op.
func (l *Local) Remove(_ context.Context, movieID int64) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	idx, removed := l.remove(movieID)
	if idx < 0 {
		return nil
	}
	if err := l.persist(); err != nil {
		l.insertAt(idx, removed)
		return &optimistic.WriteError{Op: fmt.Sprintf("remove movie %d from local watchlist", movieID), Err: err}
	}
	return nil
}

func (l *Local) persist() error {
	if err := l.store.Save(LocalEntryName, localEntry{Watchlist: l.snapshot()}); err != nil {
		l.logger.Error("persist local watchlist failed", slog.Any("err", err))
		return err
	}
	return nil
}

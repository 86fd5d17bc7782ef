// Package session keeps the per client state containers (auth, seat
// selection, watchlist) keyed by an opaque client session id.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/iliyamo/movie-booking/internal/auth"
	"github.com/iliyamo/movie-booking/internal/booking"
	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/watchlist"
)

// Watchlist is implemented by both watchlist.Store and watchlist.Local.
type Watchlist interface {
	Items() []model.WatchlistEntry
	Contains(movieID int64) bool
	Loading() bool
	Add(ctx context.Context, movie model.MovieSummary) error
	Remove(ctx context.Context, movieID int64) error
	Subscribe(fn watchlist.Listener) func()
}

// Session is the state of one client.
type Session struct {
	ID        string
	Auth      *auth.Session
	Selection *booking.Selection
	Watchlist Watchlist

	mu       sync.Mutex
	lastSeen time.Time
	release  func()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// WatchlistFactory builds the watchlist of a new session.  The returned
// release func runs when the session is dropped.
type WatchlistFactory func(id string, a *auth.Session) (Watchlist, func(), error)

// Manager owns every live session.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	ttl       time.Duration
	factory   WatchlistFactory
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
	scheduler gocron.Scheduler
}

// NewManager returns an empty manager.  Sessions idle longer than ttl are
// dropped by Sweep.
func NewManager(ttl time.Duration, factory WatchlistFactory, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		factory:  factory,
		logger:   logger,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// Create starts a new signed-out session.
func (m *Manager) Create() (*Session, error) {
	id := m.newID()
	a := auth.NewSession()
	wl, release, err := m.factory(id, a)
	if err != nil {
		return nil, fmt.Errorf("create session watchlist: %w", err)
	}
	s := &Session{
		ID:        id,
		Auth:      a,
		Selection: booking.NewSelection(),
		Watchlist: wl,
		lastSeen:  m.now(),
		release:   release,
	}
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return s, nil
}

// Get returns the live session id and marks it as used.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	s.touch(m.now())
	return s, true
}

// Remove drops session id.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok && s.release != nil {
		s.release()
	}
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops sessions idle longer than the ttl and reports how many.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.ttl)
	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		if s.release != nil {
			s.release()
		}
	}
	if len(expired) > 0 {
		m.logger.Info("swept idle sessions", slog.Int("count", len(expired)))
	}
	return len(expired)
}

// StartSweeper runs Sweep every interval until StopSweeper.
func (m *Manager) StartSweeper(interval time.Duration) error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	if _, err := s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { m.Sweep() }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		_ = s.Shutdown()
		return fmt.Errorf("schedule session sweep: %w", err)
	}
	s.Start()
	m.scheduler = s
	m.logger.Info("session sweeper started", slog.Duration("interval", interval), slog.Duration("ttl", m.ttl))
	return nil
}

// StopSweeper stops the sweep job, if running.
func (m *Manager) StopSweeper() error {
	if m.scheduler == nil {
		return nil
	}
	err := m.scheduler.Shutdown()
	m.scheduler = nil
	return err
}

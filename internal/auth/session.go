// Package auth holds the authentication state of one client session and
// notifies registered listeners when that state changes.
package auth

import (
	"errors"
	"sync"
)

// ErrUnauthenticated is returned when a mutation needs a signed-in user and
// there is none.  It is a precondition failure: no state has been touched.
var ErrUnauthenticated = errors.New("auth: not signed in")

// User is the signed-in principal.
type User struct {
	ID          string
	Email       string
	DisplayName string
}

// Listener observes auth transitions.  user is nil on sign-out.
type Listener func(user *User)

// Source is the read side consumed by state containers.
type Source interface {
	Current() *User
	Subscribe(fn Listener) (unsubscribe func())
}

// Session tracks the current user of one client session.  Listeners run
// synchronously on the goroutine that caused the transition, in
// registration order, after the new user is visible through Current.
type Session struct {
	mu        sync.RWMutex
	user      *User
	notifyMu  sync.Mutex
	nextID    int
	listeners []listenerEntry
}

type listenerEntry struct {
	id int
	fn Listener
}

// NewSession returns a signed-out session.
func NewSession() *Session { return &Session{} }

// Current returns a copy of the signed-in user, or nil.
func (s *Session) Current() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// SignIn makes u the current user.  Signing in the user that is already
// current is not a transition and notifies nobody.
func (s *Session) SignIn(u User) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.user != nil && s.user.ID == u.ID {
		s.user = &u
		s.mu.Unlock()
		return
	}
	s.user = &u
	s.mu.Unlock()

	cp := u
	s.notify(&cp)
}

// SignOut clears the current user.  It is a no-op when already signed out.
func (s *Session) SignOut() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return
	}
	s.user = nil
	s.mu.Unlock()

	s.notify(nil)
}

// Subscribe registers fn for future transitions.
func (s *Session) Subscribe(fn Listener) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Session) notify(u *User) {
	s.mu.RLock()
	ls := make([]listenerEntry, len(s.listeners))
	copy(ls, s.listeners)
	s.mu.RUnlock()

	for _, l := range ls {
		l.fn(u)
	}
}

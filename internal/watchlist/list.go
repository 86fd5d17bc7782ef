// Package watchlist keeps the ordered watchlist of one client session,
// either synced to the remote store of the signed in user or persisted
// to a local entry.
package watchlist

import (
	"sync"

	"github.com/iliyamo/movie-booking/internal/model"
)

// Listener receives a copy of the list after every change.
type Listener func(items []model.WatchlistEntry)

// list is the shared, mutex guarded state of both watchlist variants.
// Entries are unique by movie id.
type list struct {
	mu    sync.Mutex
	items []model.WatchlistEntry

	lmu       sync.Mutex
	nextID    int
	listeners []listEntry
}

type listEntry struct {
	id int
	fn Listener
}

func (l *list) snapshot() []model.WatchlistEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return copyItems(l.items)
}

func (l *list) contains(movieID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return indexOf(l.items, movieID) >= 0
}

// insertFront adds e at index 0 unless its movie is already present.
func (l *list) insertFront(e model.WatchlistEntry) (inserted bool) {
	l.mu.Lock()
	if indexOf(l.items, e.ID) >= 0 {
		l.mu.Unlock()
		return false
	}
	l.items = append([]model.WatchlistEntry{e}, l.items...)
	snap := copyItems(l.items)
	l.mu.Unlock()
	l.notify(snap)
	return true
}

// insertAt puts e back at index i, clamped to the current length.
func (l *list) insertAt(i int, e model.WatchlistEntry) {
	l.mu.Lock()
	if indexOf(l.items, e.ID) >= 0 {
		l.mu.Unlock()
		return
	}
	if i > len(l.items) {
		i = len(l.items)
	}
	next := make([]model.WatchlistEntry, 0, len(l.items)+1)
	next = append(next, l.items[:i]...)
	next = append(next, e)
	next = append(next, l.items[i:]...)
	l.items = next
	snap := copyItems(l.items)
	l.mu.Unlock()
	l.notify(snap)
}

// remove drops movieID and reports where it was, or -1.
func (l *list) remove(movieID int64) (int, model.WatchlistEntry) {
	l.mu.Lock()
	i := indexOf(l.items, movieID)
	if i < 0 {
		l.mu.Unlock()
		return -1, model.WatchlistEntry{}
	}
	e := l.items[i]
	l.items = append(l.items[:i:i], l.items[i+1:]...)
	snap := copyItems(l.items)
	l.mu.Unlock()
	l.notify(snap)
	return i, e
}

func (l *list) replace(items []model.WatchlistEntry) {
	l.mu.Lock()
	l.items = dedupe(items)
	snap := copyItems(l.items)
	l.mu.Unlock()
	l.notify(snap)
}

// Subscribe registers fn and returns a function that removes it.
func (l *list) Subscribe(fn Listener) func() {
	l.lmu.Lock()
	l.nextID++
	id := l.nextID
	l.listeners = append(l.listeners, listEntry{id: id, fn: fn})
	l.lmu.Unlock()

	return func() {
		l.lmu.Lock()
		defer l.lmu.Unlock()
		for i, e := range l.listeners {
			if e.id == id {
				l.listeners = append(l.listeners[:i:i], l.listeners[i+1:]...)
				return
			}
		}
	}
}

func (l *list) notify(items []model.WatchlistEntry) {
	l.lmu.Lock()
	ls := make([]listEntry, len(l.listeners))
	copy(ls, l.listeners)
	l.lmu.Unlock()
	for _, e := range ls {
		e.fn(copyItems(items))
	}
}

func indexOf(items []model.WatchlistEntry, movieID int64) int {
	for i, it := range items {
		if it.ID == movieID {
			return i
		}
	}
	return -1
}

func dedupe(items []model.WatchlistEntry) []model.WatchlistEntry {
	out := make([]model.WatchlistEntry, 0, len(items))
	seen := make(map[int64]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it.ID]; ok {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out
}

func copyItems(items []model.WatchlistEntry) []model.WatchlistEntry {
	out := make([]model.WatchlistEntry, len(items))
	copy(out, items)
	return out
}

package booking

import (
	"sync"

	"github.com/iliyamo/movie-booking/internal/model"
)

// Listener receives a copy of the selection after every change.
type Listener func(seats []model.SeatID)

// Selection is the ordered set of seats chosen in one client session.
// It performs no occupied or bounds checks; callers gate with SeatMap.
type Selection struct {
	mu    sync.Mutex
	seats []model.SeatID

	lmu       sync.Mutex
	nextID    int
	listeners []selectionListener
}

type selectionListener struct {
	id int
	fn Listener
}

// NewSelection returns an empty selection.
func NewSelection() *Selection { return &Selection{} }

// Toggle removes seat if present, otherwise appends it.  It reports whether
// the seat is selected afterwards.
func (s *Selection) Toggle(seat model.SeatID) bool {
	s.mu.Lock()
	selected := true
	if i := indexOf(s.seats, seat); i >= 0 {
		s.seats = append(s.seats[:i:i], s.seats[i+1:]...)
		selected = false
	} else {
		s.seats = append(s.seats, seat)
	}
	snap := copySeats(s.seats)
	s.mu.Unlock()

	s.notify(snap)
	return selected
}

// Clear empties the selection.  Subscribers are notified even when it was
// already empty.
func (s *Selection) Clear() {
	s.mu.Lock()
	s.seats = nil
	s.mu.Unlock()
	s.notify([]model.SeatID{})
}

// take empties the selection and returns what it held, atomically.
func (s *Selection) take() []model.SeatID {
	s.mu.Lock()
	prev := s.seats
	s.seats = nil
	s.mu.Unlock()
	s.notify([]model.SeatID{})
	return prev
}

// restore replaces the selection with seats.
func (s *Selection) restore(seats []model.SeatID) {
	s.mu.Lock()
	s.seats = copySeats(seats)
	snap := copySeats(s.seats)
	s.mu.Unlock()
	s.notify(snap)
}

// Seats returns a copy of the selection in insertion order.
func (s *Selection) Seats() []model.SeatID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySeats(s.seats)
}

// Contains reports whether seat is selected.
func (s *Selection) Contains(seat model.SeatID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return indexOf(s.seats, seat) >= 0
}

// Len reports the number of selected seats.
func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seats)
}

// Subscribe registers fn and returns a function that removes it.
func (s *Selection) Subscribe(fn Listener) func() {
	s.lmu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, selectionListener{id: id, fn: fn})
	s.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lmu.Lock()
			defer s.lmu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Selection) notify(seats []model.SeatID) {
	s.lmu.Lock()
	ls := make([]selectionListener, len(s.listeners))
	copy(ls, s.listeners)
	s.lmu.Unlock()
	for _, l := range ls {
		l.fn(copySeats(seats))
	}
}

func indexOf(seats []model.SeatID, seat model.SeatID) int {
	for i, s := range seats {
		if s == seat {
			return i
		}
	}
	return -1
}

func copySeats(seats []model.SeatID) []model.SeatID {
	out := make([]model.SeatID, len(seats))
	copy(out, seats)
	return out
}

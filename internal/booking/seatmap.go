// Package booking holds the seat map, the per-session seat selection and the
// checkout flow that turns a selection into a persisted booking.
package booking

import (
	"errors"

	"github.com/iliyamo/movie-booking/internal/model"
)

var (
	// ErrInvalidSeat is returned for a seat id that is not on the map.
	ErrInvalidSeat = errors.New("seat is not on the seat map")
	// ErrSeatOccupied is returned when toggling a seat from the occupied set.
	ErrSeatOccupied = errors.New("seat is occupied")
)

const (
	DefaultRows        = 8
	DefaultSeatsPerRow = 10
)

// DefaultOccupied is the fixed occupied set of the auditorium.
var DefaultOccupied = []model.SeatID{"A5", "A6", "B3", "B4", "C7", "D5", "D6", "E4", "E5", "E6"}

// SeatMap is an immutable grid of seats with a static occupied set.
type SeatMap struct {
	rows        int
	seatsPerRow int
	occupied    map[model.SeatID]struct{}
}

// SeatView is one rendered cell of the seat map.
type SeatView struct {
	ID     model.SeatID     `json:"id"`
	Number int              `json:"number"`
	Status model.SeatStatus `json:"status"`
}

// RowView is one rendered row of the seat map.
type RowView struct {
	Row   string     `json:"row"`
	Seats []SeatView `json:"seats"`
}

// NewSeatMap builds a map of rows×seatsPerRow seats.  Occupied ids that fall
// outside the grid are ignored.
func NewSeatMap(rows, seatsPerRow int, occupied []model.SeatID) *SeatMap {
	m := &SeatMap{rows: rows, seatsPerRow: seatsPerRow, occupied: make(map[model.SeatID]struct{}, len(occupied))}
	for _, s := range occupied {
		if m.Valid(s) {
			m.occupied[s] = struct{}{}
		}
	}
	return m
}

// DefaultSeatMap returns the 8×10 auditorium with DefaultOccupied.
func DefaultSeatMap() *SeatMap {
	return NewSeatMap(DefaultRows, DefaultSeatsPerRow, DefaultOccupied)
}

// Valid reports whether seat lies on the grid.
func (m *SeatMap) Valid(seat model.SeatID) bool {
	row, n, err := seat.Parse()
	if err != nil {
		return false
	}
	return row < m.rows && n <= m.seatsPerRow && model.NewSeatID(row, n) == seat
}

// IsOccupied reports whether seat is in the occupied set.
func (m *SeatMap) IsOccupied(seat model.SeatID) bool {
	_, ok := m.occupied[seat]
	return ok
}

// Selectable returns nil when seat may be toggled.
func (m *SeatMap) Selectable(seat model.SeatID) error {
	if !m.Valid(seat) {
		return ErrInvalidSeat
	}
	if m.IsOccupied(seat) {
		return ErrSeatOccupied
	}
	return nil
}

// Status derives the rendered status of seat.  Occupied wins over selected.
func (m *SeatMap) Status(seat model.SeatID, selected func(model.SeatID) bool) model.SeatStatus {
	switch {
	case m.IsOccupied(seat):
		return model.SeatOccupied
	case selected != nil && selected(seat):
		return model.SeatSelected
	default:
		return model.SeatAvailable
	}
}

// Layout renders every row in order with per-seat status.
func (m *SeatMap) Layout(selected func(model.SeatID) bool) []RowView {
	rows := make([]RowView, 0, m.rows)
	for r := 0; r < m.rows; r++ {
		rv := RowView{Row: string(rune('A' + r)), Seats: make([]SeatView, 0, m.seatsPerRow)}
		for n := 1; n <= m.seatsPerRow; n++ {
			id := model.NewSeatID(r, n)
			rv.Seats = append(rv.Seats, SeatView{ID: id, Number: n, Status: m.Status(id, selected)})
		}
		rows = append(rows, rv)
	}
	return rows
}

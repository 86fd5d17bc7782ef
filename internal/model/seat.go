package model

import (
	"fmt"
	"strconv"
)

// SeatID identifies a seat by row letter and 1-based seat number, e.g. "C7".
// It is derived from grid position and never mutated.
type SeatID string

// SeatStatus is the rendered state of one seat on the seat map.  It is not
// stored: occupied comes from the configured occupied set, selected from the
// current selection, available is the default.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatSelected  SeatStatus = "selected"
	SeatOccupied  SeatStatus = "occupied"
)

// NewSeatID builds the identifier for a zero-based row index and a 1-based
// seat number.
func NewSeatID(row, number int) SeatID {
	return SeatID(fmt.Sprintf("%c%d", 'A'+row, number))
}

// Parse splits the identifier into a zero-based row index and a seat number.
func (s SeatID) Parse() (row, number int, err error) {
	if len(s) < 2 || s[0] < 'A' || s[0] > 'Z' {
		return 0, 0, fmt.Errorf("invalid seat id %q", string(s))
	}
	n, err := strconv.Atoi(string(s[1:]))
	if err != nil || n < 1 {
		return 0, 0, fmt.Errorf("invalid seat id %q", string(s))
	}
	return int(s[0] - 'A'), n, nil
}

func (s SeatID) String() string { return string(s) }

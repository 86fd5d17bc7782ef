package model

import (
	"fmt"
	"strings"
	"time"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingUpcoming  BookingStatus = "upcoming"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking is a confirmed checkout persisted under its user.
//
// Fields:
//  ID         – client generated, unique per user.
//  Seats      – seats in selection order.
//  Date, Time – show date and time as chosen on the booking page.
//  TotalPrice – len(Seats) × unit price, in IDR.
//  CreatedAt  – assigned by the store at write time.
type Booking struct {
	ID         string        `json:"id"`
	MovieID    int64         `json:"movie_id"`
	MovieTitle string        `json:"movie_title"`
	PosterPath string        `json:"poster_path"`
	Seats      []SeatID      `json:"seats"`
	Date       string        `json:"date"`
	Time       string        `json:"time"`
	Theater    string        `json:"theater"`
	TotalPrice int64         `json:"total_price"`
	CreatedAt  time.Time     `json:"created_at"`
	Status     BookingStatus `json:"status"`
}

// TicketContent is the payload encoded into the booking's QR ticket.
func (b Booking) TicketContent() string {
	seats := make([]string, len(b.Seats))
	for i, s := range b.Seats {
		seats[i] = string(s)
	}
	return fmt.Sprintf("BOOKING:%s|MOVIE:%d|SEATS:%s|SHOW:%s %s|THEATER:%s",
		b.ID, b.MovieID, strings.Join(seats, ","), b.Date, b.Time, b.Theater)
}

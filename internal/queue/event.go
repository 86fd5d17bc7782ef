// Package queue defines message payloads exchanged over the message broker
// and the background consumer that processes them.
package queue

const (
	BookingConfirmedQueue = "booking.confirmed"
	BookingCancelledQueue = "booking.cancelled"
)

// BookingConfirmedEvent is published after a booking is persisted.  It
// carries enough for downstream consumers to log or notify without reading
// the primary database.
type BookingConfirmedEvent struct {
	BookingID   string   `json:"booking_id"`
	UserID      string   `json:"user_id"`
	UserEmail   string   `json:"user_email,omitempty"`
	MovieID     int64    `json:"movie_id"`
	MovieTitle  string   `json:"movie_title"`
	Theater     string   `json:"theater"`
	Date        string   `json:"date"`
	Time        string   `json:"time"`
	Seats       []string `json:"seats"`
	TotalPrice  int64    `json:"total_price"`
	ConfirmedAt string   `json:"confirmed_at"`
}

// BookingCancelledEvent is published after a booking record is removed.
type BookingCancelledEvent struct {
	BookingID   string   `json:"booking_id"`
	UserID      string   `json:"user_id"`
	UserEmail   string   `json:"user_email,omitempty"`
	MovieTitle  string   `json:"movie_title"`
	Seats       []string `json:"seats"`
	CancelledAt string   `json:"cancelled_at"`
}

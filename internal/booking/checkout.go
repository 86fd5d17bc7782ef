package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/iliyamo/movie-booking/internal/auth"
	"github.com/iliyamo/movie-booking/internal/logging"
	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/optimistic"
	"github.com/iliyamo/movie-booking/internal/queue"
)

// ErrEmptySelection is returned by Confirm when no seat is selected.
var ErrEmptySelection = errors.New("no seats selected")

// Creator persists a booking under a user.  The returned booking carries
// the store-assigned creation time.
type Creator interface {
	CreateBooking(ctx context.Context, userID string, b model.Booking) (model.Booking, error)
}

// EventPublisher announces booking lifecycle events.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
	PublishBookingCancelled(ctx context.Context, ev queue.BookingCancelledEvent) error
}

// Request describes the show a selection is being booked for.
type Request struct {
	MovieID    int64
	MovieTitle string
	PosterPath string
	Date       string
	Time       string
}

// Receipt is the outcome of a successful checkout.
type Receipt struct {
	Booking   model.Booking `json:"booking"`
	Persisted bool          `json:"persisted"`
}

// Checkout turns a selection into a booking.  Without a Creator it only
// computes the total and clears the selection.
type Checkout struct {
	UnitPrice int64
	Theater   string
	Creator   Creator
	Publisher EventPublisher
	Runner    optimistic.Runner
	Logger    *slog.Logger

	Now   func() time.Time
	NewID func(title string) string
}

// NewBookingID returns "<slug(title)>-<8 hex chars>".
func NewBookingID(title string) string {
	s := slug.Make(title)
	if s == "" {
		s = "booking"
	}
	return s + "-" + uuid.New().String()[:8]
}

// Total is the price of n seats.
func (c *Checkout) Total(n int) int64 { return int64(n) * c.UnitPrice }

// Confirm books the current selection of sel for user.  The selection is
// taken before the remote create, and the booked seats are exactly the
// taken ones; a failed create restores them as they were.
func (c *Checkout) Confirm(ctx context.Context, sel *Selection, user *auth.User, req Request) (Receipt, error) {
	if sel.Len() == 0 {
		return Receipt{}, ErrEmptySelection
	}
	if c.Creator != nil && user == nil {
		return Receipt{}, auth.ErrUnauthenticated
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	newID := NewBookingID
	if c.NewID != nil {
		newID = c.NewID
	}

	b := model.Booking{
		ID:         newID(req.MovieTitle),
		MovieID:    req.MovieID,
		MovieTitle: req.MovieTitle,
		PosterPath: req.PosterPath,
		Date:       req.Date,
		Time:       req.Time,
		Theater:    c.Theater,
		CreatedAt:  now().UTC(),
		Status:     model.BookingUpcoming,
	}
	fill := func(seats []model.SeatID) {
		b.Seats = copySeats(seats)
		b.TotalPrice = c.Total(len(seats))
	}

	if c.Creator == nil {
		taken := sel.take()
		if len(taken) == 0 {
			return Receipt{}, ErrEmptySelection
		}
		fill(taken)
		return Receipt{Booking: b}, nil
	}

	var (
		taken   []model.SeatID
		created model.Booking
	)
	err := c.Runner.Run(ctx, optimistic.Op{
		Name: "create booking",
		Apply: func() {
			taken = sel.take()
			fill(taken)
		},
		Attempt: func(ctx context.Context) error {
			if len(taken) == 0 {
				return ErrEmptySelection
			}
			var err error
			created, err = c.Creator.CreateBooking(ctx, user.ID, b)
			return err
		},
		Compensate: func() { sel.restore(taken) },
	})
	if err != nil {
		logging.Or(ctx, c.Logger).Warn("checkout rolled back",
			slog.String("user_id", user.ID), slog.Int64("movie_id", req.MovieID), slog.Any("err", err))
		return Receipt{}, err
	}

	c.publishConfirmed(ctx, user, created)
	return Receipt{Booking: created, Persisted: true}, nil
}

func (c *Checkout) publishConfirmed(ctx context.Context, user *auth.User, b model.Booking) {
	if c.Publisher == nil {
		return
	}
	ev := queue.BookingConfirmedEvent{
		BookingID:   b.ID,
		UserID:      user.ID,
		UserEmail:   user.Email,
		MovieID:     b.MovieID,
		MovieTitle:  b.MovieTitle,
		Theater:     b.Theater,
		Date:        b.Date,
		Time:        b.Time,
		Seats:       seatStrings(b.Seats),
		TotalPrice:  b.TotalPrice,
		ConfirmedAt: b.CreatedAt.UTC().Format(time.RFC3339),
	}
	if err := c.Publisher.PublishBookingConfirmed(ctx, ev); err != nil {
		logging.Or(ctx, c.Logger).Warn("publish booking confirmed failed",
			slog.String("booking_id", b.ID), slog.Any("err", err))
	}
}

func seatStrings(seats []model.SeatID) []string {
	out := make([]string, len(seats))
	for i, s := range seats {
		out[i] = s.String()
	}
	return out
}

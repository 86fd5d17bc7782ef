package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/movie-booking/internal/auth"
	"github.com/iliyamo/movie-booking/internal/logging"
	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/queue"
)

// Store reads and removes persisted bookings of one user.
type Store interface {
	GetBookings(ctx context.Context, userID string) ([]model.Booking, error)
	GetBooking(ctx context.Context, userID, bookingID string) (model.Booking, error)
	CancelBooking(ctx context.Context, userID, bookingID string) error
}

// TicketEncoder renders ticket content as a PNG image.
type TicketEncoder func(content string, size int) ([]byte, error)

// Service exposes the booking history of the signed in user.
type Service struct {
	Store     Store
	Publisher EventPublisher
	Encode    TicketEncoder
	Logger    *slog.Logger
	Now       func() time.Time
}

// List returns the user's bookings, newest first.
func (s *Service) List(ctx context.Context, user *auth.User) ([]model.Booking, error) {
	if user == nil {
		return nil, auth.ErrUnauthenticated
	}
	out, err := s.Store.GetBookings(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return out, nil
}

// Get returns one booking of the user.
func (s *Service) Get(ctx context.Context, user *auth.User, bookingID string) (model.Booking, error) {
	if user == nil {
		return model.Booking{}, auth.ErrUnauthenticated
	}
	b, err := s.Store.GetBooking(ctx, user.ID, bookingID)
	if err != nil {
		return model.Booking{}, fmt.Errorf("get booking %s: %w", bookingID, err)
	}
	return b, nil
}

// Cancel removes the booking record and announces the cancellation.
func (s *Service) Cancel(ctx context.Context, user *auth.User, bookingID string) error {
	b, err := s.Get(ctx, user, bookingID)
	if err != nil {
		return err
	}
	if err := s.Store.CancelBooking(ctx, user.ID, bookingID); err != nil {
		return fmt.Errorf("cancel booking %s: %w", bookingID, err)
	}
	if s.Publisher == nil {
		return nil
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	ev := queue.BookingCancelledEvent{
		BookingID:   b.ID,
		UserID:      user.ID,
		UserEmail:   user.Email,
		MovieTitle:  b.MovieTitle,
		Seats:       seatStrings(b.Seats),
		CancelledAt: now().UTC().Format(time.RFC3339),
	}
	if err := s.Publisher.PublishBookingCancelled(ctx, ev); err != nil {
		logging.Or(ctx, s.Logger).Warn("publish booking cancelled failed",
			slog.String("booking_id", b.ID), slog.Any("err", err))
	}
	return nil
}

// Ticket renders the QR ticket of one booking as PNG.
func (s *Service) Ticket(ctx context.Context, user *auth.User, bookingID string, size int) ([]byte, error) {
	b, err := s.Get(ctx, user, bookingID)
	if err != nil {
		return nil, err
	}
	if s.Encode == nil {
		return nil, fmt.Errorf("ticket encoder not configured")
	}
	png, err := s.Encode(b.TicketContent(), size)
	if err != nil {
		return nil, fmt.Errorf("encode ticket %s: %w", bookingID, err)
	}
	return png, nil
}

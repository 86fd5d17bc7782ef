package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iliyamo/movie-booking/internal/model"
)

// BookingRepo stores users/{userId}/bookings/{bookingId}.
type BookingRepo struct{ DB *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{DB: db} }

const bookingColumns = "id, movie_id, movie_title, poster_path, seats, show_date, show_time, theater, total_price, status, created_at"

// CreateBooking inserts b under userID and returns it with the server
// assigned created_at.
func (r *BookingRepo) CreateBooking(ctx context.Context, userID string, b model.Booking) (model.Booking, error) {
	seats, err := json.Marshal(b.Seats)
	if err != nil {
		return model.Booking{}, fmt.Errorf("encode seats: %w", err)
	}
	if b.Status == "" {
		b.Status = model.BookingUpcoming
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO bookings (user_id, id, movie_id, movie_title, poster_path, seats, show_date, show_time, theater, total_price, status, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,UTC_TIMESTAMP(6))`,
		userID, b.ID, b.MovieID, b.MovieTitle, b.PosterPath, string(seats), b.Date, b.Time, b.Theater, b.TotalPrice, string(b.Status))
	if err != nil {
		if isDuplicate(err) {
			return model.Booking{}, fmt.Errorf("booking %s: %w", b.ID, ErrConflict)
		}
		return model.Booking{}, fmt.Errorf("create booking: %w", err)
	}
	return r.GetBooking(ctx, userID, b.ID)
}

// GetBookings returns the user's bookings, newest first.
func (r *BookingRepo) GetBookings(ctx context.Context, userID string) ([]model.Booking, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE user_id=? ORDER BY created_at DESC, id", userID)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetBooking returns one booking of the user.
func (r *BookingRepo) GetBooking(ctx context.Context, userID, bookingID string) (model.Booking, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE user_id=? AND id=? LIMIT 1", userID, bookingID)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrNotFound
	}
	return b, err
}

// CancelBooking deletes the booking record.
func (r *BookingRepo) CancelBooking(ctx context.Context, userID, bookingID string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM bookings WHERE user_id=? AND id=?", userID, bookingID)
	if err != nil {
		return fmt.Errorf("cancel booking: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBooking(s scanner) (model.Booking, error) {
	var (
		b      model.Booking
		seats  []byte
		status string
	)
	if err := s.Scan(&b.ID, &b.MovieID, &b.MovieTitle, &b.PosterPath, &seats, &b.Date, &b.Time,
		&b.Theater, &b.TotalPrice, &status, &b.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Booking{}, err
		}
		return model.Booking{}, fmt.Errorf("scan booking: %w", err)
	}
	if err := json.Unmarshal(seats, &b.Seats); err != nil {
		return model.Booking{}, fmt.Errorf("decode seats of %s: %w", b.ID, err)
	}
	b.Status = model.BookingStatus(status)
	return b, nil
}

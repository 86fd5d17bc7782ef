package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/auth"
	"github.com/iliyamo/movie-booking/internal/booking"
	"github.com/iliyamo/movie-booking/internal/logging"
	"github.com/iliyamo/movie-booking/internal/optimistic"
	"github.com/iliyamo/movie-booking/internal/repository"
	"github.com/iliyamo/movie-booking/internal/tmdb"
)

// statusFor maps domain errors to HTTP status and a short machine code.
func statusFor(err error) (int, string) {
	var (
		vErr   *tmdb.ValidationError
		apiErr *tmdb.APIError
	)
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, booking.ErrEmptySelection):
		return http.StatusBadRequest, "empty_selection"
	case errors.Is(err, booking.ErrInvalidSeat):
		return http.StatusBadRequest, "invalid_seat"
	case errors.Is(err, booking.ErrSeatOccupied):
		return http.StatusConflict, "seat_occupied"
	case errors.Is(err, repository.ErrNotFound), tmdb.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, "conflict"
	case optimistic.IsWriteError(err):
		return http.StatusServiceUnavailable, "remote_write_failed"
	case errors.As(err, &vErr):
		return http.StatusBadGateway, "validation_failed"
	case errors.As(err, &apiErr):
		return http.StatusBadGateway, "upstream_error"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// writeError renders err as {"error": code, "message": ...}.  Internal
// errors are logged and their message withheld.
func writeError(c echo.Context, err error) error {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logging.Or(c.Request().Context(), nil).Error("request failed",
			slog.String("path", c.Request().URL.Path), slog.Any("err", err))
		msg = "internal error"
	}
	return c.JSON(status, echo.Map{"error": code, "message": msg})
}

package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/auth"
	"github.com/iliyamo/movie-booking/internal/booking"
	"github.com/iliyamo/movie-booking/internal/middleware"
	"github.com/iliyamo/movie-booking/internal/model"
)

// BookingHandler serves the seat map, the selection of the client session,
// checkout and booking history.  Service is nil when no persistence backend
// is wired; history endpoints then answer 404.
type BookingHandler struct {
	Seats    *booking.SeatMap
	Checkout *booking.Checkout
	Service  *booking.Service
	Movies   MetadataClient
}

type selectionResp struct {
	MovieID   int64             `json:"movie_id"`
	Rows      []booking.RowView `json:"rows"`
	Selected  []model.SeatID    `json:"selected"`
	UnitPrice int64             `json:"unit_price"`
	Total     int64             `json:"total"`
}

type checkoutReq struct {
	Date       string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time       string `json:"time" validate:"omitempty,datetime=15:04"`
	MovieTitle string `json:"movie_title" validate:"omitempty,max=512"`
	PosterPath string `json:"poster_path" validate:"omitempty,max=512"`
}

func (h *BookingHandler) view(movieID int64, sel *booking.Selection) selectionResp {
	seats := sel.Seats()
	return selectionResp{
		MovieID:   movieID,
		Rows:      h.Seats.Layout(sel.Contains),
		Selected:  seats,
		UnitPrice: h.Checkout.UnitPrice,
		Total:     h.Checkout.Total(len(seats)),
	}
}

// SeatMap: GET /v1/movies/:id/seats
func (h *BookingHandler) SeatMap(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	s := middleware.SessionFrom(c)
	return c.JSON(http.StatusOK, h.view(id, s.Selection))
}

// Toggle: POST /v1/movies/:id/seats/:seat/toggle.  Occupied and off-map
// seats are rejected before the selection is touched.
func (h *BookingHandler) Toggle(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	seat := model.SeatID(strings.ToUpper(c.Param("seat")))
	if err := h.Seats.Selectable(seat); err != nil {
		return writeError(c, err)
	}
	s := middleware.SessionFrom(c)
	s.Selection.Toggle(seat)
	return c.JSON(http.StatusOK, h.view(id, s.Selection))
}

// ClearSelection: DELETE /v1/selection
func (h *BookingHandler) ClearSelection(c echo.Context) error {
	middleware.SessionFrom(c).Selection.Clear()
	return c.NoContent(http.StatusNoContent)
}

// ConfirmCheckout: POST /v1/movies/:id/checkout
func (h *BookingHandler) ConfirmCheckout(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req checkoutReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	s := middleware.SessionFrom(c)
	ctx := c.Request().Context()

	if req.MovieTitle == "" && h.Movies != nil && s.Selection.Len() > 0 {
		if m, err := h.Movies.Details(ctx, id); err == nil {
			req.MovieTitle = m.Title
			if m.PosterPath != nil && req.PosterPath == "" {
				req.PosterPath = *m.PosterPath
			}
		}
	}

	receipt, err := h.Checkout.Confirm(ctx, s.Selection, s.Auth.Current(), booking.Request{
		MovieID:    id,
		MovieTitle: req.MovieTitle,
		PosterPath: req.PosterPath,
		Date:       req.Date,
		Time:       req.Time,
	})
	if err != nil {
		return writeError(c, err)
	}
	status := http.StatusOK
	if receipt.Persisted {
		status = http.StatusCreated
	}
	return c.JSON(status, receipt)
}

// ListBookings: GET /v1/bookings
func (h *BookingHandler) ListBookings(c echo.Context) error {
	if h.Service == nil {
		return c.JSON(http.StatusOK, []model.Booking{})
	}
	out, err := h.Service.List(c.Request().Context(), currentUser(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// GetBooking: GET /v1/bookings/:id
func (h *BookingHandler) GetBooking(c echo.Context) error {
	if h.Service == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "bookings are not persisted"})
	}
	b, err := h.Service.Get(c.Request().Context(), currentUser(c), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Ticket: GET /v1/bookings/:id/qr renders the booking's QR ticket as PNG.
func (h *BookingHandler) Ticket(c echo.Context) error {
	if h.Service == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "bookings are not persisted"})
	}
	png, err := h.Service.Ticket(c.Request().Context(), currentUser(c), c.Param("id"), 256)
	if err != nil {
		return writeError(c, err)
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

// CancelBooking: DELETE /v1/bookings/:id
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	if h.Service == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "bookings are not persisted"})
	}
	if err := h.Service.Cancel(c.Request().Context(), currentUser(c), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func currentUser(c echo.Context) *auth.User { return middleware.CurrentUser(c) }

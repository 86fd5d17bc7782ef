package handler

import (
	"net/http"

	"github.com/jinzhu/copier"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/middleware"
	"github.com/iliyamo/movie-booking/internal/model"
)

// WatchlistHandler serves the watchlist of the client session.  Movies is
// used to fill in a summary when the client only sends a movie id.
type WatchlistHandler struct {
	Movies MetadataClient
}

type addWatchlistReq struct {
	MovieID     int64    `json:"movie_id" validate:"required,gt=0"`
	Title       string   `json:"title" validate:"omitempty,max=512"`
	PosterPath  *string  `json:"poster_path" validate:"omitempty,max=512"`
	VoteAverage *float64 `json:"vote_average" validate:"omitempty,gte=0,lte=10"`
	ReleaseDate string   `json:"release_date" validate:"omitempty,max=32"`
}

type watchlistResp struct {
	Items   []model.WatchlistEntry `json:"items"`
	Loading bool                   `json:"loading"`
}

// List: GET /v1/watchlist.  A failed load shows as an empty list.
func (h *WatchlistHandler) List(c echo.Context) error {
	wl := middleware.SessionFrom(c).Watchlist
	return c.JSON(http.StatusOK, watchlistResp{Items: wl.Items(), Loading: wl.Loading()})
}

// Status: GET /v1/watchlist/:movieId
func (h *WatchlistHandler) Status(c echo.Context) error {
	id, err := pathID(c, "movieId")
	if err != nil {
		return err
	}
	in := middleware.SessionFrom(c).Watchlist.Contains(id)
	return c.JSON(http.StatusOK, echo.Map{"movie_id": id, "in_watchlist": in})
}

// Add: POST /v1/watchlist
func (h *WatchlistHandler) Add(c echo.Context) error {
	var req addWatchlistReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	summary := model.MovieSummary{ID: req.MovieID}
	if req.Title == "" && h.Movies != nil {
		m, err := h.Movies.Details(ctx, req.MovieID)
		if err != nil {
			return writeError(c, err)
		}
		if err := copier.Copy(&summary, &m); err != nil {
			return writeError(c, err)
		}
	} else {
		summary.Title = req.Title
		summary.PosterPath = req.PosterPath
		summary.ReleaseDate = req.ReleaseDate
		if req.VoteAverage != nil {
			summary.VoteAverage = *req.VoteAverage
		}
	}
	if summary.Title == "" {
		return errBadRequest("title is required")
	}

	wl := middleware.SessionFrom(c).Watchlist
	if err := wl.Add(ctx, summary); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, watchlistResp{Items: wl.Items(), Loading: wl.Loading()})
}

// Remove: DELETE /v1/watchlist/:movieId
func (h *WatchlistHandler) Remove(c echo.Context) error {
	id, err := pathID(c, "movieId")
	if err != nil {
		return err
	}
	wl := middleware.SessionFrom(c).Watchlist
	if err := wl.Remove(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, watchlistResp{Items: wl.Items(), Loading: wl.Loading()})
}

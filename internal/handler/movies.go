package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/model"
)

// MetadataClient is the read-only movie metadata source.
type MetadataClient interface {
	NowPlaying(ctx context.Context) (model.MovieList, error)
	Trending(ctx context.Context) (model.MovieList, error)
	Search(ctx context.Context, query string) (model.MovieList, error)
	ByGenre(ctx context.Context, genreID int64) (model.MovieList, error)
	Details(ctx context.Context, movieID int64) (model.Movie, error)
	Credits(ctx context.Context, movieID int64) (model.Credits, error)
}

// MovieHandler serves metadata browsing.  Responses carry no session data
// so the response cache can share them between clients.
type MovieHandler struct {
	Movies MetadataClient
}

func NewMovieHandler(m MetadataClient) *MovieHandler { return &MovieHandler{Movies: m} }

func (h *MovieHandler) NowPlaying(c echo.Context) error {
	return h.list(c, h.Movies.NowPlaying)
}

func (h *MovieHandler) Trending(c echo.Context) error {
	return h.list(c, h.Movies.Trending)
}

// Search: GET /v1/movies/search?q=
func (h *MovieHandler) Search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return errBadRequest("q is required")
	}
	return h.list(c, func(ctx context.Context) (model.MovieList, error) { return h.Movies.Search(ctx, q) })
}

// ByGenre: GET /v1/genres/:id/movies
func (h *MovieHandler) ByGenre(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	return h.list(c, func(ctx context.Context) (model.MovieList, error) { return h.Movies.ByGenre(ctx, id) })
}

// Details: GET /v1/movies/:id
func (h *MovieHandler) Details(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	m, err := h.Movies.Details(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// Credits: GET /v1/movies/:id/credits
func (h *MovieHandler) Credits(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	cr, err := h.Movies.Credits(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cr)
}

func (h *MovieHandler) list(c echo.Context, fetch func(context.Context) (model.MovieList, error)) error {
	l, err := fetch(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadRequest("invalid " + name)
	}
	return id, nil
}

package tmdb

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/movie-booking/internal/model"
)

// The raw* types mirror the upstream JSON.  Required scalars are pointers so
// that "absent" and "zero" can be told apart; `required` on a pointer only
// checks presence.

type rawGenre struct {
	ID   *int64  `json:"id" validate:"required"`
	Name *string `json:"name" validate:"required"`
}

type rawMovie struct {
	ID           *int64     `json:"id" validate:"required"`
	Title        *string    `json:"title" validate:"required"`
	Overview     *string    `json:"overview" validate:"required"`
	PosterPath   *string    `json:"poster_path"`
	BackdropPath *string    `json:"backdrop_path"`
	VoteAverage  *float64   `json:"vote_average" validate:"required"`
	VoteCount    *int64     `json:"vote_count" validate:"required"`
	ReleaseDate  *string    `json:"release_date"`
	Genres       []rawGenre `json:"genres" validate:"omitempty,dive"`
	Runtime      *int       `json:"runtime"`
}

type rawMovieList struct {
	Page         *int       `json:"page" validate:"required"`
	Results      []rawMovie `json:"results" validate:"required,dive"`
	TotalPages   *int       `json:"total_pages" validate:"required"`
	TotalResults *int       `json:"total_results" validate:"required"`
}

type rawCast struct {
	ID          *int64  `json:"id" validate:"required"`
	Name        *string `json:"name" validate:"required"`
	ProfilePath *string `json:"profile_path"`
	Character   *string `json:"character" validate:"required"`
}

type rawCredits struct {
	ID   *int64    `json:"id" validate:"required"`
	Cast []rawCast `json:"cast" validate:"required,dive"`
}

// ValidationError reports a response that does not conform to the expected
// schema.  No partial data accompanies it.
type ValidationError struct {
	Endpoint string
	Fields   []string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "tmdb: invalid response"
	}
	return fmt.Sprintf("tmdb: invalid response from %s: %s", e.Endpoint, strings.Join(e.Fields, ", "))
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func check(endpoint string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields = append(fields, fe.Namespace()+":"+fe.Tag())
		}
		return &ValidationError{Endpoint: endpoint, Fields: fields}
	}
	return &ValidationError{Endpoint: endpoint, Fields: []string{err.Error()}}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func (r rawMovie) toModel() model.Movie {
	m := model.Movie{
		ID:           deref(r.ID),
		Title:        deref(r.Title),
		Overview:     deref(r.Overview),
		PosterPath:   r.PosterPath,
		BackdropPath: r.BackdropPath,
		VoteAverage:  deref(r.VoteAverage),
		VoteCount:    deref(r.VoteCount),
		ReleaseDate:  deref(r.ReleaseDate),
		Runtime:      r.Runtime,
	}
	for _, g := range r.Genres {
		m.Genres = append(m.Genres, model.Genre{ID: deref(g.ID), Name: deref(g.Name)})
	}
	return m
}

func (r rawMovieList) toModel() model.MovieList {
	out := model.MovieList{
		Page:         deref(r.Page),
		Results:      make([]model.Movie, 0, len(r.Results)),
		TotalPages:   deref(r.TotalPages),
		TotalResults: deref(r.TotalResults),
	}
	for _, m := range r.Results {
		out.Results = append(out.Results, m.toModel())
	}
	return out
}

func (r rawCredits) toModel() model.Credits {
	out := model.Credits{ID: deref(r.ID), Cast: make([]model.CastMember, 0, len(r.Cast))}
	for _, c := range r.Cast {
		out.Cast = append(out.Cast, model.CastMember{
			ID:          deref(c.ID),
			Name:        deref(c.Name),
			ProfilePath: c.ProfilePath,
			Character:   deref(c.Character),
		})
	}
	return out
}

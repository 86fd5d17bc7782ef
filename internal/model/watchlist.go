package model

import "time"

// MovieSummary is the subset of a Movie kept in a watchlist: enough to
// render a grid card without refetching metadata.
type MovieSummary struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	PosterPath  *string `json:"poster_path"`
	VoteAverage float64 `json:"vote_average"`
	ReleaseDate string  `json:"release_date,omitempty"`
}

// WatchlistEntry is the persisted form of a watchlist item, keyed by movie
// id under one user.  AddedAt is assigned by the store at write time.
type WatchlistEntry struct {
	MovieSummary
	AddedAt time.Time `json:"added_at"`
}

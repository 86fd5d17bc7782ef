package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/movie-booking/internal/model"
)

// WatchlistRepo stores users/{userId}/watchlist/{movieId}.
type WatchlistRepo struct{ DB *sql.DB }

func NewWatchlistRepo(db *sql.DB) *WatchlistRepo { return &WatchlistRepo{DB: db} }

// GetWatchlist returns the user's entries, most recently added first.
func (r *WatchlistRepo) GetWatchlist(ctx context.Context, userID string) ([]model.WatchlistEntry, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT movie_id, title, poster_path, vote_average, release_date, added_at
		 FROM watchlist_items WHERE user_id=? ORDER BY added_at DESC, movie_id DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("query watchlist: %w", err)
	}
	defer rows.Close()

	out := []model.WatchlistEntry{}
	for rows.Next() {
		var (
			e      model.WatchlistEntry
			poster sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Title, &poster, &e.VoteAverage, &e.ReleaseDate, &e.AddedAt); err != nil {
			return nil, fmt.Errorf("scan watchlist: %w", err)
		}
		e.PosterPath = nullable(poster)
		out = append(out, e)
	}
	return out, rows.Err()
}

// SetWatchlistEntry writes the entry, overwriting any previous one for the
// same movie.  added_at is assigned by the server.
func (r *WatchlistRepo) SetWatchlistEntry(ctx context.Context, userID string, e model.WatchlistEntry) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO watchlist_items (user_id, movie_id, title, poster_path, vote_average, release_date, added_at)
		 VALUES (?,?,?,?,?,?,UTC_TIMESTAMP(6))
		 ON DUPLICATE KEY UPDATE title=VALUES(title), poster_path=VALUES(poster_path),
		   vote_average=VALUES(vote_average), release_date=VALUES(release_date), added_at=VALUES(added_at)`,
		userID, e.ID, e.Title, e.PosterPath, e.VoteAverage, e.ReleaseDate)
	if err != nil {
		return fmt.Errorf("set watchlist entry: %w", err)
	}
	return nil
}

// DeleteWatchlistEntry removes the movie.  Deleting a missing entry is not
// an error.
func (r *WatchlistRepo) DeleteWatchlistEntry(ctx context.Context, userID string, movieID int64) error {
	if _, err := r.DB.ExecContext(ctx,
		"DELETE FROM watchlist_items WHERE user_id=? AND movie_id=?", userID, movieID); err != nil {
		return fmt.Errorf("delete watchlist entry: %w", err)
	}
	return nil
}

// IsInWatchlist reports whether the remote list holds movieID.
func (r *WatchlistRepo) IsInWatchlist(ctx context.Context, userID string, movieID int64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM watchlist_items WHERE user_id=? AND movie_id=? LIMIT 1", userID, movieID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check watchlist: %w", err)
	}
	return true, nil
}

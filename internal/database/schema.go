package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema holds the statements Migrate applies, in order.  Every statement
// is idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            CHAR(36)     NOT NULL,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		display_name  VARCHAR(255) NULL,
		photo_url     VARCHAR(1024) NULL,
		created_at    DATETIME(6)  NOT NULL,
		updated_at    DATETIME(6)  NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id    CHAR(36)    NOT NULL,
		token_hash CHAR(64)    NOT NULL,
		expires_at DATETIME(6) NOT NULL,
		revoked_at DATETIME(6) NULL,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		PRIMARY KEY (id),
		UNIQUE KEY uq_refresh_tokens_hash (token_hash),
		KEY idx_refresh_tokens_user (user_id),
		CONSTRAINT fk_refresh_tokens_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS watchlist_items (
		user_id      CHAR(36)     NOT NULL,
		movie_id     BIGINT       NOT NULL,
		title        VARCHAR(512) NOT NULL,
		poster_path  VARCHAR(512) NULL,
		vote_average DOUBLE       NOT NULL DEFAULT 0,
		release_date VARCHAR(32)  NOT NULL DEFAULT '',
		added_at     DATETIME(6)  NOT NULL,
		PRIMARY KEY (user_id, movie_id),
		KEY idx_watchlist_added (user_id, added_at),
		CONSTRAINT fk_watchlist_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bookings (
		user_id     CHAR(36)     NOT NULL,
		id          VARCHAR(191) NOT NULL,
		movie_id    BIGINT       NOT NULL,
		movie_title VARCHAR(512) NOT NULL,
		poster_path VARCHAR(512) NOT NULL DEFAULT '',
		seats       JSON         NOT NULL,
		show_date   VARCHAR(32)  NOT NULL DEFAULT '',
		show_time   VARCHAR(32)  NOT NULL DEFAULT '',
		theater     VARCHAR(255) NOT NULL DEFAULT '',
		total_price BIGINT       NOT NULL,
		status      VARCHAR(16)  NOT NULL,
		created_at  DATETIME(6)  NOT NULL,
		PRIMARY KEY (user_id, id),
		KEY idx_bookings_created (user_id, created_at),
		CONSTRAINT fk_bookings_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies Schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}

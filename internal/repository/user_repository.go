package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/utils"
)

// User mirrors the 'users' table including credentials.
type User struct {
	model.UserProfile
	PasswordHash string
	UpdatedAt    time.Time
}

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account with a fresh id and returns its profile.
func (r *UserRepo) Register(ctx context.Context, email, password string, displayName *string, cost int) (model.UserProfile, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.UserProfile{}, err
	}
	p := model.UserProfile{
		ID:          uuid.New().String(),
		Email:       NormalizeEmail(email),
		DisplayName: displayName,
	}
	if err := r.CreateProfile(ctx, p.ID, p, hash); err != nil {
		return model.UserProfile{}, err
	}
	return r.GetProfile(ctx, p.ID)
}

// CreateProfile inserts the users/{userID} row.  created_at is assigned by
// the server.
func (r *UserRepo) CreateProfile(ctx context.Context, userID string, p model.UserProfile, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, display_name, photo_url, created_at, updated_at)
		 VALUES (?,?,?,?,?,UTC_TIMESTAMP(6),UTC_TIMESTAMP(6))`,
		userID, NormalizeEmail(p.Email), passwordHash, p.DisplayName, p.PhotoURL)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// GetProfile returns the public profile of userID.
func (r *UserRepo) GetProfile(ctx context.Context, userID string) (model.UserProfile, error) {
	u, err := r.getBy(ctx, "id", userID)
	if err != nil {
		return model.UserProfile{}, err
	}
	return u.UserProfile, nil
}

// GetByEmail fetches a user with credentials by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.getBy(ctx, "email", NormalizeEmail(email))
}

// GetByID fetches a user with credentials by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *UserRepo) getBy(ctx context.Context, column, value string) (User, error) {
	var (
		u     User
		name  sql.NullString
		photo sql.NullString
	)
	// column is "id" or "email", never caller input.
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,display_name,photo_url,created_at,updated_at FROM users WHERE "+column+"=? LIMIT 1",
		value).Scan(&u.ID, &u.Email, &u.PasswordHash, &name, &photo, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	u.DisplayName = nullable(name)
	u.PhotoURL = nullable(photo)
	return u, nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

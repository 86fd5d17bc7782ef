package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/auth"
	"github.com/iliyamo/movie-booking/internal/config"
	"github.com/iliyamo/movie-booking/internal/middleware"
	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/repository"
	"github.com/iliyamo/movie-booking/internal/utils"
)

// UserStore is the account side of the user repository.
type UserStore interface {
	Register(ctx context.Context, email, password string, displayName *string, cost int) (model.UserProfile, error)
	GetByEmail(ctx context.Context, email string) (repository.User, error)
	GetProfile(ctx context.Context, userID string) (model.UserProfile, error)
}

// TokenStore persists refresh token hashes.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (string, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenStore
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6,max=72"`
	DisplayName string `json:"display_name" validate:"omitempty,max=255"`
}
type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}
type logoutReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	User    model.UserProfile `json:"user"`
	Access  tokenPart         `json:"access"`
	Refresh tokenPart         `json:"refresh"`
}

// Register: create the account and profile, sign the client session in and
// return tokens.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	var name *string
	if n := strings.TrimSpace(req.DisplayName); n != "" {
		name = &n
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Users.Register(ctx, req.Email, req.Password, name, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email_exists", "message": "email already exists"})
		}
		return writeError(c, err)
	}
	resp, err := h.issue(ctx, p)
	if err != nil {
		return writeError(c, err)
	}
	h.signIn(c, p)
	return c.JSON(http.StatusCreated, resp)
}

// Login: verify credentials and return a new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindValid(c, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_credentials", "message": "invalid credentials"})
		}
		return writeError(c, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_credentials", "message": "invalid credentials"})
	}

	resp, err := h.issue(ctx, u.UserProfile)
	if err != nil {
		return writeError(c, err)
	}
	h.signIn(c, u.UserProfile)
	return c.JSON(http.StatusOK, resp)
}

// Refresh: validate by hash, revoke the old token, issue a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_refresh", "message": "invalid refresh token"})
	}
	_ = h.Tokens.RevokeByHash(ctx, hash)

	p, err := h.Users.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_refresh", "message": "invalid refresh token"})
		}
		return writeError(c, err)
	}
	resp, err := h.issue(ctx, p)
	if err != nil {
		return writeError(c, err)
	}
	h.signIn(c, p)
	return c.JSON(http.StatusOK, resp)
}

// Logout signs the client session out.  With a refresh_token in the body
// only that token is revoked; otherwise every token of the signed in user is.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req logoutReq
	_ = c.Bind(&req)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch raw := strings.TrimSpace(req.RefreshToken); {
	case raw != "":
		if err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw)); err != nil {
			return writeError(c, err)
		}
	case middleware.CurrentUser(c) != nil:
		if err := h.Tokens.RevokeAllForUser(ctx, middleware.CurrentUser(c).ID); err != nil {
			return writeError(c, err)
		}
	default:
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated", "message": "nothing to log out"})
	}

	if s := middleware.SessionFrom(c); s != nil {
		s.Auth.SignOut()
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the profile of the signed in user.
func (h *AuthHandler) Me(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return writeError(c, auth.ErrUnauthenticated)
	}
	p, err := h.Users.GetProfile(c.Request().Context(), u.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *AuthHandler) issue(ctx context.Context, p model.UserProfile) (authResp, error) {
	name := ""
	if p.DisplayName != nil {
		name = *p.DisplayName
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, p.ID, p.Email, name, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, p.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    p,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

func (h *AuthHandler) signIn(c echo.Context, p model.UserProfile) {
	s := middleware.SessionFrom(c)
	if s == nil {
		return
	}
	u := auth.User{ID: p.ID, Email: p.Email}
	if p.DisplayName != nil {
		u.DisplayName = *p.DisplayName
	}
	s.Auth.SignIn(u)
}

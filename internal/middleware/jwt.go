// Package middleware resolves the client session, bearer identity, response
// cache and rate limits in front of the API handlers.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/auth"
	"github.com/iliyamo/movie-booking/internal/utils"
)

// BearerAuth validates an optional Bearer access token.  A valid token
// signs the request's client session in as the token subject; an invalid
// one is rejected with 401.  Requests without a token pass through and keep
// whatever state the session already has.
func BearerAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header.Get("Authorization")
			if h == "" {
				return next(c)
			}
			if !strings.HasPrefix(h, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set(ctxUserID, claims.Subject)
			if s := SessionFrom(c); s != nil {
				s.Auth.SignIn(auth.User{ID: claims.Subject, Email: claims.Email, DisplayName: claims.Name})
			}
			return next(c)
		}
	}
}

// RequireUser rejects requests whose client session is signed out.
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if CurrentUser(c) == nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			return next(c)
		}
	}
}

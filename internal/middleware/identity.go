package middleware

// identity.go holds the context keys shared by the middleware chain and the
// accessors handlers use to reach the client session.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/auth"
	"github.com/iliyamo/movie-booking/internal/session"
)

const (
	ctxSession = "session"
	ctxUserID  = "user_id"
)

// SessionFrom returns the client session attached by ClientSession.
func SessionFrom(c echo.Context) *session.Session {
	s, _ := c.Get(ctxSession).(*session.Session)
	return s
}

// CurrentUser returns the signed in user of the request's client session.
func CurrentUser(c echo.Context) *auth.User {
	if s := SessionFrom(c); s != nil {
		return s.Auth.Current()
	}
	return nil
}

// currentUserID identifies the caller for rate limit keys.
func currentUserID(c echo.Context) string {
	if u := CurrentUser(c); u != nil {
		return u.ID
	}
	if v, ok := c.Get(ctxUserID).(string); ok && v != "" {
		return v
	}
	return "anon"
}

func currentSessionID(c echo.Context) string {
	if s := SessionFrom(c); s != nil {
		return s.ID
	}
	return "none"
}

package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/logging"
	"github.com/iliyamo/movie-booking/internal/session"
)

// SessionCookie is the name of the client session cookie.
const SessionCookie = "sid"

// ClientSession resolves the sid cookie to a live session, creating one
// (and issuing the cookie) when it is missing or expired.  The session and a
// request scoped logger are attached to the context.
func ClientSession(mgr *session.Manager, ttl time.Duration, secure bool, logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var s *session.Session
			if ck, err := c.Cookie(SessionCookie); err == nil && ck.Value != "" {
				s, _ = mgr.Get(ck.Value)
			}
			if s == nil {
				created, err := mgr.Create()
				if err != nil {
					logger.Error("create client session failed", slog.Any("err", err))
					return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session unavailable"})
				}
				s = created
			}
			// Re-issued on every request; MaxAge counts from the last activity.
			c.SetCookie(&http.Cookie{
				Name:     SessionCookie,
				Value:    s.ID,
				Path:     "/",
				MaxAge:   int(ttl / time.Second),
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})
			c.Set(ctxSession, s)

			req := c.Request()
			l := logger.With(slog.String("session_id", s.ID))
			c.SetRequest(req.WithContext(logging.ContextWithLogger(req.Context(), l)))
			return next(c)
		}
	}
}

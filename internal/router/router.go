// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/handler"
	"github.com/iliyamo/movie-booking/internal/middleware"
)

// Handlers bundles every handler the API exposes.
type Handlers struct {
	Health    *handler.HealthHandler
	Auth      *handler.AuthHandler
	Movies    *handler.MovieHandler
	Booking   *handler.BookingHandler
	Watchlist *handler.WatchlistHandler
}

// Middleware bundles the chain shared by /v1.  Session resolves the client
// session and must run before Bearer; Cache wraps metadata routes only.
type Middleware struct {
	Session   echo.MiddlewareFunc
	Bearer    echo.MiddlewareFunc
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

func (m Middleware) chain() []echo.MiddlewareFunc {
	var out []echo.MiddlewareFunc
	for _, mw := range []echo.MiddlewareFunc{m.Session, m.Bearer, m.RateLimit} {
		if mw != nil {
			out = append(out, mw)
		}
	}
	return out
}

// RegisterRoutes registers routes that need no client session.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Health)
}

// Register wires the whole API onto e.
func Register(e *echo.Echo, h Handlers, mw Middleware) {
	RegisterRoutes(e, h.Health)

	v1 := e.Group("/v1", mw.chain()...)
	RegisterAuth(v1, h.Auth)
	RegisterMovies(v1, h.Movies, mw.Cache)
	RegisterBooking(v1, h.Booking)
	RegisterWatchlist(v1, h.Watchlist)
}

// RegisterAuth registers account endpoints.  Register, login and refresh
// work signed out; /me requires a signed in session.
func RegisterAuth(g *echo.Group, a *handler.AuthHandler) {
	if a == nil {
		return
	}
	ag := g.Group("/auth")
	ag.POST("/register", a.Register)
	ag.POST("/login", a.Login)
	ag.POST("/refresh", a.Refresh)
	ag.POST("/logout", a.Logout)

	g.GET("/me", a.Me, middleware.RequireUser())
}

// RegisterMovies registers metadata browsing, optionally behind cache.
func RegisterMovies(g *echo.Group, m *handler.MovieHandler, cache echo.MiddlewareFunc) {
	var mws []echo.MiddlewareFunc
	if cache != nil {
		mws = append(mws, cache)
	}
	g.GET("/movies/now-playing", m.NowPlaying, mws...)
	g.GET("/movies/trending", m.Trending, mws...)
	g.GET("/movies/search", m.Search, mws...)
	g.GET("/genres/:id/movies", m.ByGenre, mws...)
	g.GET("/movies/:id", m.Details, mws...)
	g.GET("/movies/:id/credits", m.Credits, mws...)
}

// RegisterBooking registers seat selection, checkout and booking history.
func RegisterBooking(g *echo.Group, b *handler.BookingHandler) {
	g.GET("/movies/:id/seats", b.SeatMap)
	g.POST("/movies/:id/seats/:seat/toggle", b.Toggle)
	g.DELETE("/selection", b.ClearSelection)
	g.POST("/movies/:id/checkout", b.ConfirmCheckout)

	g.GET("/bookings", b.ListBookings)
	g.GET("/bookings/:id", b.GetBooking)
	g.GET("/bookings/:id/qr", b.Ticket)
	g.DELETE("/bookings/:id", b.CancelBooking)
}

// RegisterWatchlist registers the session watchlist.
func RegisterWatchlist(g *echo.Group, w *handler.WatchlistHandler) {
	g.GET("/watchlist", w.List)
	g.GET("/watchlist/:movieId", w.Status)
	g.POST("/watchlist", w.Add)
	g.DELETE("/watchlist/:movieId", w.Remove)
}

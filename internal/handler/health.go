// Package handler exposes the HTTP handlers of the API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports process liveness and the state of its backends.
// Nil backends are reported as "disabled".
type HealthHandler struct {
	DB    Pinger
	Redis func(ctx context.Context) error
}

// Health always answers 200 while the process serves; degraded backends are
// visible in the body for load balancers that inspect it.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	out := echo.Map{"status": "ok", "db": "disabled", "redis": "disabled"}
	if h.DB != nil {
		out["db"] = state(h.DB.PingContext(ctx))
	}
	if h.Redis != nil {
		out["redis"] = state(h.Redis(ctx))
	}
	return c.JSON(http.StatusOK, out)
}

func state(err error) string {
	if err != nil {
		return "down"
	}
	return "ok"
}

package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// RequestValidator plugs go-playground/validator into echo's c.Validate.
type RequestValidator struct {
	v *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

func (r *RequestValidator) Validate(i any) error { return r.v.Struct(i) }

// bindValid binds the body into dst and validates it.  The returned error
// is an *echo.HTTPError carrying the 400 body.
func bindValid(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return errBadRequest("invalid body")
	}
	if err := c.Validate(dst); err != nil {
		return errBadRequest(err.Error())
	}
	return nil
}

func errBadRequest(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"error": "bad_request", "message": msg})
}

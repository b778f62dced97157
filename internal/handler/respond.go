package handler

import (
	"errors"
	"log"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/rudrakv/storefront-api/internal/apperr"
)

// respondErr is the single boundary translation from internal errors
// to transport responses. Storage and config faults are logged with
// their cause and surfaced with a generic message; everything else
// carries its user-actionable message plus a stable category code.
func respondErr(c echo.Context, err error) error {
	kind := apperr.KindOf(err)
	if kind == apperr.KindStorage || kind == apperr.KindConfig {
		log.Printf("%s %s: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(apperr.HTTPStatus(kind), echo.Map{
		"error": apperr.MessageOf(err),
		"code":  string(kind),
	})
}

// getUserID extracts the authenticated user id stored by RequireAuth.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// getRole extracts the current database role stored by RequireAuth.
func getRole(c echo.Context) string {
	if r, ok := c.Get("role").(string); ok {
		return r
	}
	return ""
}

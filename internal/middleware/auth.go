// Package middleware provides the request-processing layer shared by
// all handlers: session validation, role gating, rate limiting and
// response caching.
package middleware

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rudrakv/storefront-api/internal/auth"
	"github.com/rudrakv/storefront-api/internal/metrics"
	"github.com/rudrakv/storefront-api/internal/model"
)

// UserSource is the credential-store lookup the session validator
// re-checks every request against. *repository.UserRepo satisfies it.
type UserSource interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// RequireAuth returns middleware that validates a Bearer session
// token and injects the authenticated principal into the context as
// "user_id" (uint64) and "role" (string). The token alone is never
// enough: the subject is re-checked against the credential store for
// existence, active status and revocation-counter match, and the
// role used for authorization is the current database role, so a
// demotion takes effect before the token's natural expiry. An empty
// roles list admits any authenticated role.
func RequireAuth(secret string, users UserSource, roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return reject(c, http.StatusUnauthorized, "missing bearer token")
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims, err := auth.VerifyToken(secret, raw)
			if err != nil {
				if errors.Is(err, auth.ErrNoSecret) {
					// Misconfiguration, not a caller mistake.
					return reject(c, http.StatusServiceUnavailable, "service unavailable")
				}
				if errors.Is(err, auth.ErrTokenExpired) {
					return reject(c, http.StatusUnauthorized, "token expired")
				}
				return reject(c, http.StatusUnauthorized, "invalid token")
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			u, err := users.GetByID(ctx, claims.UserID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return reject(c, http.StatusUnauthorized, "account no longer exists")
				}
				// Fail closed on any store fault; never authenticate
				// a request the store could not confirm.
				return reject(c, http.StatusServiceUnavailable, "auth check failed")
			}
			if !u.IsActive() {
				return reject(c, http.StatusForbidden, "account suspended")
			}

			dbVersion := u.TokenVersion
			if dbVersion < 1 {
				dbVersion = 1
			}
			// Tokens minted before the revocation counter existed carry
			// no tv claim and decode as version 0. They stay valid only
			// while the account has never been revoked (counter still 1).
			if claims.TokenVersion == 0 {
				if dbVersion != 1 {
					return reject(c, http.StatusUnauthorized, "session expired, please log in again")
				}
			} else if claims.TokenVersion != dbVersion {
				return reject(c, http.StatusUnauthorized, "session expired, please log in again")
			}

			if len(allowed) > 0 && !allowed[u.Role] {
				return reject(c, http.StatusForbidden, "forbidden")
			}

			c.Set("user_id", u.ID)
			c.Set("role", u.Role)
			return next(c)
		}
	}
}

func reject(c echo.Context, status int, msg string) error {
	// Only credential rejections count; 503s are service faults, not
	// callers being turned away.
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		metrics.AuthRejections.WithLabelValues(msg).Inc()
	}
	return c.JSON(status, echo.Map{"error": msg})
}

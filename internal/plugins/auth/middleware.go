package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/inkwellapp/inkwell/internal/apperror"
)

// Context keys for values stored by RequireAuth.
const (
	userContextKey  = "auth.user"
	tokenContextKey = "auth.token"
)

// RequireAuth returns middleware that rejects requests without a valid
// bearer token. On success the authenticated user and the raw token are
// stored on the request context for handlers to read via GetUser and
// GetToken.
func RequireAuth(service *Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c)
			if !ok {
				return apperror.NewUnauthorized("missing or malformed Authorization header")
			}

			user, err := service.Authenticate(c.Request().Context(), token)
			if err != nil {
				return err
			}

			c.Set(userContextKey, user)
			c.Set(tokenContextKey, token)
			return next(c)
		}
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme comparison is case-insensitive per RFC 7235.
func bearerToken(c echo.Context) (string, bool) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

// GetUser returns the authenticated user set by RequireAuth, or nil when the
// request did not pass through it.
func GetUser(c echo.Context) *User {
	user, _ := c.Get(userContextKey).(*User)
	return user
}

// GetToken returns the raw bearer token set by RequireAuth.
func GetToken(c echo.Context) string {
	token, _ := c.Get(tokenContextKey).(string)
	return token
}

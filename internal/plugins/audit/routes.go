package audit

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires the audit endpoints into the Echo instance. The feed
// exposes usernames and activity, so it sits behind the auth gate; the gate
// middleware is provided by the caller to avoid a plugin dependency cycle.
func RegisterRoutes(e *echo.Echo, h *Handler, requireAuth echo.MiddlewareFunc) {
	e.GET("/api/audit", h.ListRecent, requireAuth)
}

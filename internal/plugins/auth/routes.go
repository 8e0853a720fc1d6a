package auth

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/inkwellapp/inkwell/internal/middleware"
)

// RegisterRoutes wires the auth endpoints into the Echo instance.
//
// Registration and login carry per-IP rate limits because both run bcrypt
// and both are credential-guessing targets.
func RegisterRoutes(e *echo.Echo, h *Handler, service *Service) {
	e.POST("/api/register", h.Register, middleware.RateLimit(5, time.Minute))
	e.POST("/api/login", h.Login, middleware.RateLimit(10, time.Minute))

	e.POST("/api/logout", h.Logout, RequireAuth(service))
	e.GET("/api/users/me", h.Me, RequireAuth(service))
}

package media

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/inkwellapp/inkwell/internal/middleware"
)

// RegisterRoutes wires the media endpoints into the Echo instance. Uploads
// are authenticated and rate-limited; serving is public so images embedded
// in post bodies load without credentials.
func RegisterRoutes(e *echo.Echo, h *Handler, requireAuth echo.MiddlewareFunc) {
	e.POST("/api/images", h.Upload, requireAuth, middleware.RateLimit(30, time.Minute))
	e.DELETE("/api/images/:id", h.Delete, requireAuth)

	e.GET("/media/:id", h.Serve)
	e.GET("/media/:id/thumb/:size", h.ServeThumbnail)
}

package audit

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handler exposes the audit feed over HTTP.
type Handler struct {
	service AuditService
}

// NewHandler creates an audit handler.
func NewHandler(service AuditService) *Handler {
	return &Handler{service: service}
}

// ListRecent handles GET /api/audit. Accepts an optional ?limit= parameter.
func (h *Handler) ListRecent(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	entries, err := h.service.ListRecent(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []AuditEntry{}
	}
	return c.JSON(http.StatusOK, entries)
}

package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/inkwellapp/inkwell/internal/apperror"
)

// Handler exposes account and session endpoints over HTTP.
type Handler struct {
	service *Service
}

// NewHandler creates an auth handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register handles POST /api/register.
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	user, err := h.service.Register(c.Request().Context(), RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

// Login handles POST /api/login.
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	token, err := h.service.Login(c.Request().Context(), LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, token)
}

// Logout handles POST /api/logout. Requires authentication; revokes the
// presented token.
func (h *Handler) Logout(c echo.Context) error {
	if err := h.service.Logout(c.Request().Context(), GetToken(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Me handles GET /api/users/me. Returns the authenticated user.
func (h *Handler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, GetUser(c))
}

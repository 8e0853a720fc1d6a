package media

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/inkwellapp/inkwell/internal/apperror"
	"github.com/inkwellapp/inkwell/internal/plugins/auth"
)

// Handler handles HTTP requests for image uploads and serving.
type Handler struct {
	service MediaService
}

// NewHandler creates a new media handler.
func NewHandler(service MediaService) *Handler {
	return &Handler{service: service}
}

// Upload handles multipart image uploads (POST /api/images).
func (h *Handler) Upload(c echo.Context) error {
	user := auth.GetUser(c)

	file, err := c.FormFile("file")
	if err != nil {
		return apperror.NewBadRequest("no file provided")
	}

	src, err := file.Open()
	if err != nil {
		return apperror.NewInternal(err)
	}
	defer src.Close()

	fileBytes, err := io.ReadAll(src)
	if err != nil {
		return apperror.NewInternal(err)
	}

	mediaFile, err := h.service.Upload(c.Request().Context(), UploadInput{
		UploadedBy:   user.ID,
		Username:     user.Username,
		OriginalName: file.Filename,
		MimeType:     file.Header.Get("Content-Type"),
		FileSize:     int64(len(fileBytes)),
		FileBytes:    fileBytes,
	})
	if err != nil {
		return err
	}

	thumbURL := ""
	if _, ok := mediaFile.ThumbnailPaths["300"]; ok {
		thumbURL = "/media/" + mediaFile.ID + "/thumb/300"
	}

	return c.JSON(http.StatusCreated, UploadResponse{
		ID:           mediaFile.ID,
		URL:          "/media/" + mediaFile.ID,
		ThumbnailURL: thumbURL,
		MimeType:     mediaFile.MimeType,
		FileSize:     mediaFile.FileSize,
	})
}

// Serve serves a full-size image (GET /media/:id).
func (h *Handler) Serve(c echo.Context) error {
	file, err := h.service.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	// Cache headers for immutable content (UUID-based filenames never change).
	c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	c.Response().Header().Set("Content-Type", file.MimeType)

	return c.File(h.service.FilePath(file))
}

// allowedThumbSizes restricts the thumbnail size parameter to known values,
// preventing the size from being used as an arbitrary map key.
var allowedThumbSizes = map[string]bool{"300": true, "800": true}

// ServeThumbnail serves a thumbnail (GET /media/:id/thumb/:size).
func (h *Handler) ServeThumbnail(c echo.Context) error {
	size := c.Param("size")
	if !allowedThumbSizes[size] {
		return apperror.NewBadRequest("invalid thumbnail size")
	}

	file, err := h.service.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	return c.File(h.service.ThumbnailPath(file, size))
}

// Delete removes an uploaded image (DELETE /api/images/:id).
func (h *Handler) Delete(c echo.Context) error {
	user := auth.GetUser(c)

	if err := h.service.Delete(c.Request().Context(), user.ID, user.Username, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

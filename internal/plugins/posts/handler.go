package posts

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/inkwellapp/inkwell/internal/apperror"
	"github.com/inkwellapp/inkwell/internal/plugins/auth"
)

// Handler exposes post and tag endpoints over HTTP. Handlers stay thin:
// bind, call the service, serialize.
type Handler struct {
	posts *PostService
	tags  *TagService
}

// NewHandler creates a posts handler.
func NewHandler(posts *PostService, tags *TagService) *Handler {
	return &Handler{posts: posts, tags: tags}
}

// --- Tag endpoints ---

// CreateTag handles POST /api/tags.
func (h *Handler) CreateTag(c echo.Context) error {
	var req CreateTagRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	tag, err := h.tags.Create(c.Request().Context(), auth.GetUser(c), req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, tag)
}

// ListTags handles GET /api/tags.
func (h *Handler) ListTags(c echo.Context) error {
	tags, err := h.tags.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tags)
}

// GetTag handles GET /api/tags/:id.
func (h *Handler) GetTag(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	tag, err := h.tags.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tag)
}

// DeleteTag handles DELETE /api/tags/:id.
func (h *Handler) DeleteTag(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.tags.Delete(c.Request().Context(), auth.GetUser(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// --- Post endpoints ---

// CreatePost handles POST /api/posts.
func (h *Handler) CreatePost(c echo.Context) error {
	var req PostRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	post, err := h.posts.Create(c.Request().Context(), auth.GetUser(c), PostInput{
		Title:   req.Title,
		Content: req.Content,
		Summary: req.Summary,
		TagIDs:  req.TagIDs,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, post)
}

// UpdatePost handles PUT /api/posts/:id.
func (h *Handler) UpdatePost(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req PostRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	post, err := h.posts.Update(c.Request().Context(), auth.GetUser(c), id, PostInput{
		Title:   req.Title,
		Content: req.Content,
		Summary: req.Summary,
		TagIDs:  req.TagIDs,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, post)
}

// DeletePost handles DELETE /api/posts/:id.
func (h *Handler) DeletePost(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.posts.Delete(c.Request().Context(), auth.GetUser(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListPosts handles GET /api/posts. Accepts an optional ?tag= filter.
func (h *Handler) ListPosts(c echo.Context) error {
	ctx := c.Request().Context()

	if raw := c.QueryParam("tag"); raw != "" {
		tagID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return apperror.NewBadRequest("invalid tag id")
		}
		posts, err := h.posts.ListByTag(ctx, tagID)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, posts)
	}

	posts, err := h.posts.List(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

// GetPost handles GET /api/posts/:id.
func (h *Handler) GetPost(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	post, err := h.posts.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, post)
}

// ListPostsByTag handles GET /api/tags/:id/posts.
func (h *Handler) ListPostsByTag(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	posts, err := h.posts.ListByTag(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

// pathID parses the :id path parameter.
func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, apperror.NewBadRequest("invalid id")
	}
	return id, nil
}

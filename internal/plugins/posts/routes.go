package posts

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires the post and tag endpoints into the Echo instance.
// Reads are public; every mutation sits behind the auth gate.
func RegisterRoutes(e *echo.Echo, h *Handler, requireAuth echo.MiddlewareFunc) {
	// Public read API.
	e.GET("/api/posts", h.ListPosts)
	e.GET("/api/posts/:id", h.GetPost)
	e.GET("/api/tags", h.ListTags)
	e.GET("/api/tags/:id", h.GetTag)
	e.GET("/api/tags/:id/posts", h.ListPostsByTag)

	// Authenticated mutations.
	e.POST("/api/posts", h.CreatePost, requireAuth)
	e.PUT("/api/posts/:id", h.UpdatePost, requireAuth)
	e.DELETE("/api/posts/:id", h.DeletePost, requireAuth)
	e.POST("/api/tags", h.CreateTag, requireAuth)
	e.DELETE("/api/tags/:id", h.DeleteTag, requireAuth)
}

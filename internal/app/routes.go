package app

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/inkwellapp/inkwell/internal/plugins/audit"
	"github.com/inkwellapp/inkwell/internal/plugins/auth"
	"github.com/inkwellapp/inkwell/internal/plugins/media"
	"github.com/inkwellapp/inkwell/internal/plugins/posts"
)

// Plugins holds the constructed plugin services and handlers. Built once in
// BuildPlugins and handed back to main so startup tasks (admin seeding) can
// reach the services directly.
type Plugins struct {
	AuthService  *auth.Service
	AuditService audit.AuditService
	PostService  *posts.PostService
	TagService   *posts.TagService
	MediaService media.MediaService
}

// BuildPlugins constructs every plugin's repository/service/handler stack
// and registers all routes. This is the single place where the dependency
// graph is assembled: when a new plugin is added, it is wired here.
func (a *App) BuildPlugins() *Plugins {
	e := a.Echo

	// Health check endpoint for container health monitoring.
	e.GET("/healthz", func(c echo.Context) error {
		if err := a.DB.PingContext(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// audit plugin records mutations made through the other plugins.
	auditService := audit.NewAuditService(audit.NewAuditRepository(a.DB))

	// auth plugin: accounts, tokens, and the gate everything else uses.
	authService := auth.NewService(
		auth.NewRepository(a.DB),
		auth.NewTokenIssuer(a.Config.Auth.SecretKey, a.Config.Auth.TokenTTL),
		auth.NewDenylist(a.Redis),
	)
	auth.RegisterRoutes(e, auth.NewHandler(authService), authService)

	requireAuth := auth.RequireAuth(authService)

	// posts plugin: the public blog surface and its gated mutations.
	postService := posts.NewPostService(posts.NewPostRepository(a.DB), auditService)
	tagService := posts.NewTagService(posts.NewTagRepository(a.DB), auditService)
	posts.RegisterRoutes(e, posts.NewHandler(postService, tagService), requireAuth)

	// media plugin: image uploads embedded in post bodies.
	mediaService := media.NewMediaService(
		media.NewMediaRepository(a.DB),
		auditService,
		a.Config.Upload.MediaPath,
		a.Config.Upload.MaxSize,
	)
	media.RegisterRoutes(e, media.NewHandler(mediaService), requireAuth)

	audit.RegisterRoutes(e, audit.NewHandler(auditService), requireAuth)

	return &Plugins{
		AuthService:  authService,
		AuditService: auditService,
		PostService:  postService,
		TagService:   tagService,
		MediaService: mediaService,
	}
}

package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fest-registration/internal/authz"
	"github.com/iliyamo/fest-registration/internal/handler"
	"github.com/iliyamo/fest-registration/internal/middleware"
)

// RegisterPublic registers the attendee-facing endpoints.  Submissions are
// rate limited; the catalog is served through the response cache.
func RegisterPublic(e *echo.Echo, p *handler.PublicRegistrationHandler, cat *handler.CatalogHandler, cache, limiter echo.MiddlewareFunc) {
	e.GET("/v1/catalog", cat.Get, cache)

	g := e.Group("/v1/registrations", limiter)
	g.POST("/tier-pass", p.SubmitTierPass)
	g.POST("/events/:id", p.SubmitEvent)
	g.GET("/:groupId/status", p.Status)
}

// RegisterAdmin registers the review console and role management.  Every
// route requires a valid JWT for an active account whose stored role the
// policy accepts as reviewer.
func RegisterAdmin(e *echo.Echo, h *handler.AdminRegistrationHandler, u *handler.AdminUserHandler, jwtSecret string, policy authz.Policy, limiter echo.MiddlewareFunc) {
	admin := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.LoadAccount(u.Users, u.Log),
		middleware.RequireReviewer(policy),
		limiter,
	)
	admin.PUT("/users/:id/role", u.SetRole)

	g := admin.Group("/registrations")
	g.GET("", h.List)
	g.GET("/stats", h.Stats)
	g.GET("/search", h.Search)
	g.GET("/export.csv", h.Export)
	g.GET("/:groupId", h.Get)
	g.POST("/:groupId/approve", h.Approve)
	g.POST("/:groupId/reject", h.Reject)
}

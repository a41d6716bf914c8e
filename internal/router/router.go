package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/fest-registration/internal/handler"
	"github.com/iliyamo/fest-registration/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication and do
// not belong to a feature: the health probes and the Prometheus scrape
// endpoint for the collectors registered on g.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler, g prometheus.Gatherer) {
	e.GET("/healthz", h.Live)
	e.GET("/readyz", h.Ready)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
}

// RegisterAuth registers the admin-console auth routes.  Register, login,
// refresh and logout live under /v1/auth without a session; /v1/me needs a
// valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limiter)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)               // rotates the refresh token
	g.POST("/refresh-access", a.RefreshAccess)  // keeps the refresh token
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.LoadAccount(a.Users, a.Log))
	auth.GET("/me", a.Me)
}

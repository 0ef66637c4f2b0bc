package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tuition-ledger/internal/handler"
	"github.com/iliyamo/tuition-ledger/internal/middleware"
)

// RegisterAdmin registers the oversight endpoints under /v1/admin.  All
// routes require a valid JWT and the admin role.  cache wraps the stats
// endpoint.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(roleAdmin),
	)

	g.GET("/stats", h.Stats, cache)
	g.GET("/users", h.Users)

	// ---- Advances ----
	g.GET("/advances", h.Advances)
	g.PUT("/advances/:id", h.Decide)
	g.POST("/advances/:id/default", h.Default)

	// ---- Schools ----
	g.GET("/schools", h.Schools)
	g.POST("/schools", h.AddSchool)
	g.PATCH("/schools/:id", h.VerifySchool)

	g.GET("/savings/reconcile", h.Reconcile)
}

// Package router defines how HTTP routes are registered for the API.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tuition-ledger/internal/handler"
	"github.com/iliyamo/tuition-ledger/internal/middleware"
	"github.com/iliyamo/tuition-ledger/internal/model"
)

var (
	roleStudent = string(model.RoleStudent)
	roleAdmin   = string(model.RoleAdmin)
)

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the identity endpoints.  Token operations live
// under /v1/auth; the profile endpoints require a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh) // rotates the refresh token
	// Logout accepts either a refresh_token body or a bearer token, so it
	// is not behind JWTAuth.
	g.POST("/logout", a.Logout)

	me := e.Group("/v1/me",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(roleStudent, roleAdmin),
	)
	me.GET("", a.Me)
	me.PATCH("/wallet", a.UpdateWallet)
}

package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tuition-ledger/internal/handler"
	"github.com/iliyamo/tuition-ledger/internal/middleware"
)

// RegisterStudent registers the school directory, advance and savings
// endpoints under /v1.  Every route requires a valid JWT; mutations and
// listings are student only.  cache wraps the school directory.
func RegisterStudent(e *echo.Echo, a *handler.AdvanceHandler, s *handler.SavingsHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	student := middleware.RequireRole(roleStudent)
	anyone := middleware.RequireRole(roleStudent, roleAdmin)

	g.GET("/schools", a.ListSchools, anyone, cache)

	// ---- Advances ----
	g.GET("/advances", a.List, student)
	g.POST("/advances", a.Request, student)
	g.GET("/advances/:id", a.Get, anyone)
	g.POST("/advances/:id/repay", a.Repay, student)

	// ---- Savings ----
	g.GET("/savings", s.List, student)
	g.POST("/savings", s.Create, student)
	g.GET("/savings/:id", s.Get, student)
	g.POST("/savings/:id/deposit", s.Deposit, student)
	g.POST("/savings/:id/withdraw", s.Withdraw, student)
}

package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/memofn/evalstore/cmd/evalstore/handlers"
)

// RegisterLoginRoutes registers the unauthenticated login route
func RegisterLoginRoutes(g *echo.Group, handler *handlers.LoginHandler) {
	// POST /api/v1/login - Exchange a GitHub OAuth code for a session token
	g.POST("/login", handler.Login)
}

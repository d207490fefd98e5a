package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/memofn/evalstore/cmd/evalstore/handlers"
)

// RegisterUserRoutes registers user profile routes
func RegisterUserRoutes(g *echo.Group, handler *handlers.UserHandler) {
	// GET /api/v1/user - Profile of the session's subject
	g.GET("/user", handler.GetUser)
}

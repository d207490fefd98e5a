package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/memofn/evalstore/cmd/evalstore/handlers"
)

// RegisterAPIKeyRoutes registers API key provisioning routes
func RegisterAPIKeyRoutes(g *echo.Group, handler *handlers.APIKeyHandler) {
	// GET /api/v1/keys/generate - Mint an API key for the session user
	g.GET("/keys/generate", handler.GenerateKey)
}

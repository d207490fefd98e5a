package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/memofn/evalstore/cmd/evalstore/handlers"
)

// RegisterEvalRoutes registers eval cache routes
func RegisterEvalRoutes(g *echo.Group, handler *handlers.EvalHandler) {
	// PUT /api/v1/evals - Upload an eval result with framed payload
	g.PUT("/evals", handler.PutEval)
	// GET /api/v1/evals - Look up cached evals, optionally polling
	g.GET("/evals", handler.GetEvals)
	// GET /api/v1/experiments - List recent experiment evals
	g.GET("/experiments", handler.GetExperiments)
}

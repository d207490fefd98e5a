package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/memofn/evalstore/cmd/evalstore/handlers"
)

// RegisterBlobRoutes registers standalone blob routes
func RegisterBlobRoutes(g *echo.Group, handler *handlers.BlobHandler) {
	// PUT /api/v1/blobs - Upload a blob with framed payload
	g.PUT("/blobs", handler.PutBlob)
	// GET /api/v1/blobs/:content_hash - Stream a blob back to its owner
	g.GET("/blobs/:content_hash", handler.GetBlob)
	// HEAD /api/v1/blobs/:content_hash - Check blob existence
	g.HEAD("/blobs/:content_hash", handler.HeadBlob)
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/memofn/evalstore/cmd/evalstore/middleware"
	"github.com/memofn/evalstore/cmd/evalstore/models"
	"github.com/memofn/evalstore/cmd/evalstore/repository"
	"github.com/memofn/evalstore/cmd/evalstore/service"
	"github.com/memofn/evalstore/common/bootstrap"
	"github.com/memofn/evalstore/common/framing"
	"github.com/memofn/evalstore/common/objectstore"
)

// blobRepository is the slice of repository.BlobRepository the handler
// needs. Tests substitute a fake.
type blobRepository interface {
	InsertOrFetch(ctx context.Context, apiKey, contentHash string) (int64, error)
	OwnedByKey(ctx context.Context, apiKey, contentHash string) (bool, error)
}

// BlobHandler handles standalone blob operations
type BlobHandler struct {
	components *bootstrap.Components
	store      *service.Store
	blobs      blobRepository
}

// NewBlobHandler creates a new blob handler
func NewBlobHandler(components *bootstrap.Components, store *service.Store, blobs blobRepository) *BlobHandler {
	return &BlobHandler{
		components: components,
		store:      store,
		blobs:      blobs,
	}
}

// PutBlob uploads a blob without an eval attached. The body is the
// same framed format PutEval uses. Responds with the blob's row id.
// PUT /api/v1/blobs
func (h *BlobHandler) PutBlob(c echo.Context) error {
	apiKey, err := middleware.RequireAPIKey(c)
	if err != nil {
		return err
	}

	var ins models.BlobInsert
	payload, err := framing.Extract(c.Request().Body, &ins)
	if err != nil {
		return framingHTTPError(err)
	}

	ctx := c.Request().Context()

	key, err := h.store.Upload(ctx, payload, ins.ContentHash, ins.ContentLength)
	if err != nil {
		return uploadHTTPError(err)
	}

	blobID, err := h.blobs.InsertOrFetch(ctx, apiKey, key)
	if err != nil {
		if errors.Is(err, repository.ErrUnauthorized) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid api key")
		}
		requestLogger(c, h.components.Logger).WithContentHash(key).Error("failed to record blob", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to record blob")
	}

	return c.String(http.StatusOK, strconv.FormatInt(blobID, 10))
}

// GetBlob streams a blob back to its owner. Ownership is checked
// against the caller's key before the backend is touched, so a blob
// belonging to someone else is indistinguishable from a bad key.
// GET /api/v1/blobs/:content_hash
func (h *BlobHandler) GetBlob(c echo.Context) error {
	apiKey, err := middleware.RequireAPIKey(c)
	if err != nil {
		return err
	}

	// Reject malformed hashes before the database sees them; a bad
	// path parameter is a client error, not a missing credential.
	hash, err := service.NormalizeHash(c.Param("content_hash"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed content hash")
	}
	ctx := c.Request().Context()

	owned, err := h.blobs.OwnedByKey(ctx, apiKey, hash)
	if err != nil {
		h.components.Logger.WithContentHash(hash).Error("failed to check blob ownership", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to check blob ownership")
	}
	if !owned {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized access")
	}

	rc, err := h.store.Download(ctx, hash)
	if err != nil {
		switch {
		case errors.Is(err, objectstore.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "blob not found")
		default:
			h.components.Logger.WithContentHash(hash).Error("failed to fetch blob", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch blob")
		}
	}
	defer rc.Close()

	return c.Stream(http.StatusOK, echo.MIMEOctetStream, rc)
}

// HeadBlob reports whether the caller owns a blob with the hash. Only
// the database is consulted; the backend is never touched.
// HEAD /api/v1/blobs/:content_hash
func (h *BlobHandler) HeadBlob(c echo.Context) error {
	apiKey, err := middleware.RequireAPIKey(c)
	if err != nil {
		return err
	}

	hash, err := service.NormalizeHash(c.Param("content_hash"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed content hash")
	}

	owned, err := h.blobs.OwnedByKey(c.Request().Context(), apiKey, hash)
	if err != nil {
		h.components.Logger.WithContentHash(hash).Error("failed to check blob ownership", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to check blob ownership")
	}
	if !owned {
		return echo.NewHTTPError(http.StatusNotFound, "blob not found")
	}

	return c.NoContent(http.StatusOK)
}

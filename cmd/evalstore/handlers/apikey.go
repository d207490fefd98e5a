package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/memofn/evalstore/cmd/evalstore/middleware"
	"github.com/memofn/evalstore/cmd/evalstore/models"
	"github.com/memofn/evalstore/cmd/evalstore/repository"
	"github.com/memofn/evalstore/common/bootstrap"
)

// APIKeyHandler handles API key provisioning
type APIKeyHandler struct {
	components *bootstrap.Components
	keys       *repository.APIKeyRepository
}

// NewAPIKeyHandler creates a new API key handler
func NewAPIKeyHandler(components *bootstrap.Components, keys *repository.APIKeyRepository) *APIKeyHandler {
	return &APIKeyHandler{
		components: components,
		keys:       keys,
	}
}

// GenerateKey mints a new API key for the logged-in user. This is the
// only endpoint that requires a session token rather than a key, since
// it is how keys come into existence in the first place.
// GET /api/v1/keys/generate
func (h *APIKeyHandler) GenerateKey(c echo.Context) error {
	claims, err := middleware.RequireClaims(c)
	if err != nil {
		return err
	}

	userID, err := claims.UserID()
	if err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "invalid session token")
	}

	key, err := models.NewKey()
	if err != nil {
		h.components.Logger.Error("failed to generate key material", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate key")
	}

	label := c.QueryParam("label")
	if label == "" {
		label = "default"
	}

	if err := h.keys.Insert(c.Request().Context(), userID, label, key); err != nil {
		if errors.Is(err, repository.ErrUnauthorized) {
			return echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
		}
		h.components.Logger.Error("failed to store api key", "user_id", userID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store api key")
	}

	return c.String(http.StatusOK, key)
}

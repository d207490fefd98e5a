package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/memofn/evalstore/cmd/evalstore/middleware"
	"github.com/memofn/evalstore/cmd/evalstore/models"
	"github.com/memofn/evalstore/cmd/evalstore/repository"
	"github.com/memofn/evalstore/common/bootstrap"
)

// userRepository is the slice of repository.UserRepository the handler
// needs. Tests substitute a fake.
type userRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// UserHandler serves the logged-in user's profile
type UserHandler struct {
	components *bootstrap.Components
	users      userRepository
}

// NewUserHandler creates a new user handler
func NewUserHandler(components *bootstrap.Components, users userRepository) *UserHandler {
	return &UserHandler{
		components: components,
		users:      users,
	}
}

// GetUser returns the profile of the session's subject.
// GET /api/v1/user
func (h *UserHandler) GetUser(c echo.Context) error {
	claims, err := middleware.RequireClaims(c)
	if err != nil {
		return err
	}

	userID, err := claims.UserID()
	if err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "invalid session token")
	}

	user, err := h.users.GetByID(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		h.components.Logger.Error("failed to load user", "user_id", userID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load user")
	}

	return c.JSON(http.StatusOK, user)
}

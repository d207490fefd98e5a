package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/memofn/evalstore/cmd/evalstore/service"
	"github.com/memofn/evalstore/common/bootstrap"
)

// LoginHandler handles the OAuth login exchange
type LoginHandler struct {
	components *bootstrap.Components
	login      *service.LoginService
}

// NewLoginHandler creates a new login handler
func NewLoginHandler(components *bootstrap.Components, login *service.LoginService) *LoginHandler {
	return &LoginHandler{
		components: components,
		login:      login,
	}
}

type loginRequest struct {
	Code string `json:"code"`
}

// Login redeems a GitHub OAuth authorization code for a session token.
// The token comes back as a plain string body, ready to use as a
// Bearer credential.
// POST /api/v1/login
func (h *LoginHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil || req.Code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing authorization code")
	}

	token, err := h.login.Login(c.Request().Context(), req.Code)
	if err != nil {
		if errors.Is(err, service.ErrLoginRejected) {
			return echo.NewHTTPError(http.StatusUnauthorized, "login rejected")
		}
		h.components.Logger.Error("login failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	return c.String(http.StatusOK, token)
}

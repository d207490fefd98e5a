package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/memofn/evalstore/cmd/evalstore/service"
	"github.com/memofn/evalstore/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthTestKit(t *testing.T) (*echo.Echo, *service.TokenService, echo.MiddlewareFunc) {
	t.Helper()
	e := echo.New()
	tokens := service.NewTokenService("test-secret", time.Hour)
	return e, tokens, ExtractCredential(tokens, logger.New("error", "text"))
}

func doRequest(e *echo.Echo, mw echo.MiddlewareFunc, authHeader string, handler echo.HandlerFunc) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := mw(handler)(c)
	if err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestExtractCredential_MissingHeader(t *testing.T) {
	e, _, mw := newAuthTestKit(t)

	rec := doRequest(e, mw, "", func(c echo.Context) error {
		t.Fatal("handler must not run without credentials")
		return nil
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExtractCredential_APIKeyPassedVerbatim(t *testing.T) {
	e, _, mw := newAuthTestKit(t)

	rec := doRequest(e, mw, "some-opaque-api-key", func(c echo.Context) error {
		key, err := RequireAPIKey(c)
		require.NoError(t, err)
		assert.Equal(t, "some-opaque-api-key", key)
		return c.NoContent(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExtractCredential_ValidBearerToken(t *testing.T) {
	e, tokens, mw := newAuthTestKit(t)

	userID := uuid.New()
	token, err := tokens.Issue(userID)
	require.NoError(t, err)

	rec := doRequest(e, mw, "Bearer "+token, func(c echo.Context) error {
		claims, err := RequireClaims(c)
		require.NoError(t, err)
		got, err := claims.UserID()
		require.NoError(t, err)
		assert.Equal(t, userID, got)
		return c.NoContent(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExtractCredential_InvalidBearerToken(t *testing.T) {
	e, _, mw := newAuthTestKit(t)

	rec := doRequest(e, mw, "Bearer not-a-real-token", func(c echo.Context) error {
		t.Fatal("handler must not run with a bad token")
		return nil
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestExtractCredential_ExpiredBearerToken(t *testing.T) {
	e, _, mw := newAuthTestKit(t)
	expired := service.NewTokenService("test-secret", -time.Minute)

	token, err := expired.Issue(uuid.New())
	require.NoError(t, err)

	rec := doRequest(e, mw, "Bearer "+token, func(c echo.Context) error {
		t.Fatal("handler must not run with an expired token")
		return nil
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// An endpoint requiring an API key must reject a session token even
// though the token itself is valid, and vice versa.
func TestCredential_NarrowingMismatch(t *testing.T) {
	e, tokens, mw := newAuthTestKit(t)

	token, err := tokens.Issue(uuid.New())
	require.NoError(t, err)

	rec := doRequest(e, mw, "Bearer "+token, func(c echo.Context) error {
		_, err := RequireAPIKey(c)
		return err
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(e, mw, "plain-api-key", func(c echo.Context) error {
		_, err := RequireClaims(c)
		return err
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetCredential_AbsentFromContext(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	_, err := GetCredential(c)
	require.Error(t, err)
}

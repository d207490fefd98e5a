package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/memofn/evalstore/cmd/evalstore/service"
	"github.com/memofn/evalstore/common/logger"
)

const credentialContextKey = "evalstore.credential"

// Credential is the parsed Authorization header, in one of two forms.
// A bearer token is verified eagerly, so a Credential holding claims is
// always a valid session. An API key is carried verbatim and only
// proves itself when a query resolves it to an owner.
type Credential struct {
	apiKey string
	claims *service.Claims
}

// APIKeyCredential wraps a raw API key.
func APIKeyCredential(key string) Credential {
	return Credential{apiKey: key}
}

// ClaimsCredential wraps verified session claims.
func ClaimsCredential(c *service.Claims) Credential {
	return Credential{claims: c}
}

// APIKey narrows to the API key form. Endpoints whose queries key on
// user_from_key accept only this form.
func (c Credential) APIKey() (string, error) {
	if c.claims != nil {
		return "", echo.NewHTTPError(http.StatusForbidden, "endpoint requires an api key, not a session token")
	}
	return c.apiKey, nil
}

// Claims narrows to the session token form.
func (c Credential) Claims() (*service.Claims, error) {
	if c.claims == nil {
		return nil, echo.NewHTTPError(http.StatusForbidden, "endpoint requires a session token, not an api key")
	}
	return c.claims, nil
}

// ExtractCredential parses the Authorization header into a Credential
// and stores it on the request context. A missing header is rejected
// outright; a Bearer value must verify as a session token, anything
// else is treated as an API key and passed through untouched.
func ExtractCredential(tokens *service.TokenService, log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			if raw, ok := strings.CutPrefix(header, "Bearer "); ok {
				claims, err := tokens.Verify(raw)
				if err != nil {
					log.Debug("session token rejected", "error", err)
					return echo.NewHTTPError(http.StatusForbidden, "invalid session token")
				}
				c.Set(credentialContextKey, ClaimsCredential(claims))
				return next(c)
			}

			c.Set(credentialContextKey, APIKeyCredential(header))
			return next(c)
		}
	}
}

// GetCredential returns the Credential stored by ExtractCredential.
func GetCredential(c echo.Context) (Credential, error) {
	cred, ok := c.Get(credentialContextKey).(Credential)
	if !ok {
		return Credential{}, echo.NewHTTPError(http.StatusUnauthorized, "missing credentials")
	}
	return cred, nil
}

// RequireAPIKey fetches the request credential narrowed to an API key.
func RequireAPIKey(c echo.Context) (string, error) {
	cred, err := GetCredential(c)
	if err != nil {
		return "", err
	}
	return cred.APIKey()
}

// RequireClaims fetches the request credential narrowed to session claims.
func RequireClaims(c echo.Context) (*service.Claims, error) {
	cred, err := GetCredential(c)
	if err != nil {
		return nil, err
	}
	return cred.Claims()
}

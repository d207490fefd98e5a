package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/memofn/evalstore/cmd/evalstore/models"
	"github.com/memofn/evalstore/cmd/evalstore/repository"
	"github.com/memofn/evalstore/common/config"
	"github.com/memofn/evalstore/common/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// ErrLoginRejected means the OAuth code exchange or the GitHub profile
// fetch failed. It maps to an auth failure rather than a server error.
var ErrLoginRejected = errors.New("login rejected")

const (
	ghUserURL   = "https://api.github.com/user"
	ghEmailsURL = "https://api.github.com/user/emails"
)

// LoginService exchanges a GitHub OAuth authorization code for a
// session token. The client is expected to run the browser half of the
// flow itself and hand us the resulting code.
type LoginService struct {
	oauth     *oauth2.Config
	users     *repository.UserRepository
	tokens    *TokenService
	userAgent string
	log       *logger.Logger
}

// NewLoginService creates a login service using the configured GitHub
// OAuth application.
func NewLoginService(cfg config.AuthConfig, users *repository.UserRepository, tokens *TokenService, log *logger.Logger) *LoginService {
	return &LoginService{
		oauth: &oauth2.Config{
			ClientID:     cfg.GHClientID,
			ClientSecret: cfg.GHClientSecret,
			Endpoint:     github.Endpoint,
		},
		users:     users,
		tokens:    tokens,
		userAgent: cfg.GHUserAgent,
		log:       log,
	}
}

type ghUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

type ghEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// Login redeems the authorization code, upserts the user from their
// GitHub profile and returns a signed session token.
func (s *LoginService) Login(ctx context.Context, code string) (string, error) {
	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		s.log.Warn("oauth code exchange failed", "error", err)
		return "", ErrLoginRejected
	}

	var user ghUser
	if err := s.ghGet(ctx, tok.AccessToken, ghUserURL, &user); err != nil {
		s.log.Warn("github profile fetch failed", "error", err)
		return "", ErrLoginRejected
	}

	var emails []ghEmail
	if err := s.ghGet(ctx, tok.AccessToken, ghEmailsURL, &emails); err != nil {
		s.log.Warn("github emails fetch failed", "error", err)
		return "", ErrLoginRejected
	}

	primary, ok := primaryEmail(emails)
	if !ok {
		return "", fmt.Errorf("%w: account has no primary email", ErrLoginRejected)
	}

	userID, err := s.users.UpsertFromGitHub(ctx, &models.UserUpsert{
		GhID:          user.ID,
		GhEmail:       primary.Email,
		GhLogin:       user.Login,
		GhToken:       tok.AccessToken,
		GhAvatarURL:   user.AvatarURL,
		EmailVerified: primary.Verified,
	})
	if err != nil {
		return "", err
	}

	return s.tokens.Issue(userID)
}

func primaryEmail(emails []ghEmail) (ghEmail, bool) {
	for _, e := range emails {
		if e.Primary {
			return e, true
		}
	}
	return ghEmail{}, false
}

// ghGet performs an authenticated GitHub API request. GitHub requires
// a User-Agent on every call.
func (s *LoginService) ghGet(ctx context.Context, accessToken, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("github api returned %d: %s", resp.StatusCode, body)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

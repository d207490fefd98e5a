package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/memofn/evalstore/cmd/evalstore/models"
	"github.com/memofn/evalstore/common/db"
	"github.com/memofn/evalstore/common/logger"
)

// UserRepository handles database operations for user accounts
type UserRepository struct {
	db  *db.DB
	log *logger.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *db.DB, log *logger.Logger) *UserRepository {
	return &UserRepository{db: db, log: log}
}

// UpsertFromGitHub creates the user on first login and refreshes the
// GitHub profile fields on every subsequent one. The GitHub account id
// is the identity anchor; login name, email and avatar are allowed to
// drift and are overwritten each time.
func (r *UserRepository) UpsertFromGitHub(ctx context.Context, u *models.UserUpsert) (uuid.UUID, error) {
	query := `
		INSERT INTO users (gh_id, gh_email, gh_login, gh_token, gh_avatar_url, email_verified)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (gh_id) DO UPDATE SET
			gh_email = EXCLUDED.gh_email,
			gh_login = EXCLUDED.gh_login,
			gh_token = EXCLUDED.gh_token,
			gh_avatar_url = EXCLUDED.gh_avatar_url,
			email_verified = EXCLUDED.email_verified
		RETURNING id
	`

	var id uuid.UUID
	err := r.db.QueryRow(ctx, query,
		u.GhID,
		u.GhEmail,
		u.GhLogin,
		u.GhToken,
		u.GhAvatarURL,
		u.EmailVerified,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	r.log.Info("user login", "user_id", id, "gh_login", u.GhLogin)

	return id, nil
}

// GetByID fetches a user by primary key.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `
		SELECT id, gh_id, gh_email, gh_login, gh_avatar_url, email_verified
		FROM users
		WHERE id = $1
	`

	var u models.User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.GhID,
		&u.GhEmail,
		&u.GhLogin,
		&u.GhAvatarURL,
		&u.EmailVerified,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &u, nil
}

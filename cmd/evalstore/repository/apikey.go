package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/memofn/evalstore/common/db"
	"github.com/memofn/evalstore/common/logger"
)

// APIKeyRepository handles database operations for API keys
type APIKeyRepository struct {
	db  *db.DB
	log *logger.Logger
}

// NewAPIKeyRepository creates a new API key repository
func NewAPIKeyRepository(db *db.DB, log *logger.Logger) *APIKeyRepository {
	return &APIKeyRepository{db: db, log: log}
}

// Insert stores a freshly generated key for the user.
func (r *APIKeyRepository) Insert(ctx context.Context, userID uuid.UUID, label, key string) error {
	query := `
		INSERT INTO api_keys (user_id, label, key)
		VALUES ($1, $2, $3)
	`

	_, err := r.db.Exec(ctx, query, userID, label, key)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrUnauthorized
		}
		return fmt.Errorf("failed to insert api key: %w", err)
	}

	r.log.Info("api key issued", "user_id", userID, "label", label)

	return nil
}

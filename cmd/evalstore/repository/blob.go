package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/memofn/evalstore/common/db"
	"github.com/memofn/evalstore/common/logger"
)

// querier is satisfied by both the pool and a transaction so the
// insert-or-fetch helpers can run in either.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// BlobRepository handles database operations for blob ownership rows
type BlobRepository struct {
	db  *db.DB
	log *logger.Logger
}

// NewBlobRepository creates a new blob repository
func NewBlobRepository(db *db.DB, log *logger.Logger) *BlobRepository {
	return &BlobRepository{db: db, log: log}
}

// The CTE inserts the row if absent and returns the canonical id either
// way. It never mutates an existing row. Under read committed the
// statement can yield zero rows when it races a concurrent first insert
// (the snapshot predates the winner's commit while the conflict check
// sees it); callers retry the SELECT to fetch the committed row.
const blobInsertOrFetchSQL = `
	WITH existing AS (
		SELECT id FROM blobs
		WHERE user_id = user_from_key($1)
		AND content_hash = $2
	), inserted AS (
		INSERT INTO blobs (user_id, content_hash)
		VALUES (user_from_key($1), $2)
		ON CONFLICT (user_id, content_hash) DO NOTHING
		RETURNING id
	)
	SELECT id FROM inserted
	UNION ALL
	SELECT id FROM existing
`

const blobSelectSQL = `
	SELECT id FROM blobs
	WHERE user_id = user_from_key($1)
	AND content_hash = $2
`

// insertOrFetchBlob resolves (owner, content_hash) to the canonical blob
// row id, inserting it when absent. Uniqueness conflicts are converted
// into fetches, never surfaced.
func insertOrFetchBlob(ctx context.Context, q querier, apiKey, contentHash string) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, blobInsertOrFetchSQL, apiKey, contentHash).Scan(&id)
	if err == nil {
		return id, nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the race against a concurrent identical insert. A fresh
		// statement gets a fresh snapshot that sees the committed row.
		err = q.QueryRow(ctx, blobSelectSQL, apiKey, contentHash).Scan(&id)
		if err == nil {
			return id, nil
		}
	}

	if isNotNullViolation(err) || isForeignKeyViolation(err) {
		// user_from_key resolved NULL: the key names no owner.
		return 0, ErrUnauthorized
	}

	return 0, fmt.Errorf("failed to insert blob row: %w", err)
}

// InsertOrFetch records blob ownership for the caller and returns the
// canonical row id.
func (r *BlobRepository) InsertOrFetch(ctx context.Context, apiKey, contentHash string) (int64, error) {
	return insertOrFetchBlob(ctx, r.db, apiKey, contentHash)
}

// OwnedByKey reports whether the caller owns a blob with the given
// content hash. This is the authorization check for blob reads: an
// invalid key and a missing blob produce the same answer.
func (r *BlobRepository) OwnedByKey(ctx context.Context, apiKey, contentHash string) (bool, error) {
	query := `
		SELECT count(id) FROM blobs
		WHERE content_hash = $1
		AND user_id = user_from_key($2)
	`

	var count int64
	err := r.db.QueryRow(ctx, query, contentHash, apiKey).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check blob ownership: %w", err)
	}

	return count == 1, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/memofn/evalstore/cmd/evalstore/models"
	"github.com/memofn/evalstore/common/db"
	"github.com/memofn/evalstore/common/logger"
)

// EvalRepository handles database operations for cached evaluations
type EvalRepository struct {
	db  *db.DB
	log *logger.Logger
}

// NewEvalRepository creates a new eval repository
func NewEvalRepository(db *db.DB, log *logger.Logger) *EvalRepository {
	return &EvalRepository{db: db, log: log}
}

// EvalQuery selects evals by any subset of the key fields. Nil fields
// act as wildcards. Poll additionally increments the access counter of
// every matched row as a side effect of the read.
type EvalQuery struct {
	FnKey        *string
	FnHash       *string
	ArgsHash     *string
	IsExperiment *bool
	Poll         bool
}

const evalInsertOrFetchSQL = `
	WITH existing AS (
		SELECT id FROM evals
		WHERE user_id = user_from_key($1)
		AND fn_key = $2
		AND fn_hash = $3
		AND args_hash = $4
	), inserted AS (
		INSERT INTO evals (user_id, fn_key, fn_hash, args, args_hash, blob_id, is_experiment, start_time)
		VALUES (user_from_key($1), $2, $3, $5, $4, $6, $7, $8)
		ON CONFLICT (user_id, fn_key, fn_hash, args_hash) DO NOTHING
		RETURNING id
	)
	SELECT id FROM inserted
	UNION ALL
	SELECT id FROM existing
`

const evalSelectIDSQL = `
	SELECT id FROM evals
	WHERE user_id = user_from_key($1)
	AND fn_key = $2
	AND fn_hash = $3
	AND args_hash = $4
`

// InsertWithBlob records the blob row and the eval row referencing it in
// a single transaction. Both inserts are insert-or-fetch: repeating an
// identical upload resolves to the existing ids, and concurrent
// identical uploads never observe a uniqueness violation. Nothing
// commits unless both rows resolve, so a blob-without-eval or
// eval-without-blob state is never visible to other transactions.
//
// The caller must only invoke this after the payload's content hash has
// been verified against the transmitted bytes.
func (r *EvalRepository) InsertWithBlob(ctx context.Context, apiKey string, ins *models.EvalInsert) (uuid.UUID, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	blobID, err := insertOrFetchBlob(ctx, tx, apiKey, ins.ContentHash)
	if err != nil {
		return uuid.Nil, err
	}

	evalID, err := insertOrFetchEval(ctx, tx, apiKey, ins, blobID)
	if err != nil {
		return uuid.Nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit transaction: %w", err)
	}

	r.log.Debug("recorded eval",
		"eval_id", evalID,
		"blob_id", blobID,
		"fn_key", ins.FnKey,
	)

	return evalID, nil
}

func insertOrFetchEval(ctx context.Context, q querier, apiKey string, ins *models.EvalInsert, blobID int64) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.QueryRow(ctx, evalInsertOrFetchSQL,
		apiKey,
		ins.FnKey,
		ins.FnHash,
		ins.ArgsHash,
		ins.Args,
		blobID,
		ins.IsExperiment,
		ins.StartTime,
	).Scan(&id)
	if err == nil {
		return id, nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		err = q.QueryRow(ctx, evalSelectIDSQL, apiKey, ins.FnKey, ins.FnHash, ins.ArgsHash).Scan(&id)
		if err == nil {
			return id, nil
		}
	}

	if isNotNullViolation(err) || isForeignKeyViolation(err) {
		return uuid.Nil, ErrUnauthorized
	}

	return uuid.Nil, fmt.Errorf("failed to insert eval row: %w", err)
}

const evalColumns = `e.fn_key, e.fn_hash, e.args, e.args_hash, b.content_hash, e.is_experiment, e.accesses, e.start_time`

// QueryByParams returns the caller's evals matching the query. With
// Poll set, the read also bumps the access counter of every matched row
// in the same statement.
func (r *EvalRepository) QueryByParams(ctx context.Context, apiKey string, params EvalQuery) ([]models.Eval, error) {
	var query string
	if params.Poll {
		query = `
			UPDATE evals e SET accesses = e.accesses + 1
			FROM blobs b
			WHERE b.id = e.blob_id
			AND (e.fn_key = $1 OR $1::text IS NULL)
			AND (e.fn_hash = $2 OR $2::text IS NULL)
			AND (e.args_hash = $3 OR $3::text IS NULL)
			AND (e.is_experiment = $4 OR $4::boolean IS NULL)
			AND e.user_id = user_from_key($5)
			RETURNING ` + evalColumns
	} else {
		query = `
			SELECT ` + evalColumns + `
			FROM evals e
			JOIN blobs b ON b.id = e.blob_id
			WHERE (e.fn_key = $1 OR $1::text IS NULL)
			AND (e.fn_hash = $2 OR $2::text IS NULL)
			AND (e.args_hash = $3 OR $3::text IS NULL)
			AND (e.is_experiment = $4 OR $4::boolean IS NULL)
			AND e.user_id = user_from_key($5)
		`
	}

	rows, err := r.db.Query(ctx, query,
		params.FnKey,
		params.FnHash,
		params.ArgsHash,
		params.IsExperiment,
		apiKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query evals: %w", err)
	}
	defer rows.Close()

	return scanEvals(rows)
}

// RecentExperiments lists the caller's newest experiment evals.
func (r *EvalRepository) RecentExperiments(ctx context.Context, apiKey string, count int64) ([]models.Eval, error) {
	query := `
		SELECT ` + evalColumns + `
		FROM evals e
		JOIN blobs b ON b.id = e.blob_id
		WHERE e.user_id = user_from_key($1)
		AND e.is_experiment
		ORDER BY e.start_time DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, apiKey, count)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}
	defer rows.Close()

	return scanEvals(rows)
}

func scanEvals(rows pgx.Rows) ([]models.Eval, error) {
	var evals []models.Eval
	for rows.Next() {
		var e models.Eval
		err := rows.Scan(
			&e.FnKey,
			&e.FnHash,
			&e.Args,
			&e.ArgsHash,
			&e.ContentHash,
			&e.IsExperiment,
			&e.Accesses,
			&e.StartTime,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan eval: %w", err)
		}
		evals = append(evals, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating evals: %w", err)
	}

	return evals, nil
}

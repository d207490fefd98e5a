package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrUnauthorized means the API key resolved no owner.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound means the query matched no row.
	ErrNotFound = errors.New("not found")
)

// Postgres error codes we inspect. Auth is performed inside queries via
// user_from_key, so an invalid key materializes as a NULL owner id
// hitting a NOT NULL or foreign key constraint rather than as a
// dedicated lookup failure.
const (
	pgNotNullViolation    = "23502"
	pgForeignKeyViolation = "23503"
)

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func isNotNullViolation(err error) bool    { return isPgCode(err, pgNotNullViolation) }
func isForeignKeyViolation(err error) bool { return isPgCode(err, pgForeignKeyViolation) }

func isNoRows(err error) bool { return errors.Is(err, pgx.ErrNoRows) }

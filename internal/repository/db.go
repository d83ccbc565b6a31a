package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/crmdesk/reply-service/pkg/util/errorutil"
)

const (
	pgInvalidTextRepresentation = "22P02"
	pgForeignKeyViolation       = "23503"
	pgUniqueViolation           = "23505"
	pgCheckViolation            = "23514"
)

// DB is the subset of *pgxpool.Pool the repositories use. pgx.Tx satisfies it too.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// WithTx runs fn inside a transaction, committing on success and rolling back on error.
func WithTx(ctx context.Context, db DB, fn func(pgx.Tx) error) error {
	if db == nil {
		return errors.New("postgres pool is nil")
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// IsNotFound reports whether err means the row does not exist or did not match.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// mapError normalises driver errors. A malformed id or a dangling reference reads
// as pgx.ErrNoRows, unique and check violations become domain errors.
func mapError(err error, entity string) error {
	if err == nil || errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgInvalidTextRepresentation, pgForeignKeyViolation:
		return fmt.Errorf("%s: %s: %w", entity, pgErr.Message, pgx.ErrNoRows)
	case pgUniqueViolation:
		return apperrors.NewConflict(entity+" already exists", map[string]any{"constraint": pgErr.ConstraintName})
	case pgCheckViolation:
		return apperrors.NewValidationError(entity+" is invalid", map[string]any{"constraint": pgErr.ConstraintName})
	}
	return err
}

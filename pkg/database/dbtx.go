package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the statement surface shared by pools, connections and transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DBTX is a Querier that can also open transactions. *pgxpool.Pool and the
// pgxmock pool both satisfy it.
type DBTX interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// PostgreSQL error codes the repositories react to.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// ErrBeginTx marks a transaction that could not be opened, so nothing ran.
var ErrBeginTx = errors.New("begin transaction")

// WithTx runs fn inside a transaction opened with opts. The transaction is
// committed when fn returns nil and rolled back otherwise. Errors returned by
// fn are passed through unwrapped.
func WithTx(ctx context.Context, db DBTX, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBeginTx, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func pgCode(err error) (string, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

// IsTransientConflict reports whether err is a serialization failure, a
// deadlock, or a lock timeout. Such transactions can be retried as a whole.
func IsTransientConflict(err error) bool {
	code, _ := pgCode(err)
	switch code {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return true
	}
	return false
}

// IsUniqueViolation reports whether err is a unique violation. When
// constraint is non-empty the violated constraint must match it.
func IsUniqueViolation(err error, constraint string) bool {
	code, name := pgCode(err)
	return code == codeUniqueViolation && (constraint == "" || constraint == name)
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	code, _ := pgCode(err)
	return code == codeForeignKeyViolation
}

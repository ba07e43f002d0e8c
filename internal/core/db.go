package core

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB defines the database operations used by services.
// *pgxpool.Pool satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Typed errors callers branch on.
var (
	// ErrNotFound means the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInstanceExists means the customer already has a non-terminal
	// instance; at most one may exist at a time.
	ErrInstanceExists = errors.New("customer already has an active instance")
	// ErrDomainExists means the hostname is already attached to an instance.
	ErrDomainExists = errors.New("hostname already registered")
	// ErrInvalidTransition means the requested state change is not allowed
	// from the row's current state.
	ErrInvalidTransition = errors.New("invalid state transition")
)

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

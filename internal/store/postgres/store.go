package postgres

import (
	"errors"

	"fieldops/internal/store"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
	// reports runs the read-only aggregate queries through database/sql.
	reports *sqlx.DB
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:    pool,
		reports: sqlx.NewDb(stdlib.OpenDBFromPool(pool), "pgx"),
	}
}

// Close releases the database/sql handle. The pool is owned by the caller.
func (s *Store) Close() error {
	return s.reports.Close()
}

func pgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

func isUniqueViolation(err error, constraint string) bool {
	pgErr, ok := pgError(err)
	if !ok || pgErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func isForeignKeyViolation(err error) bool {
	pgErr, ok := pgError(err)
	return ok && pgErr.Code == codeForeignKeyViolation
}

package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes the repositories translate into domain errors
const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

// constraintViolation returns the violated constraint name if err is a PostgreSQL error with code
func constraintViolation(err error, code string) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == code {
		return pgErr.ConstraintName, true
	}
	return "", false
}

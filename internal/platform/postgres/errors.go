package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// SQLSTATE codes the stores branch on.
const (
	UniqueViolation     = "23505"
	ForeignKeyViolation = "23503"
)

// ErrorCode returns the SQLSTATE of err under either supported driver, or
// "" when err did not come from the server.
func ErrorCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	assert.Equal(t, UniqueViolation, ErrorCode(&pq.Error{Code: "23505"}))
	assert.Equal(t, ForeignKeyViolation, ErrorCode(fmt.Errorf("bind: %w", &pgconn.PgError{Code: "23503"})))
	assert.Equal(t, "", ErrorCode(errors.New("connection reset")))
	assert.Equal(t, "", ErrorCode(nil))
}

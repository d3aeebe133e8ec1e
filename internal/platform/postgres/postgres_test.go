package postgres

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobilid/internal/platform/config"
)

func TestOpen_NoURLReturnsNil(t *testing.T) {
	db, err := Open(context.Background(), config.Database{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.Nil(t, db)
}

func TestMigrate(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "sqlmock")
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(schema)).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchema_DeclaresReferentialIntegrity(t *testing.T) {
	s := Schema()
	assert.Contains(t, s, "REFERENCES devices (device_id) ON DELETE CASCADE")
	assert.Contains(t, s, "REFERENCES passes (serial_number)")
	assert.Contains(t, s, "UNIQUE (version_hash)")
}

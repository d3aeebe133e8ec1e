package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobilid/internal/pass/models"
	"mobilid/pkg/platform/codec"
	"mobilid/pkg/platform/sentinel"
	"mobilid/pkg/platform/tx"
)

func setupPostgresMock(t *testing.T) (*PostgresStore, *sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { _ = sqlxDB.Close() })
	return NewPostgres(sqlxDB), sqlxDB, mock
}

var passColumns = []string{"serial_number", "pass_type", "version_hash", "auth_token", "last_update", "attributes", "fingerprint", "created_at"}

func passRowFor(t *testing.T, rec models.PassRecord) *sqlmock.Rows {
	t.Helper()
	attrs, err := codec.Marshal(rec.Attributes)
	require.NoError(t, err)
	fp, err := models.FingerprintOf(rec.Attributes)
	require.NoError(t, err)
	return sqlmock.NewRows(passColumns).AddRow(
		rec.SerialNumber, rec.PassType, rec.VersionHash, rec.AuthToken,
		rec.LastUpdate, attrs, fp[:], rec.LastUpdate,
	)
}

func TestPostgres_Get(t *testing.T) {
	s, _, mock := setupPostgresMock(t)
	rec := newRecord("1234567", "H1", t0)

	mock.ExpectQuery(regexp.QuoteMeta(selectPass + ` WHERE serial_number = $1`)).
		WithArgs("1234567").
		WillReturnRows(passRowFor(t, rec))

	got, err := s.Get(context.Background(), "1234567")
	require.NoError(t, err)
	assert.Equal(t, "H1", got.VersionHash)
	assert.Equal(t, "Jane Doe", got.Attributes.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetByAuth_NotFound(t *testing.T) {
	s, _, mock := setupPostgresMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectPass+` WHERE serial_number = $1 AND auth_token = $2`)).
		WithArgs("1234567", "bad").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetByAuth(context.Background(), "1234567", "bad")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	_, err = s.GetByAuth(context.Background(), "1234567", "")
	assert.ErrorIs(t, err, sentinel.ErrNotFound, "empty token short-circuits")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Upsert(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "written",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(upsertPass)).WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "backward write",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(upsertPass)).WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: models.ErrStaleWrite,
		},
		{
			name: "hash taken",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(upsertPass)).WillReturnError(&pq.Error{Code: "23505"})
			},
			wantErr: models.ErrHashTaken,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, mock := setupPostgresMock(t)
			tt.setup(mock)

			err := s.Upsert(context.Background(), newRecord("1234567", "H2", t0.Add(time.Second)))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgres_UpsertInTxTakesAdvisoryLock(t *testing.T) {
	s, db, mock := setupPostgresMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock(hashtext($1))`)).
		WithArgs("1234567").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(upsertPass)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := tx.NewPostgres(db).RunInTx(context.Background(), func(ctx context.Context) error {
		return s.Upsert(ctx, newRecord("1234567", "H2", t0))
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_VersionHashExists(t *testing.T) {
	s, _, mock := setupPostgresMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM passes WHERE version_hash = $1)`)).
		WithArgs("H1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := s.VersionHashExists(context.Background(), "H1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPostgres_ListSerialNumbers(t *testing.T) {
	s, _, mock := setupPostgresMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT serial_number FROM passes ORDER BY serial_number`)).
		WillReturnRows(sqlmock.NewRows([]string{"serial_number"}).AddRow("1111111").AddRow("2222222"))

	got, err := s.ListSerialNumbers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1111111", "2222222"}, got)
}

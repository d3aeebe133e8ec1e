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

	"mobilid/pkg/platform/sentinel"
)

func setupPostgresMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { _ = sqlxDB.Close() })
	return NewPostgres(sqlxDB), mock
}

func TestPostgres_Bind(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(mock sqlmock.Sqlmock)
		wantCreated bool
		wantErr     error
	}{
		{
			name: "new binding",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(insertRegistration)).
					WithArgs("dev-1", "1234567", sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows([]string{"device_id"}).AddRow("dev-1"))
			},
			wantCreated: true,
		},
		{
			name: "already bound",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(insertRegistration)).
					WithArgs("dev-1", "1234567", sqlmock.AnyArg()).
					WillReturnError(sql.ErrNoRows)
			},
		},
		{
			name: "unknown pass",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(insertRegistration)).
					WithArgs("dev-1", "1234567", sqlmock.AnyArg()).
					WillReturnError(&pq.Error{Code: "23503"})
			},
			wantErr: sentinel.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := setupPostgresMock(t)
			tt.setup(mock)

			created, err := s.Bind(context.Background(), "dev-1", "1234567")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCreated, created)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgres_UnbindRemovesOrphanDevice(t *testing.T) {
	s, mock := setupPostgresMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockDevice)).WithArgs("dev-1").
		WillReturnRows(sqlmock.NewRows([]string{"device_id"}).AddRow("dev-1"))
	mock.ExpectExec(regexp.QuoteMeta(deleteRegistration)).WithArgs("dev-1", "1234567").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(deleteOrphanDevice)).WithArgs("dev-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	removed, err := s.Unbind(context.Background(), "dev-1", "1234567")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UnbindUnknownDeviceIsNoop(t *testing.T) {
	s, mock := setupPostgresMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockDevice)).WithArgs("ghost").WillReturnError(sql.ErrNoRows)
	mock.ExpectCommit()

	removed, err := s.Unbind(context.Background(), "ghost", "1234567")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UnbindSerial(t *testing.T) {
	s, mock := setupPostgresMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockDevicesOfSerial)).WithArgs("1234567").
		WillReturnRows(sqlmock.NewRows([]string{"device_id"}).AddRow("dev-1").AddRow("dev-2"))
	mock.ExpectExec(regexp.QuoteMeta(deleteSerialRegistrations)).WithArgs("1234567").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(deleteOrphanDevices)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := s.UnbindSerial(context.Background(), "1234567")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListSerialsForDevice(t *testing.T) {
	s, mock := setupPostgresMock(t)
	t1 := time.Date(2024, 3, 1, 12, 1, 0, 0, time.UTC)
	since := t1.Add(-time.Minute)

	mock.ExpectQuery(regexp.QuoteMeta(listSerialsForDevice)).
		WithArgs("dev-1", "pass.edu.oc.id", since).
		WillReturnRows(sqlmock.NewRows([]string{"serial_number", "last_update"}).
			AddRow("1234567", t1).
			AddRow("7654321", since.Add(time.Second)))

	got, err := s.ListSerialsForDevice(context.Background(), "dev-1", "pass.edu.oc.id", &since)
	require.NoError(t, err)
	assert.Equal(t, []string{"1234567", "7654321"}, got.SerialNumbers)
	assert.Equal(t, t1, got.LastUpdated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

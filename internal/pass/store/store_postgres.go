package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"mobilid/internal/pass/models"
	"mobilid/internal/platform/postgres"
	"mobilid/pkg/platform/codec"
	"mobilid/pkg/platform/sentinel"
	"mobilid/pkg/platform/tx"
)

// PostgresStore persists pass records in PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type passRow struct {
	SerialNumber string    `db:"serial_number"`
	PassType     string    `db:"pass_type"`
	VersionHash  string    `db:"version_hash"`
	AuthToken    string    `db:"auth_token"`
	LastUpdate   time.Time `db:"last_update"`
	Attributes   []byte    `db:"attributes"`
	Fingerprint  []byte    `db:"fingerprint"`
	CreatedAt    time.Time `db:"created_at"`
}

const selectPass = `SELECT serial_number, pass_type, version_hash, auth_token, last_update, attributes, fingerprint, created_at FROM passes`

func (s *PostgresStore) Get(ctx context.Context, serial string) (models.PassRecord, error) {
	return s.getOne(ctx, selectPass+` WHERE serial_number = $1`, serial)
}

func (s *PostgresStore) GetByVersionHash(ctx context.Context, hash string) (models.PassRecord, error) {
	return s.getOne(ctx, selectPass+` WHERE version_hash = $1`, hash)
}

func (s *PostgresStore) GetByAuth(ctx context.Context, serial, authToken string) (models.PassRecord, error) {
	if authToken == "" {
		return models.PassRecord{}, sentinel.ErrNotFound
	}
	return s.getOne(ctx, selectPass+` WHERE serial_number = $1 AND auth_token = $2`, serial, authToken)
}

func (s *PostgresStore) getOne(ctx context.Context, query string, args ...any) (models.PassRecord, error) {
	var row passRow
	if err := tx.Pick(ctx, s.db).GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PassRecord{}, sentinel.ErrNotFound
		}
		return models.PassRecord{}, fmt.Errorf("get pass: %w", err)
	}
	return toRecord(row)
}

func (s *PostgresStore) Exists(ctx context.Context, serial string) (bool, error) {
	var exists bool
	err := tx.Pick(ctx, s.db).GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM passes WHERE serial_number = $1)`, serial)
	if err != nil {
		return false, fmt.Errorf("check pass exists: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ListSerialNumbers(ctx context.Context) ([]string, error) {
	serials := []string{}
	if err := tx.Pick(ctx, s.db).SelectContext(ctx, &serials, `SELECT serial_number FROM passes ORDER BY serial_number`); err != nil {
		return nil, fmt.Errorf("list serial numbers: %w", err)
	}
	return serials, nil
}

func (s *PostgresStore) VersionHashExists(ctx context.Context, hash string) (bool, error) {
	var exists bool
	err := tx.Pick(ctx, s.db).GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM passes WHERE version_hash = $1)`, hash)
	if err != nil {
		return false, fmt.Errorf("check version hash: %w", err)
	}
	return exists, nil
}

const upsertPass = `INSERT INTO passes (serial_number, pass_type, version_hash, auth_token, last_update, attributes, fingerprint, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (serial_number) DO UPDATE SET
	version_hash = EXCLUDED.version_hash,
	last_update = EXCLUDED.last_update,
	attributes = EXCLUDED.attributes,
	fingerprint = EXCLUDED.fingerprint
WHERE passes.last_update <= EXCLUDED.last_update`

// Upsert writes hash, last_update, attributes and fingerprint in a single
// statement so readers never see a hash paired with other-version data.
// Inside a transaction the serial's advisory lock is taken first.
func (s *PostgresStore) Upsert(ctx context.Context, rec models.PassRecord) error {
	attrs, err := codec.Marshal(rec.Attributes)
	if err != nil {
		return fmt.Errorf("encode attributes: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.LastUpdate
	}

	q := tx.Pick(ctx, s.db)
	if _, inTx := tx.From(ctx); inTx {
		if _, err := q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, rec.SerialNumber); err != nil {
			return fmt.Errorf("lock pass %s: %w", rec.SerialNumber, err)
		}
	}

	res, err := q.ExecContext(ctx, upsertPass,
		rec.SerialNumber, rec.PassType, rec.VersionHash, rec.AuthToken,
		rec.LastUpdate.UTC(), attrs, rec.Fingerprint[:], rec.CreatedAt.UTC())
	if err != nil {
		if postgres.ErrorCode(err) == postgres.UniqueViolation {
			return models.ErrHashTaken
		}
		return fmt.Errorf("upsert pass: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("upsert pass rows affected: %w", err)
	}
	if n == 0 {
		return models.ErrStaleWrite
	}
	return nil
}

func toRecord(row passRow) (models.PassRecord, error) {
	rec := models.PassRecord{
		SerialNumber: row.SerialNumber,
		PassType:     row.PassType,
		VersionHash:  row.VersionHash,
		AuthToken:    row.AuthToken,
		LastUpdate:   row.LastUpdate.UTC(),
		CreatedAt:    row.CreatedAt.UTC(),
	}
	if err := codec.Unmarshal(row.Attributes, &rec.Attributes); err != nil {
		return models.PassRecord{}, fmt.Errorf("decode attributes for %s: %w", row.SerialNumber, err)
	}
	if len(row.Fingerprint) != len(rec.Fingerprint) {
		return models.PassRecord{}, fmt.Errorf("fingerprint for %s has length %d", row.SerialNumber, len(row.Fingerprint))
	}
	copy(rec.Fingerprint[:], row.Fingerprint)
	return rec, nil
}

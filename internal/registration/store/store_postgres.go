package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"mobilid/internal/platform/postgres"
	"mobilid/internal/registration/models"
	"mobilid/pkg/platform/sentinel"
	"mobilid/pkg/platform/tx"
	"mobilid/pkg/requestcontext"
)

// PostgresStore is the registration directory backed by PostgreSQL. The
// schema enforces referential integrity with foreign keys to passes and
// devices.
type PostgresStore struct {
	db *sqlx.DB
	tx tx.Runner
}

func NewPostgres(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db, tx: tx.NewPostgres(db)}
}

const upsertDevice = `INSERT INTO devices (device_id, push_address, platform, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (device_id) DO UPDATE SET
	push_address = EXCLUDED.push_address,
	platform = CASE WHEN EXCLUDED.platform = '' THEN devices.platform ELSE EXCLUDED.platform END,
	updated_at = EXCLUDED.updated_at`

func (s *PostgresStore) RegisterDevice(ctx context.Context, deviceID, pushAddress, platform string) error {
	_, err := tx.Pick(ctx, s.db).ExecContext(ctx, upsertDevice, deviceID, pushAddress, platform, requestcontext.Now(ctx).UTC())
	if err != nil {
		return fmt.Errorf("register device: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDevice(ctx context.Context, deviceID string) (models.Device, error) {
	var d models.Device
	err := tx.Pick(ctx, s.db).GetContext(ctx, &d,
		`SELECT device_id, push_address, platform, created_at, updated_at FROM devices WHERE device_id = $1`, deviceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Device{}, sentinel.ErrNotFound
		}
		return models.Device{}, fmt.Errorf("get device: %w", err)
	}
	return d, nil
}

const insertRegistration = `INSERT INTO registrations (device_id, serial_number, created_at)
VALUES ($1, $2, $3)
ON CONFLICT DO NOTHING
RETURNING device_id`

// Bind reports created=false when the pair already existed. A missing device
// or pass surfaces as sentinel.ErrNotFound through the foreign keys.
func (s *PostgresStore) Bind(ctx context.Context, deviceID, serial string) (bool, error) {
	var inserted string
	err := tx.Pick(ctx, s.db).GetContext(ctx, &inserted, insertRegistration, deviceID, serial, requestcontext.Now(ctx).UTC())
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case postgres.ErrorCode(err) == postgres.ForeignKeyViolation:
		return false, fmt.Errorf("bind %s: %w", serial, sentinel.ErrNotFound)
	default:
		return false, fmt.Errorf("bind %s: %w", serial, err)
	}
}

const (
	lockDevice          = `SELECT device_id FROM devices WHERE device_id = $1 FOR UPDATE`
	deleteRegistration  = `DELETE FROM registrations WHERE device_id = $1 AND serial_number = $2`
	deleteOrphanDevice  = `DELETE FROM devices WHERE device_id = $1 AND NOT EXISTS (SELECT 1 FROM registrations WHERE device_id = $1)`
	lockDevicesOfSerial = `SELECT d.device_id FROM devices d JOIN registrations r ON r.device_id = d.device_id
WHERE r.serial_number = $1 ORDER BY d.device_id FOR UPDATE OF d`
	deleteSerialRegistrations = `DELETE FROM registrations WHERE serial_number = $1`
	deleteOrphanDevices       = `DELETE FROM devices WHERE device_id = ANY($1)
AND NOT EXISTS (SELECT 1 FROM registrations r WHERE r.device_id = devices.device_id)`
)

// Unbind deletes the pair and the device when no bindings remain, in one
// transaction. The device row is locked first so a concurrent Bind for the
// same device cannot slip in between the two deletes.
func (s *PostgresStore) Unbind(ctx context.Context, deviceID, serial string) (bool, error) {
	var removed bool
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		q := tx.Pick(ctx, s.db)

		var locked string
		if err := q.GetContext(ctx, &locked, lockDevice, deviceID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("lock device: %w", err)
		}
		if _, err := q.ExecContext(ctx, deleteRegistration, deviceID, serial); err != nil {
			return fmt.Errorf("delete registration: %w", err)
		}
		res, err := q.ExecContext(ctx, deleteOrphanDevice, deviceID)
		if err != nil {
			return fmt.Errorf("delete device: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete device rows affected: %w", err)
		}
		removed = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// UnbindSerial retires a pass from the directory, cascading to devices left
// without bindings. Returns the number of registrations removed.
func (s *PostgresStore) UnbindSerial(ctx context.Context, serial string) (int, error) {
	var removed int
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		q := tx.Pick(ctx, s.db)

		var deviceIDs []string
		if err := q.SelectContext(ctx, &deviceIDs, lockDevicesOfSerial, serial); err != nil {
			return fmt.Errorf("lock devices for serial: %w", err)
		}
		if len(deviceIDs) == 0 {
			return nil
		}
		res, err := q.ExecContext(ctx, deleteSerialRegistrations, serial)
		if err != nil {
			return fmt.Errorf("delete registrations for serial: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete registrations rows affected: %w", err)
		}
		removed = int(n)
		if _, err := q.ExecContext(ctx, deleteOrphanDevices, pq.Array(deviceIDs)); err != nil {
			return fmt.Errorf("delete orphaned devices: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *PostgresStore) HasRegistrations(ctx context.Context, deviceID string) (bool, error) {
	var exists bool
	err := tx.Pick(ctx, s.db).GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM registrations WHERE device_id = $1)`, deviceID)
	if err != nil {
		return false, fmt.Errorf("check registrations: %w", err)
	}
	return exists, nil
}

const listSerialsForDevice = `SELECT p.serial_number, p.last_update
FROM registrations r
JOIN passes p ON p.serial_number = r.serial_number
WHERE r.device_id = $1
AND ($2 = '' OR p.pass_type = $2)
AND ($3::timestamptz IS NULL OR p.last_update > $3::timestamptz)
ORDER BY p.serial_number`

type serialRow struct {
	SerialNumber string    `db:"serial_number"`
	LastUpdate   time.Time `db:"last_update"`
}

func (s *PostgresStore) ListSerialsForDevice(ctx context.Context, deviceID, passType string, updatedSince *time.Time) (models.SerialList, error) {
	var since any
	if updatedSince != nil {
		since = updatedSince.UTC()
	}

	var rows []serialRow
	if err := tx.Pick(ctx, s.db).SelectContext(ctx, &rows, listSerialsForDevice, deviceID, passType, since); err != nil {
		return models.SerialList{}, fmt.Errorf("list serials for device: %w", err)
	}

	out := models.SerialList{SerialNumbers: make([]string, 0, len(rows))}
	for _, r := range rows {
		out.SerialNumbers = append(out.SerialNumbers, r.SerialNumber)
		if r.LastUpdate.After(out.LastUpdated) {
			out.LastUpdated = r.LastUpdate.UTC()
		}
	}
	return out, nil
}

func (s *PostgresStore) ListDevicesForSerial(ctx context.Context, serial string) ([]models.Device, error) {
	var devices []models.Device
	err := tx.Pick(ctx, s.db).SelectContext(ctx, &devices,
		`SELECT d.device_id, d.push_address, d.platform, d.created_at, d.updated_at
FROM devices d JOIN registrations r ON r.device_id = d.device_id
WHERE r.serial_number = $1 ORDER BY d.device_id`, serial)
	if err != nil {
		return nil, fmt.Errorf("list devices for serial: %w", err)
	}
	return devices, nil
}

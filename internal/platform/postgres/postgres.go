package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // registers the "postgres" driver

	"mobilid/internal/platform/config"
)

//go:embed schema.sql
var schema string

// Open connects to PostgreSQL and applies pool limits. Returns nil when no
// URL is configured so the caller can fall back to in-memory stores.
func Open(ctx context.Context, cfg config.Database, logger *slog.Logger) (*sqlx.DB, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	driver := cfg.Driver
	if driver == "" {
		driver = "postgres"
	}
	db, err := sqlx.ConnectContext(ctx, driver, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if cfg.MigrateOnStart {
		if err := Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	logger.InfoContext(ctx, "postgres connected", "driver", driver, "max_open_conns", cfg.MaxOpenConns)
	return db, nil
}

// Migrate applies the idempotent schema.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Schema returns the DDL, used by integration tests.
func Schema() string {
	return schema
}

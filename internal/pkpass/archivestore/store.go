// Package archivestore persists built pass archives keyed by serial number
// and version hash.
package archivestore

import (
	"context"
	"fmt"
	"strings"

	"mobilid/internal/platform/config"
)

// Store holds signed archives. Get returns sentinel.ErrNotFound for an
// unknown key. Delete of a missing key is not an error.
type Store interface {
	Put(ctx context.Context, serial, versionHash string, data []byte) error
	Get(ctx context.Context, serial, versionHash string) ([]byte, error)
	Delete(ctx context.Context, serial, versionHash string) error
}

// objectKey nests archives by serial so one pass's history lists together.
func objectKey(serial, versionHash string) string {
	return "passes/" + serial + "/" + versionHash + ".pkpass"
}

// New builds the store selected by cfg.Driver.
func New(ctx context.Context, cfg config.Storage) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "memory":
		return NewInMemory(), nil
	case "minio":
		return NewMinio(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

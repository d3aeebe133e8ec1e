package archivestore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"mobilid/pkg/platform/codec"
)

const cacheKeyPrefix = "pkpass:"

// envelope is the cached form. Serial and hash are stored alongside the
// bytes so a key collision can never serve the wrong pass.
type envelope struct {
	Serial      string    `cbor:"1,keyasint"`
	VersionHash string    `cbor:"2,keyasint"`
	StoredAt    time.Time `cbor:"3,keyasint"`
	Data        []byte    `cbor:"4,keyasint"`
}

// CachedStore is a read-through Redis cache in front of another Store.
// Cache failures are logged and never fail the call.
type CachedStore struct {
	next   Store
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

type CacheOption func(*CachedStore)

func WithCacheLogger(l *slog.Logger) CacheOption {
	return func(c *CachedStore) { c.logger = l }
}

// NewCached wraps next. A nil client returns next unchanged.
func NewCached(next Store, client *redis.Client, ttl time.Duration, opts ...CacheOption) Store {
	if client == nil {
		return next
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	c := &CachedStore{next: next, client: client, ttl: ttl, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func cacheKey(serial, versionHash string) string {
	return cacheKeyPrefix + serial + ":" + versionHash
}

func (c *CachedStore) Put(ctx context.Context, serial, versionHash string, data []byte) error {
	if err := c.next.Put(ctx, serial, versionHash, data); err != nil {
		return err
	}
	c.fill(ctx, serial, versionHash, data)
	return nil
}

func (c *CachedStore) Get(ctx context.Context, serial, versionHash string) ([]byte, error) {
	raw, err := c.client.Get(ctx, cacheKey(serial, versionHash)).Bytes()
	switch {
	case err == nil:
		var env envelope
		if derr := codec.Unmarshal(raw, &env); derr == nil && env.Serial == serial && env.VersionHash == versionHash {
			return env.Data, nil
		}
		c.logger.WarnContext(ctx, "discarding unreadable archive cache entry", "serial", serial)
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "archive cache read failed", "serial", serial, "error", err)
	}

	data, err := c.next.Get(ctx, serial, versionHash)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, serial, versionHash, data)
	return data, nil
}

func (c *CachedStore) Delete(ctx context.Context, serial, versionHash string) error {
	if err := c.client.Del(ctx, cacheKey(serial, versionHash)).Err(); err != nil {
		c.logger.WarnContext(ctx, "archive cache invalidate failed", "serial", serial, "error", err)
	}
	return c.next.Delete(ctx, serial, versionHash)
}

func (c *CachedStore) fill(ctx context.Context, serial, versionHash string, data []byte) {
	raw, err := codec.Marshal(envelope{Serial: serial, VersionHash: versionHash, StoredAt: time.Now().UTC(), Data: data})
	if err != nil {
		c.logger.WarnContext(ctx, "archive cache encode failed", "serial", serial, "error", err)
		return
	}
	if err := c.client.Set(ctx, cacheKey(serial, versionHash), raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "archive cache write failed", "serial", serial, "error", err)
	}
}

// Package lock provides the per-serial refresh lock. Acquisition never
// blocks: a held lock means another refresh is already authoritative and
// the caller coalesces into it.
package lock

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"mobilid/pkg/platform/tx"
)

// Release gives the lock back. It is safe to call more than once and never
// releases a lock that has since been taken by someone else.
type Release func(ctx context.Context) error

const keyPrefix = "lock:pass:"

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker shares locks across replicas with SET NX PX.
type RedisLocker struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (Release, bool, error) {
	token, err := newToken()
	if err != nil {
		return nil, false, err
	}
	ok, err := l.client.SetNX(ctx, keyPrefix+key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	var once sync.Once
	return func(ctx context.Context) error {
		var rerr error
		once.Do(func() {
			rerr = releaseScript.Run(ctx, l.client, []string{keyPrefix + key}, token).Err()
		})
		return rerr
	}, true, nil
}

type localEntry struct {
	token   string
	expires time.Time
}

type localShard struct {
	mu   sync.Mutex
	held map[string]localEntry
}

// LocalLocker is the single-process fallback used when no Redis is
// configured. Keys are spread across shards so unrelated serials do not
// contend on one mutex.
type LocalLocker struct {
	shards [32]localShard
	now    func() time.Time
}

func NewLocal() *LocalLocker {
	l := &LocalLocker{now: time.Now}
	for i := range l.shards {
		l.shards[i].held = make(map[string]localEntry)
	}
	return l
}

func (l *LocalLocker) shard(key string) *localShard {
	return &l.shards[tx.HashKey(key)%uint32(len(l.shards))]
}

func (l *LocalLocker) TryAcquire(_ context.Context, key string, ttl time.Duration) (Release, bool, error) {
	token, err := newToken()
	if err != nil {
		return nil, false, err
	}
	s := l.shard(key)
	now := l.now()

	s.mu.Lock()
	if e, ok := s.held[key]; ok && now.Before(e.expires) {
		s.mu.Unlock()
		return nil, false, nil
	}
	s.held[key] = localEntry{token: token, expires: now.Add(ttl)}
	s.mu.Unlock()

	return func(context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if e, ok := s.held[key]; ok && e.token == token {
			delete(s.held, key)
		}
		return nil
	}, true, nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("lock token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

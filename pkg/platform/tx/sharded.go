package tx

import (
	"context"
	"sync"
	"time"

	dErrors "mobilid/pkg/domain-errors"
)

// numShards spreads in-memory units of work across independent mutexes keyed
// by a caller-supplied partition key.
const numShards = 128

type (
	shardKey  struct{}
	allShards struct{}
	heldKey   struct{}
)

// WithShardKey selects the lock shard used by Sharded.RunInTx. Work without a
// key serializes on shard 0.
func WithShardKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, shardKey{}, key)
}

// WithAllShards makes Sharded.RunInTx hold every shard, for work that spans
// keys it cannot name up front.
func WithAllShards(ctx context.Context) context.Context {
	return context.WithValue(ctx, allShards{}, true)
}

// Sharded is the in-memory Runner. Work for different keys proceeds in
// parallel while work for the same key serializes.
type Sharded struct {
	shards  [numShards]sync.Mutex
	timeout time.Duration
}

// NewSharded creates an in-memory transaction runner.
func NewSharded() *Sharded {
	return &Sharded{timeout: DefaultTimeout}
}

func (t *Sharded) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if ctx.Value(heldKey{}) != nil {
		return fn(ctx)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	if all, _ := ctx.Value(allShards{}).(bool); all {
		// Ascending order, so two exclusive units cannot deadlock.
		for i := range t.shards {
			t.shards[i].Lock()
		}
		defer func() {
			for i := range t.shards {
				t.shards[i].Unlock()
			}
		}()
	} else {
		shard := t.selectShard(ctx)
		t.shards[shard].Lock()
		defer t.shards[shard].Unlock()
	}

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(context.WithValue(ctx, heldKey{}, true))
}

func (t *Sharded) selectShard(ctx context.Context) int {
	if key, ok := ctx.Value(shardKey{}).(string); ok && key != "" {
		return int(HashKey(key) % numShards)
	}
	return 0
}

// HashKey is FNV-1a over s.
func HashKey(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}

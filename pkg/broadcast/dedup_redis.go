package broadcast

import (
	"time"

	"github.com/redis/go-redis/v9"

	"meshrelay.dev/pkg/utils/context"
)

// RedisDedup backs the dedup record with a shared Redis instance instead
// of this process's memory, so duplicate suppression survives a single
// instance's own restart across a fleet. This is an enrichment beyond the
// spec's bare in-memory requirement (§9 open question 3: retention only
// needs to exceed cross-region propagation delay, not be backed by any
// particular store) — it is opt-in and off by default; the in-memory
// backend above is what §3/§4.7 describe directly.
type RedisDedup struct {
	client *redis.Client
	prefix string
}

// NewRedisDedup builds a RedisDedup over an already-configured client,
// namespacing its keys under prefix so the dedup record doesn't collide
// with any other use of the same Redis instance.
func NewRedisDedup(client *redis.Client, prefix string) *RedisDedup {
	return &RedisDedup{client: client, prefix: prefix}
}

// CheckAndMark uses SETNX with the retention window as the key's TTL: the
// SET only succeeds the first time, so a failed SET means the id was
// already marked by this or another instance sharing the same Redis.
func (r *RedisDedup) CheckAndMark(ctx context.T, id string, retention time.Duration) (bool, error) {
	set, err := r.client.SetNX(ctx, r.prefix+id, 1, retention).Result()
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Sweep is a no-op: Redis expires keys by their own TTL.
func (r *RedisDedup) Sweep(time.Duration) {}

package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue is the producer side of the persistence worker queues. Payloads
// are JSON; workers consume with BLPOP so pushes go to the tail.
type RedisQueue struct {
	rdb *redis.Client
}

// NewRedisQueue creates a new RedisQueue.
func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb}
}

// Push appends one payload to the named queue.
func (q *RedisQueue) Push(ctx context.Context, queue string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, queue, payload).Err()
}

// Publish fans one payload out on a PubSub channel. Fire-and-forget for
// dashboard consumers; no delivery guarantee.
func (q *RedisQueue) Publish(ctx context.Context, channel string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return q.rdb.Publish(ctx, channel, payload).Err()
}

// AcquireLock takes a TTL-bounded exclusive lock. Returns false when another
// holder already has the key.
func (q *RedisQueue) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return q.rdb.SetNX(ctx, key, "1", ttl).Result()
}

// ReleaseLock drops a lock before its TTL expires.
func (q *RedisQueue) ReleaseLock(ctx context.Context, key string) error {
	return q.rdb.Del(ctx, key).Err()
}

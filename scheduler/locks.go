package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// Lock key space, structured per concern. InventoryLockKey is consumed by
// adjacent stock-affecting subsystems, not by the scheduler itself.
func TankLockKey(breweryId string, tankId int) string {
	return fmt.Sprintf("tank:%s:%d", breweryId, tankId)
}

func BatchCreateLockKey(breweryId string) string {
	return fmt.Sprintf("batch:create:%s", breweryId)
}

func InventoryLockKey(breweryId string, itemId int) string {
	return fmt.Sprintf("inventory:%s:%d", breweryId, itemId)
}

// Locker provides mutual exclusion per key. WithLock blocks for at most the
// sum of its retry backoffs before failing with ErrLockTimeout.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error
}

// IdempotencyCache stores JSON-serialized operation results keyed by
// idempotency key, expiring after a TTL.
type IdempotencyCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

const (
	lockRetryMin   = 64 * time.Millisecond
	lockRetryMax   = time.Second
	lockRetryCount = 10
)

// RedisLocker implements Locker over redislock. Ownership is proven by
// redislock's random token compared on release, so a stale holder cannot
// release a lock it no longer owns. If the holder crashes the lock expires
// after its TTL.
type RedisLocker struct {
	client *redislock.Client
}

func NewRedisLocker(client *redislock.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error {
	lock, err := l.client.Obtain(ctx, key, ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(
			redislock.ExponentialBackoff(lockRetryMin, lockRetryMax), lockRetryCount),
	})
	if err == redislock.ErrNotObtained {
		return ErrLockTimeout
	} else if err != nil {
		return err
	}
	defer func() {
		_ = lock.Release(ctx)
	}()

	return fn()
}

// RedisIdempotencyCache stores results as JSON values with a TTL. After the
// TTL a retried request with the same key is treated as new by the cache;
// the durable models.IdempotencyKey row then rejects it as a duplicate.
type RedisIdempotencyCache struct {
	rdb *redis.Client
}

func NewRedisIdempotencyCache(rdb *redis.Client) *RedisIdempotencyCache {
	return &RedisIdempotencyCache{rdb: rdb}
}

func (c *RedisIdempotencyCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if c.rdb == nil {
		return false, nil
	}
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisIdempotencyCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.rdb == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

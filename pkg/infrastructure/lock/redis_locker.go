package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/vsinha/lotalloc/pkg/domain/entities"
	"github.com/vsinha/lotalloc/pkg/domain/repositories"
)

const keyPrefix = "lotalloc:commit"

// RedisLocker holds a Redis lock per order line while a commit runs
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
}

// Verify interface compliance
var _ repositories.CommitLocker = (*RedisLocker)(nil)

// NewRedisLocker creates a locker whose locks expire after ttl if never released
func NewRedisLocker(rdb redis.UniversalClient, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		client: redislock.New(rdb),
		ttl:    ttl,
	}
}

// LockKey is the Redis key guarding commits for a line
func LockKey(orderLineID entities.OrderLineID) string {
	return fmt.Sprintf("%s:%d", keyPrefix, orderLineID)
}

// Obtain takes the line's lock without waiting. A held lock yields
// repositories.ErrLockNotObtained.
func (l *RedisLocker) Obtain(ctx context.Context, orderLineID entities.OrderLineID) (func(context.Context) error, error) {
	lock, err := l.client.Obtain(ctx, LockKey(orderLineID), l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("order line %d: %w", orderLineID, repositories.ErrLockNotObtained)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock for order line %d: %w", orderLineID, err)
	}

	return func(ctx context.Context) error {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return err
		}
		return nil
	}, nil
}

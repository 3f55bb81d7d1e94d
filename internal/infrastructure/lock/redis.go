package lock

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "sellerhub:account-lock:"

// RedisAccountLocker implements AccountLocker on top of redislock, giving
// cross-process serialization when multiple instances import concurrently.
type RedisAccountLocker struct {
	locker *redislock.Client
}

// NewRedisAccountLocker creates a locker backed by the given Redis client
func NewRedisAccountLocker(client redis.UniversalClient) *RedisAccountLocker {
	return &RedisAccountLocker{locker: redislock.New(client)}
}

// Acquire obtains the account lock, retrying with linear backoff until wait
// elapses.
func (l *RedisAccountLocker) Acquire(ctx context.Context, accountID uuid.UUID, ttl, wait time.Duration) (AccountLock, error) {
	const retryInterval = 250 * time.Millisecond
	retries := int(wait / retryInterval)

	lk, err := l.locker.Obtain(ctx, keyPrefix+accountID.String(), ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(retryInterval), retries),
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, ErrNotObtained
		}
		return nil, err
	}
	return &redisAccountLock{lock: lk}, nil
}

type redisAccountLock struct {
	lock *redislock.Lock
}

func (l *redisAccountLock) Refresh(ctx context.Context, ttl time.Duration) error {
	return l.lock.Refresh(ctx, ttl, nil)
}

func (l *redisAccountLock) Release(ctx context.Context) error {
	err := l.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return nil
	}
	return err
}

var _ AccountLocker = (*RedisAccountLocker)(nil)

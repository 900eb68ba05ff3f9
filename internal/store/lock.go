package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
)

// ErrLockNotObtained is returned when the writer lock could not be acquired
// before the context ended.
var ErrLockNotObtained = errors.New("write lock not obtained")

// Unlock releases a lock obtained from a Locker
type Unlock func(ctx context.Context) error

// Locker serializes read-modify-write cycles on the collection.
type Locker interface {
	Lock(ctx context.Context) (Unlock, error)
}

// MutexLocker serializes writers inside one process
type MutexLocker struct {
	sem chan struct{}
}

// NewMutexLocker creates a new MutexLocker
func NewMutexLocker() *MutexLocker {
	return &MutexLocker{sem: make(chan struct{}, 1)}
}

func (l *MutexLocker) Lock(ctx context.Context) (Unlock, error) {
	select {
	case l.sem <- struct{}{}:
		return func(context.Context) error {
			<-l.sem
			return nil
		}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrLockNotObtained, ctx.Err())
	}
}

// RedisLocker serializes writers across processes that share a redis server
type RedisLocker struct {
	client *redislock.Client
	key    string
	ttl    time.Duration
}

// NewRedisLocker creates a RedisLocker holding lock:<storageKey> for at most ttl
func NewRedisLocker(client redislock.RedisClient, storageKey string, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		client: redislock.New(client),
		key:    "lock:" + storageKey,
		ttl:    ttl,
	}
}

func (l *RedisLocker) Lock(ctx context.Context) (Unlock, error) {
	lock, err := l.client.Obtain(ctx, l.key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(25 * time.Millisecond),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockNotObtained
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain write lock: %w", err)
	}

	return func(ctx context.Context) error {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return fmt.Errorf("failed to release write lock: %w", err)
		}
		return nil
	}, nil
}

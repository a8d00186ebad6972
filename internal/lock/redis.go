package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("lock is held by another owner")
	ErrLockNotOwned    = errors.New("lock is not owned by the caller")
)

var releaseScript = redis.NewScript(`
    -- KEYS[1] = lock key, ARGV[1] = owner token
    if redis.call("GET", KEYS[1]) == ARGV[1] then
        return redis.call("DEL", KEYS[1])
    end

    return 0
`)

// RedisLocker is a short-lived distributed lock for deployments where several
// processes mutate the same showtime.
type RedisLocker struct {
	client     redis.UniversalClient
	ttl        time.Duration
	retryDelay time.Duration
	logger     *slog.Logger
}

func NewRedisLocker(client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	return &RedisLocker{
		client:     client,
		ttl:        ttl,
		retryDelay: 25 * time.Millisecond,
		logger:     logger,
	}
}

// DistributedLock is one acquired lock key.
type DistributedLock struct {
	client redis.UniversalClient
	key    string
	owner  string
}

func lockKey(key string) string {
	return fmt.Sprintf("lock:%s", key)
}

// TryAcquire makes a single SET NX attempt.
func (l *RedisLocker) TryAcquire(ctx context.Context, key string) (*DistributedLock, error) {
	lock := &DistributedLock{
		client: l.client,
		key:    lockKey(key),
		owner:  uuid.NewString(),
	}

	ok, err := l.client.SetNX(ctx, lock.key, lock.owner, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", lock.key, err)
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	return lock, nil
}

// Acquire retries TryAcquire until it succeeds or ctx is done.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (*DistributedLock, error) {
	for {
		lock, err := l.TryAcquire(ctx, key)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, ErrLockNotAcquired) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryDelay):
		}
	}
}

// Lock adapts Acquire to the unlock-func shape used by the reservation engine.
// The release runs on its own short deadline so a cancelled request still
// frees the key.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lock, err := l.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		// ErrLockNotOwned means the TTL ran out and the key is already free.
		err := lock.Release(releaseCtx)
		if err != nil && !errors.Is(err, ErrLockNotOwned) {
			l.logger.Error("failed to release lock", "key", lock.key, "error", err)
		}
	}, nil
}

func (d *DistributedLock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, d.client, []string{d.key}, d.owner).Int()
	if err != nil {
		return fmt.Errorf("release lock %s: %w", d.key, err)
	}
	if n == 0 {
		return ErrLockNotOwned
	}

	return nil
}

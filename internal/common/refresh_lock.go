package common

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld means another process currently holds the lock.
var ErrLockHeld = errors.New("lock held by another process")

// RedisLocker hands out short cross-process locks, used to keep two
// replicas from refreshing the same tenant's token at once.
type RedisLocker struct {
	client *redislock.Client
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb)}
}

// Obtain returns a release func. ErrLockHeld is returned when the key is
// taken; any other error means Redis itself failed.
func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, ErrLockHeld
		}
		return nil, err
	}

	return func() {
		// The lock may already have expired; nothing useful to do then.
		_ = lock.Release(context.Background())
	}, nil
}

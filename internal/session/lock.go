package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockPrefix = "tracker:lock:"

// releaseScript deletes the lock only while it still holds the caller's token.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// Locker serializes event handling for one session across processes that
// share a session store.
type Locker interface {
	Lock(ctx context.Context, sessionID string) (unlock func(), err error)
}

// RedisLockClient is the subset of *redis.Client the locker uses.
type RedisLockClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisLocker takes a SET NX lock per session. A lock that is never released
// expires after ttl.
type RedisLocker struct {
	client RedisLockClient
	ttl    time.Duration
	retry  time.Duration
}

// NewRedisLocker constructs a RedisLocker.
func NewRedisLocker(client RedisLockClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisLocker{client: client, ttl: ttl, retry: 25 * time.Millisecond}
}

func lockKey(sessionID string) string {
	return lockPrefix + sessionID
}

// Lock blocks until the session lock is acquired or ctx ends.
func (l *RedisLocker) Lock(ctx context.Context, sessionID string) (func(), error) {
	key := lockKey(sessionID)
	token := uuid.NewString()
	for {
		acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("lock session %s: %w", sessionID, err)
		}
		if acquired {
			return func() {
				_ = l.client.Eval(context.WithoutCancel(ctx), releaseScript, []string{key}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("lock session %s: %w", sessionID, ctx.Err())
		case <-time.After(l.retry):
		}
	}
}

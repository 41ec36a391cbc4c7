package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "tracker:session:"

// RedisClient is the subset of *redis.Client the store uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps session blobs in Redis so several bot replicas can share them.
type RedisStore struct {
	client RedisClient
	ttl    time.Duration
}

// NewRedisStore constructs a RedisStore. A zero ttl keeps keys forever.
func NewRedisStore(client RedisClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// NewRedisClient dials Redis with the given address, password and database.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

// Load implements Store.
func (r *RedisStore) Load(ctx context.Context, sessionID string) (State, error) {
	body, err := r.client.Get(ctx, key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return decode(nil)
	}
	if err != nil {
		return State{}, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return decode(body)
}

// Save implements Store.
func (r *RedisStore) Save(ctx context.Context, sessionID string, state State) error {
	if state.Empty() {
		return r.Delete(ctx, sessionID)
	}
	body, err := encode(state)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key(sessionID), body, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return nil
}

// Delete implements Store.
func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, key(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

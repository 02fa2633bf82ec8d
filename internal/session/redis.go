// Package session provides key-value storage scoped to a browsing session,
// used for the unique-click markers. A browsing session is approximated by
// a cookie-minted session ID plus a sliding TTL on the stored keys, which
// mirrors the best-effort nature of client-side session storage.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL approximates the lifetime of a browsing session.
const DefaultTTL = 30 * time.Minute

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	const op = "session.NewRedisClient"

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("%s: failed to connect to redis: %w", op, err)
	}

	return client, nil
}

// RedisStore keeps session markers in Redis under "session:<id>:<key>".
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

func storageKey(sessionID, key string) string {
	return fmt.Sprintf("session:%s:%s", sessionID, key)
}

func (s *RedisStore) Get(ctx context.Context, sessionID, key string) (string, bool, error) {
	const op = "session.RedisStore.Get"

	val, err := s.client.Get(ctx, storageKey(sessionID, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("%s: failed to get session key: %w", op, err)
	}

	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, sessionID, key, value string) error {
	const op = "session.RedisStore.Set"

	if err := s.client.Set(ctx, storageKey(sessionID, key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("%s: failed to set session key: %w", op, err)
	}

	return nil
}

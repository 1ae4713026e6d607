package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a Redis server.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// RedisConfig holds Redis connection settings. Each option is defined once;
// TTLs live with the callers that own the keys, not here.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"KRU_REDIS_ADDR"`
	Password string `yaml:"password" env:"KRU_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"KRU_REDIS_DB"`
	Prefix   string `yaml:"prefix"`
}

// NewRedis creates a Redis-backed store. Keys are namespaced with the
// configured prefix.
func NewRedis(cfg RedisConfig) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisStore{rdb: rdb, prefix: cfg.Prefix}
}

func (s *RedisStore) key(k string) string { return s.prefix + k }

// Get retrieves a value by key. Misses return (nil, false, nil); transport
// failures wrap ErrUnavailable.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: get %s: %v", ErrUnavailable, key, err)
	}
	return val, true, nil
}

// Set stores a value under key with the given TTL.
func (s *RedisStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, s.key(key), val, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

// Delete removes the entry. Idempotent.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: del %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

// Increment bumps the counter and attaches the window TTL when a new window
// starts. Atomicity comes from Redis INCR.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := s.rdb.Incr(ctx, s.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: incr %s: %v", ErrUnavailable, key, err)
	}
	if count == 1 && window > 0 {
		if err := s.rdb.Expire(ctx, s.key(key), window).Err(); err != nil {
			return count, fmt.Errorf("%w: expire %s: %v", ErrUnavailable, key, err)
		}
	}
	return count, nil
}

// TTL reports the remaining lifetime of key. Redis answers -2 for a missing
// key and -1 for a key without expiry.
func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	d, err := s.rdb.TTL(ctx, s.key(key)).Result()
	if err != nil {
		return 0, false, fmt.Errorf("%w: ttl %s: %v", ErrUnavailable, key, err)
	}
	switch {
	case d == -2:
		return 0, false, nil
	case d < 0:
		return 0, true, nil
	}
	return d, true, nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

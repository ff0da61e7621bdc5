package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "teampulse:"

// RedisConfig holds connection settings for the shared cache
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore shares cached entries across API instances
type RedisStore struct {
	client *redis.Client
	addr   string
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address not configured")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
		PoolTimeout:  4 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	slog.Info("Redis cache connected", "addr", cfg.Addr, "db", cfg.DB)
	return &RedisStore{client: client, addr: cfg.Addr}, nil
}

// Get retrieves an item, reporting a miss for absent keys
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, true, nil
}

// Set stores an item. A non-positive ttl never expires.
func (r *RedisStore) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes an item
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis connection pool
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// NewStore returns a Redis-backed store when configured and reachable,
// degrading to an in-process MemoryStore otherwise.
func NewStore(ctx context.Context, cfg RedisConfig) Store {
	if cfg.Addr == "" {
		slog.Info("Redis not configured, using in-memory cache")
		return NewMemoryStore(5 * time.Minute)
	}

	store, err := NewRedisStore(ctx, cfg)
	if err != nil {
		slog.Warn("Redis unavailable, falling back to in-memory cache", "addr", cfg.Addr, "error", err)
		return NewMemoryStore(5 * time.Minute)
	}
	return store
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/moisesjgomez/open-pet-platform/internal/storage"
)

// RedisOptions configures a RedisBackend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisBackend stores cache entries in Redis. Expiry is delegated to Redis
// key TTLs, so PurgeExpired has nothing to do.
type RedisBackend struct {
	client *redis.Client
	prefix string
	closed atomic.Bool
}

// NewRedisBackend connects to Redis and verifies the connection.
func NewRedisBackend(opts RedisOptions) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "petcore:"
	}

	return &RedisBackend{client: client, prefix: prefix}, nil
}

// IsAvailable reports whether the client is open.
func (r *RedisBackend) IsAvailable() bool {
	return r != nil && !r.closed.Load()
}

// GetEntry returns the entry for key, or nil on a miss.
func (r *RedisBackend) GetEntry(ctx context.Context, key string) (*storage.CacheEntry, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entry storage.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode redis entry: %w", err)
	}
	return &entry, nil
}

// PutEntry writes entry with a Redis TTL matching its expiry.
func (r *RedisBackend) PutEntry(ctx context.Context, entry storage.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode redis entry: %w", err)
	}

	var ttl time.Duration
	if entry.ExpiresAt != nil {
		ttl = time.Until(*entry.ExpiresAt)
		if ttl <= 0 {
			return r.DeleteEntry(ctx, entry.Key)
		}
	}

	return r.client.Set(ctx, r.prefix+entry.Key, data, ttl).Err()
}

// DeleteEntry removes key.
func (r *RedisBackend) DeleteEntry(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

// PurgeExpired is a no-op; Redis evicts expired keys itself.
func (r *RedisBackend) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

// Close closes the Redis client.
func (r *RedisBackend) Close() error {
	r.closed.Store(true)
	return r.client.Close()
}

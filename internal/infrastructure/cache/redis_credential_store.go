package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "b2b:integration:"

// incrementScript increments a counter and sets its expiry only when the
// counter was created by this call, so the window never extends.
var incrementScript = redis.NewScript(`
local v = redis.call("INCRBY", KEYS[1], ARGV[1])
if v == tonumber(ARGV[1]) and tonumber(ARGV[2]) > 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return v
`)

// RedisCredentialStore implements CredentialStore using Redis.
// This is suitable for distributed deployments where multiple instances
// share tokens and rate-limit counters.
type RedisCredentialStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisCredentialStore creates a new Redis-based credential store
func NewRedisCredentialStore(cfg RedisConfig) (*RedisCredentialStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCredentialStore{
		client:    client,
		keyPrefix: defaultKeyPrefix,
	}, nil
}

// NewRedisCredentialStoreWithClient creates a store with an existing Redis client.
// This is useful for testing or when sharing a client across components.
func NewRedisCredentialStoreWithClient(client redis.UniversalClient, keyPrefix string) *RedisCredentialStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisCredentialStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get returns the value for key
func (s *RedisCredentialStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get credential key: %w", err)
	}
	return val, true, nil
}

// Set stores value under key; ttl <= 0 keeps the key without expiry
func (s *RedisCredentialStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set credential key: %w", err)
	}
	return nil
}

// Delete removes key
func (s *RedisCredentialStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete credential key: %w", err)
	}
	return nil
}

// Increment atomically adds delta using a Lua script (INCRBY + PEXPIRE on create)
func (s *RedisCredentialStore) Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	n, err := incrementScript.Run(ctx, s.client, []string{s.keyPrefix + key}, delta, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}
	return n, nil
}

// Close closes the Redis client
func (s *RedisCredentialStore) Close() error {
	return s.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (s *RedisCredentialStore) GetClient() redis.UniversalClient {
	return s.client
}

// Ensure RedisCredentialStore implements CredentialStore
var _ integration.CredentialStore = (*RedisCredentialStore)(nil)

package cache

import (
	"fmt"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/config"
	"go.uber.org/zap"
)

// CredentialStoreFactory creates credential stores based on configuration
type CredentialStoreFactory struct {
	redisConfig           config.RedisConfig
	backend               string
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// CredentialStoreFactoryOption is a functional option for configuring the factory
type CredentialStoreFactoryOption func(*CredentialStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) CredentialStoreFactoryOption {
	return func(f *CredentialStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory store when Redis is unavailable
// Default is true (allow fallback)
func WithInMemoryFallback(allow bool) CredentialStoreFactoryOption {
	return func(f *CredentialStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// WithBackend selects the store backend (config.CredentialStoreRedis or config.CredentialStoreMemory)
func WithBackend(backend string) CredentialStoreFactoryOption {
	return func(f *CredentialStoreFactory) {
		f.backend = backend
	}
}

// NewCredentialStoreFactory creates a new factory
func NewCredentialStoreFactory(cfg config.RedisConfig, opts ...CredentialStoreFactoryOption) *CredentialStoreFactory {
	f := &CredentialStoreFactory{
		redisConfig:           cfg,
		backend:               config.CredentialStoreRedis,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisStore creates a Redis-based credential store
func (f *CredentialStoreFactory) CreateRedisStore() (integration.CredentialStore, error) {
	store, err := NewRedisCredentialStore(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis credential store: %w", err)
	}

	return store, nil
}

// CreateInMemoryStore creates an in-memory credential store
// WARNING: In-memory stores do not share tokens or rate-limit counters across
// process instances, so provider budgets are enforced per process only
func (f *CredentialStoreFactory) CreateInMemoryStore() integration.CredentialStore {
	return NewInMemoryCredentialStore()
}

// CreateStore creates the configured credential store. When Redis is selected
// but unreachable it falls back to in-memory if fallback is allowed.
func (f *CredentialStoreFactory) CreateStore() (integration.CredentialStore, error) {
	if f.backend == config.CredentialStoreMemory {
		f.logger.Info("using in-memory credential store")
		return f.CreateInMemoryStore(), nil
	}

	store, err := f.CreateRedisStore()
	if err == nil {
		f.logger.Info("using Redis credential store")
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for credential store but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory credential store. "+
		"Provider rate limits will not be shared across instances.",
		zap.Error(err),
	)
	return f.CreateInMemoryStore(), nil
}

package cache

import (
	"testing"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// unreachableRedis points at a port nothing listens on
var unreachableRedis = config.RedisConfig{Host: "127.0.0.1", Port: 1}

func TestCredentialStoreFactory_MemoryBackend(t *testing.T) {
	f := NewCredentialStoreFactory(unreachableRedis, WithBackend(config.CredentialStoreMemory))

	store, err := f.CreateStore()
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.(*InMemoryCredentialStore)
	assert.True(t, ok)
}

func TestCredentialStoreFactory_FallsBackWhenRedisUnavailable(t *testing.T) {
	f := NewCredentialStoreFactory(unreachableRedis, WithLogger(zaptest.NewLogger(t)))

	store, err := f.CreateStore()
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.(*InMemoryCredentialStore)
	assert.True(t, ok)
}

func TestCredentialStoreFactory_NoFallback(t *testing.T) {
	f := NewCredentialStoreFactory(unreachableRedis, WithInMemoryFallback(false))

	store, err := f.CreateStore()
	assert.Error(t, err)
	assert.Nil(t, store)
	assert.Contains(t, err.Error(), "Redis required")
}

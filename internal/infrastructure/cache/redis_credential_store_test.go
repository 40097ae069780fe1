//go:build integration

package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newRedisContainer starts a throwaway Redis server and returns a connected client
func newRedisContainer(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start Redis container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisCredentialStore(t *testing.T) {
	client := newRedisContainer(t)
	store := NewRedisCredentialStoreWithClient(client, "test:")
	defer store.Close()

	ctx := context.Background()

	t.Run("get set delete", func(t *testing.T) {
		_, found, err := store.Get(ctx, "token:entegra:t1")
		require.NoError(t, err)
		assert.False(t, found)

		require.NoError(t, store.Set(ctx, "token:entegra:t1", []byte("abc"), time.Minute))
		val, found, err := store.Get(ctx, "token:entegra:t1")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "abc", string(val))

		ttl, err := client.TTL(ctx, "test:token:entegra:t1").Result()
		require.NoError(t, err)
		assert.InDelta(t, time.Minute.Seconds(), ttl.Seconds(), 2)

		require.NoError(t, store.Delete(ctx, "token:entegra:t1"))
		_, found, err = store.Get(ctx, "token:entegra:t1")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("increment sets ttl only on create", func(t *testing.T) {
		n, err := store.Increment(ctx, "ratelimit:parasut:t1:all:w", 1, 10*time.Second)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		require.NoError(t, client.PExpire(ctx, "test:ratelimit:parasut:t1:all:w", 3*time.Second).Err())

		n, err = store.Increment(ctx, "ratelimit:parasut:t1:all:w", 1, 10*time.Second)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		ttl, err := client.PTTL(ctx, "test:ratelimit:parasut:t1:all:w").Result()
		require.NoError(t, err)
		assert.LessOrEqual(t, ttl, 3*time.Second)
	})

	t.Run("increment is atomic across goroutines", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 40; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Increment(ctx, "ratelimit:sentos:t1:get:w", 1, time.Minute)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		val, found, err := store.Get(ctx, "ratelimit:sentos:t1:get:w")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "40", string(val))
	})
}

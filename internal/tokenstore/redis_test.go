package tokenstore

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/drallgood/bookshelf/internal/logger"
)

// redisAddr returns BOOKSHELF_TEST_REDIS_ADDR when set, otherwise starts a
// throwaway container. The test is skipped when neither is possible.
func redisAddr(t *testing.T) string {
	t.Helper()
	if addr := os.Getenv("BOOKSHELF_TEST_REDIS_ADDR"); addr != "" {
		return addr
	}
	if testing.Short() {
		t.Skip("skipping redis container in short mode")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("could not connect to docker: %v", err)
	}

	resource, err := pool.Run("redis", "7.0.10-alpine", nil)
	if err != nil {
		t.Skipf("failed to start redis: %v", err)
	}
	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("failed to purge resource: %v", err)
		}
	})

	addr := net.JoinHostPort("localhost", resource.GetPort("6379/tcp"))
	err = pool.Retry(func() error {
		client := redis.NewClient(&redis.Options{Addr: addr})
		defer client.Close()
		return client.Ping(context.Background()).Err()
	})
	require.NoError(t, err, "failed to ping redis")
	return addr
}

func TestRedisStore(t *testing.T) {
	addr := redisAddr(t)

	store, err := NewRedisStore(RedisOptions{Addr: addr, DB: 1}, "bookshelf-test-edit-token", logger.Nop())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Clear(context.Background()))
	testStoreContract(t, store)
}

func TestRedisStoreUnreachable(t *testing.T) {
	_, err := NewRedisStore(RedisOptions{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond}, "k", logger.Nop())
	require.Error(t, err)
}

package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Integration tests against a real Redis, run with:
//
//	GO_TEST_INTEGRATION=1 go test ./internal/cache -v -count=1
func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestTTLStore_SetExistsDelete(t *testing.T) {
	client := startRedis(t)
	store := NewTTLStore(client, "bl:")
	ctx := context.Background()

	ok, err := store.Exists(ctx, "user:1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, "user:1", time.Minute))
	ok, err = store.Exists(ctx, "user:1")
	require.NoError(t, err)
	require.True(t, ok)

	ttl, err := store.TTL(ctx, "user:1")
	require.NoError(t, err)
	require.LessOrEqual(t, ttl, time.Minute)
	require.Greater(t, ttl, 50*time.Second)

	raw, err := client.Get(ctx, "bl:user:1").Result()
	require.NoError(t, err)
	require.Equal(t, "1", raw)

	require.NoError(t, store.Delete(ctx, "user:1"))
	ok, err = store.Exists(ctx, "user:1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTTLStore_EntriesExpire(t *testing.T) {
	client := startRedis(t)
	store := NewTTLStore(client, "")
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "token:abc", time.Second))
	require.Eventually(t, func() bool {
		ok, err := store.Exists(ctx, "token:abc")
		return err == nil && !ok
	}, 5*time.Second, 100*time.Millisecond)
}

func TestTTLStore_RejectsNonPositiveTTL(t *testing.T) {
	store := NewTTLStore(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "")
	require.Error(t, store.Set(context.Background(), "token:x", 0))
}

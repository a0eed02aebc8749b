package redis_test

import (
	"context"
	"sync"
	"testing"

	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"ticket-relay/internal/counter"
	counterredis "ticket-relay/internal/counter/redis"
)

// TestRedisStoreIntegration runs the full store contract against a real
// Redis container.
func TestRedisStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}

	ctx := context.Background()
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:latest",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	defer redisContainer.Terminate(ctx)

	host, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	port, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := goredis.NewClient(&goredis.Options{Addr: host + ":" + port.Port()})
	defer client.Close()

	store := counterredis.NewStore(client)

	t.Run("increment and accumulate", func(t *testing.T) {
		require.NoError(t, store.ResetAll(ctx))

		total, err := store.Increment(ctx, "Gala", 3)
		require.NoError(t, err)
		assert.Equal(t, 3, total)

		total, err = store.Increment(ctx, "Gala", 2)
		require.NoError(t, err)
		assert.Equal(t, 5, total)
	})

	t.Run("negative result rejected", func(t *testing.T) {
		require.NoError(t, store.ResetAll(ctx))

		_, err := store.Increment(ctx, "Gala", 10)
		require.NoError(t, err)

		_, err = store.Increment(ctx, "Gala", -15)
		assert.ErrorIs(t, err, counter.ErrNegativeTotal)

		totals, err := store.GetAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 10, totals["Gala"])
	})

	t.Run("set absolute replaces outright", func(t *testing.T) {
		require.NoError(t, store.ResetAll(ctx))

		_, err := store.Increment(ctx, "Gala", 3)
		require.NoError(t, err)

		total, err := store.SetAbsolute(ctx, "Gala", 10)
		require.NoError(t, err)
		assert.Equal(t, 10, total)

		totals, err := store.GetAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 10, totals["Gala"])
	})

	t.Run("delete reports existence", func(t *testing.T) {
		require.NoError(t, store.ResetAll(ctx))

		_, err := store.Increment(ctx, "Gala", 1)
		require.NoError(t, err)

		deleted, err := store.Delete(ctx, "Gala")
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = store.Delete(ctx, "Gala")
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("reset clears everything", func(t *testing.T) {
		_, err := store.Increment(ctx, "Gala", 1)
		require.NoError(t, err)
		_, err = store.Increment(ctx, "Expo", 1)
		require.NoError(t, err)

		require.NoError(t, store.ResetAll(ctx))

		totals, err := store.GetAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, totals)
	})

	t.Run("set absolute racing increment serializes", func(t *testing.T) {
		const (
			prior  = 100
			target = 500
			delta  = 7
			rounds = 50
		)

		for i := 0; i < rounds; i++ {
			require.NoError(t, store.ResetAll(ctx))
			_, err := store.SetAbsolute(ctx, "Gala", prior)
			require.NoError(t, err)

			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, err := store.SetAbsolute(ctx, "Gala", target)
				assert.NoError(t, err)
			}()
			go func() {
				defer wg.Done()
				_, err := store.Increment(ctx, "Gala", delta)
				assert.NoError(t, err)
			}()
			wg.Wait()

			totals, err := store.GetAll(ctx)
			require.NoError(t, err)
			assert.Contains(t, []int{target, target + delta, prior + delta}, totals["Gala"],
				"round %d: total %d matches no serialization of set and increment", i, totals["Gala"])
		}
	})

	t.Run("concurrent increments lose no updates", func(t *testing.T) {
		require.NoError(t, store.ResetAll(ctx))

		const workers = 50
		const delta = 2

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = store.Increment(ctx, "Gala", delta)
			}()
		}
		wg.Wait()

		totals, err := store.GetAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, workers*delta, totals["Gala"])
	})
}

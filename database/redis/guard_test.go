package redis_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nasermirzaei89/snapfeed/database/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real server; set REDIS_ADDR to enable.
func TestGuard(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()

	client, err := redis.NewClient(ctx, addr)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
	})

	first := redis.NewGuard(client)
	second := redis.NewGuard(client)
	key := "test:" + uuid.NewString()

	release, err := first.Acquire(ctx, key)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()

	_, err = second.Acquire(waitCtx, key)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	release()

	again, err := second.Acquire(ctx, key)
	require.NoError(t, err)
	again()

	t.Run("expired lock is taken over", func(t *testing.T) {
		short := redis.NewGuard(client).WithTTL(50 * time.Millisecond)

		stale, err := short.Acquire(ctx, key)
		require.NoError(t, err)

		next, err := second.Acquire(ctx, key)
		require.NoError(t, err)

		// Releasing the expired lock must not free the new holder's key.
		stale()

		blockedCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()

		_, err = first.Acquire(blockedCtx, key)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		next()
	})
}

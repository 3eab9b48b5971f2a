package ratelimit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authkit/pkg/ratelimit"
)

func TestMemoryStore_RecordIfAllowed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("records up to the limit", func(t *testing.T) {
		t.Parallel()

		store := ratelimit.NewMemoryStore()
		defer store.Close()

		now := time.Now()
		for i := 1; i <= 3; i++ {
			allowed, count, err := store.RecordIfAllowed(ctx, "key", now, time.Minute, 3)
			require.NoError(t, err)
			assert.True(t, allowed)
			assert.Equal(t, int64(i), count)
		}

		allowed, count, err := store.RecordIfAllowed(ctx, "key", now, time.Minute, 3)
		require.NoError(t, err)
		assert.False(t, allowed)
		assert.Equal(t, int64(3), count, "rejected request is not recorded")
	})

	t.Run("expired timestamps fall out of the window", func(t *testing.T) {
		t.Parallel()

		store := ratelimit.NewMemoryStore()
		defer store.Close()

		base := time.Now()
		allowed, _, err := store.RecordIfAllowed(ctx, "key", base, time.Minute, 1)
		require.NoError(t, err)
		require.True(t, allowed)

		allowed, _, err = store.RecordIfAllowed(ctx, "key", base.Add(time.Second), time.Minute, 1)
		require.NoError(t, err)
		assert.False(t, allowed)

		// A call past the window sees an empty window again.
		allowed, count, err := store.RecordIfAllowed(ctx, "key", base.Add(2*time.Minute), time.Minute, 1)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, int64(1), count)
	})

	t.Run("keys are independent", func(t *testing.T) {
		t.Parallel()

		store := ratelimit.NewMemoryStore()
		defer store.Close()

		now := time.Now()
		allowed, _, err := store.RecordIfAllowed(ctx, "alice", now, time.Minute, 1)
		require.NoError(t, err)
		require.True(t, allowed)

		allowed, _, err = store.RecordIfAllowed(ctx, "bob", now, time.Minute, 1)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("concurrent requests never exceed the limit", func(t *testing.T) {
		t.Parallel()

		store := ratelimit.NewMemoryStore()
		defer store.Close()

		const workers = 50
		const limit = 10

		var wg sync.WaitGroup
		var mu sync.Mutex
		var allowedCount int

		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				allowed, _, err := store.RecordIfAllowed(ctx, "shared", time.Now(), time.Minute, limit)
				require.NoError(t, err)
				if allowed {
					mu.Lock()
					allowedCount++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, limit, allowedCount)
	})
}

func TestMemoryStore_Delete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := ratelimit.NewMemoryStore()
	defer store.Close()

	now := time.Now()
	_, _, err := store.RecordIfAllowed(ctx, "key", now, time.Minute, 1)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "key"))

	allowed, _, err := store.RecordIfAllowed(ctx, "key", now, time.Minute, 1)
	require.NoError(t, err)
	assert.True(t, allowed)
}

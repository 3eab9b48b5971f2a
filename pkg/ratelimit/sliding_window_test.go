package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authkit/pkg/ratelimit"
)

func TestNewSlidingWindow(t *testing.T) {
	t.Parallel()

	store := ratelimit.NewMemoryStore()
	defer store.Close()

	tests := []struct {
		name    string
		store   ratelimit.Store
		limit   int
		window  time.Duration
		wantErr error
	}{
		{"valid", store, 5, time.Minute, nil},
		{"nil store", nil, 5, time.Minute, ratelimit.ErrStoreRequired},
		{"zero limit", store, 0, time.Minute, ratelimit.ErrInvalidLimit},
		{"negative limit", store, -1, time.Minute, ratelimit.ErrInvalidLimit},
		{"zero window", store, 5, 0, ratelimit.ErrInvalidInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sw, err := ratelimit.NewSlidingWindow(tt.store, tt.limit, tt.window)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, sw)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, sw)
		})
	}
}

func TestSlidingWindow_Allow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("counts down remaining and denies over limit", func(t *testing.T) {
		t.Parallel()

		store := ratelimit.NewMemoryStore()
		defer store.Close()

		sw, err := ratelimit.NewSlidingWindow(store, 2, time.Minute)
		require.NoError(t, err)

		result, err := sw.Allow(ctx, "key")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 2, result.Limit)
		assert.Equal(t, 1, result.Remaining)

		result, err = sw.Allow(ctx, "key")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 0, result.Remaining)

		result, err = sw.Allow(ctx, "key")
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, 0, result.Remaining)
		assert.Positive(t, result.RetryAfter())
	})

	t.Run("empty key is rejected", func(t *testing.T) {
		t.Parallel()

		store := ratelimit.NewMemoryStore()
		defer store.Close()

		sw, err := ratelimit.NewSlidingWindow(store, 2, time.Minute)
		require.NoError(t, err)

		_, err = sw.Allow(ctx, "")
		assert.ErrorIs(t, err, ratelimit.ErrKeyRequired)
	})

	t.Run("reset clears the window", func(t *testing.T) {
		t.Parallel()

		store := ratelimit.NewMemoryStore()
		defer store.Close()

		sw, err := ratelimit.NewSlidingWindow(store, 1, time.Minute)
		require.NoError(t, err)

		result, err := sw.Allow(ctx, "key")
		require.NoError(t, err)
		require.True(t, result.Allowed)

		result, err = sw.Allow(ctx, "key")
		require.NoError(t, err)
		require.False(t, result.Allowed)

		require.NoError(t, sw.Reset(ctx, "key"))

		result, err = sw.Allow(ctx, "key")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	})
}

func TestResult_RetryAfter(t *testing.T) {
	t.Parallel()

	allowed := &ratelimit.Result{Allowed: true, ResetAt: time.Now().Add(time.Minute)}
	assert.Equal(t, time.Duration(0), allowed.RetryAfter())

	denied := &ratelimit.Result{Allowed: false, ResetAt: time.Now().Add(time.Minute)}
	assert.Positive(t, denied.RetryAfter())
}

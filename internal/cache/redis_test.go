package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/canvas-oauth/internal/testutil"
)

func TestRedisStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	testutil.SkipIfNoRedis(t)

	client := testutil.SetupRedis(t)
	store := NewRedisStore(client, "test:")
	ctx := context.Background()

	t.Run("SetGetDelete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "session:abc:canvas_domain", []byte("canvas.example.edu"), time.Minute))

		value, found, err := store.Get(ctx, "session:abc:canvas_domain")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "canvas.example.edu", string(value))

		raw, err := client.Get(ctx, "test:session:abc:canvas_domain").Result()
		require.NoError(t, err)
		assert.Equal(t, "canvas.example.edu", raw)

		require.NoError(t, store.Delete(ctx, "session:abc:canvas_domain"))
		_, found, err = store.Get(ctx, "session:abc:canvas_domain")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("GetDelIsSingleUse", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "oauth_state:s1", []byte("payload"), time.Minute))

		var hits atomic.Int32
		var wg sync.WaitGroup
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, found, err := store.GetDel(ctx, "oauth_state:s1")
				assert.NoError(t, err)
				if found {
					hits.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("SetNXOnlyWhenAbsent", func(t *testing.T) {
		stored, err := store.SetNX(ctx, "lti_launch:j1", []byte("1"), time.Minute)
		require.NoError(t, err)
		assert.True(t, stored)

		stored, err = store.SetNX(ctx, "lti_launch:j1", []byte("2"), time.Minute)
		require.NoError(t, err)
		assert.False(t, stored)

		raw, err := client.Get(ctx, "test:lti_launch:j1").Result()
		require.NoError(t, err)
		assert.Equal(t, "1", raw)
	})

	t.Run("TTLIsApplied", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "oauth_state:s2", []byte("payload"), 600*time.Second))

		ttl, err := client.TTL(ctx, "test:oauth_state:s2").Result()
		require.NoError(t, err)
		assert.InDelta(t, 600, ttl.Seconds(), 2)
	})
}

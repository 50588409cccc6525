package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hearthshare/stay-service/internal/domain"
	cache "github.com/hearthshare/stay-service/internal/infrastructure/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return cache.New(mr.Addr(), "", 0, 10*time.Minute), mr
}

func TestUserCache(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	user := domain.User{UserID: "dolores@example.com", Name: "Dolores", IsHost: true}

	t.Run("miss before set", func(t *testing.T) {
		_, err := c.GetUser(ctx, user.UserID)
		assert.ErrorIs(t, err, domain.ErrCacheMiss)
	})

	t.Run("roundtrip", func(t *testing.T) {
		require.NoError(t, c.SetUser(ctx, user))

		got, err := c.GetUser(ctx, user.UserID)
		require.NoError(t, err)
		assert.Equal(t, user, got)
	})

	t.Run("entry expires with the TTL", func(t *testing.T) {
		require.NoError(t, c.SetUser(ctx, user))
		mr.FastForward(11 * time.Minute)

		_, err := c.GetUser(ctx, user.UserID)
		assert.ErrorIs(t, err, domain.ErrCacheMiss)
	})

	t.Run("corrupt entry reads as a miss", func(t *testing.T) {
		mr.Set("user:broken@example.com", "{not json")

		_, err := c.GetUser(ctx, "broken@example.com")
		assert.ErrorIs(t, err, domain.ErrCacheMiss)
	})
}

func TestAllowRequest(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	t.Run("allows up to the limit then refuses", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			ok, err := c.AllowRequest(ctx, "10.0.0.1", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, ok, "request %d should pass", i+1)
		}

		ok, err := c.AllowRequest(ctx, "10.0.0.1", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("window reset readmits", func(t *testing.T) {
		mr.FastForward(2 * time.Minute)

		ok, err := c.AllowRequest(ctx, "10.0.0.1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("ips do not share windows", func(t *testing.T) {
		ok, err := c.AllowRequest(ctx, "10.0.0.2", 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

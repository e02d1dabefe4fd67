package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDenylist(t *testing.T) (*TokenDenylist, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewTokenDenylist(client), mr
}

func TestTokenDenylist_AddAndContains(t *testing.T) {
	d, _ := setupDenylist(t)
	ctx := context.Background()

	ok, err := d.Contains(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.Add(ctx, "jti-1", time.Minute))

	ok, err = d.Contains(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTokenDenylist_Expires(t *testing.T) {
	d, mr := setupDenylist(t)
	ctx := context.Background()

	require.NoError(t, d.Add(ctx, "jti-2", time.Minute))
	mr.FastForward(2 * time.Minute)

	ok, err := d.Contains(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenDenylist_NonPositiveTTLIsNoop(t *testing.T) {
	d, mr := setupDenylist(t)

	require.NoError(t, d.Add(context.Background(), "jti-3", 0))
	assert.False(t, mr.Exists(denylistPrefix+"jti-3"))
}

func TestTokenDenylist_RedisDown(t *testing.T) {
	d, mr := setupDenylist(t)
	mr.Close()

	_, err := d.Contains(context.Background(), "jti-4")
	assert.Error(t, err)
}

package timeclock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*StatusCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStatusCache(client, ttl), mr
}

func TestStatusCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, ok := cache.Get(ctx, 7)
	require.False(t, ok)

	status := &AlertStatus{Daily: ThresholdStatus{CurrentMinutes: 420, ThresholdMinutes: intPtr(480), Approaching: true}}
	cache.Set(ctx, 7, status)

	got, ok := cache.Get(ctx, 7)
	require.True(t, ok)
	require.Equal(t, status, got)

	// Entries are keyed per employee.
	_, ok = cache.Get(ctx, 8)
	require.False(t, ok)
}

func TestStatusCacheInvalidate(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	cache.Set(ctx, 7, &AlertStatus{})
	cache.Invalidate(ctx, 7)

	_, ok := cache.Get(ctx, 7)
	require.False(t, ok)
}

func TestStatusCacheExpiry(t *testing.T) {
	cache, mr := newTestCache(t, 15*time.Second)
	ctx := context.Background()

	cache.Set(ctx, 7, &AlertStatus{})
	mr.FastForward(16 * time.Second)

	_, ok := cache.Get(ctx, 7)
	require.False(t, ok)
}

func TestStatusCacheDisabled(t *testing.T) {
	ctx := context.Background()
	var cache *StatusCache

	// Nil cache and nil client are both safe no-ops.
	cache.Set(ctx, 7, &AlertStatus{})
	_, ok := cache.Get(ctx, 7)
	require.False(t, ok)

	cache = NewStatusCache(nil, time.Minute)
	cache.Set(ctx, 7, &AlertStatus{})
	_, ok = cache.Get(ctx, 7)
	require.False(t, ok)
}

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	telemetry "engine-monitor/internal/telemetry/domain"
)

func setupCache(t *testing.T) (*miniredis.Miniredis, *LatestCache) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return server, NewLatestCache(client, time.Minute)
}

func TestLatestCacheRoundTrip(t *testing.T) {
	_, cache := setupCache(t)
	ctx := context.Background()

	reading := telemetry.Reading{
		Timestamp: time.Date(2026, 3, 10, 4, 0, 0, 0, time.UTC),
		RPM:       1800,
		CLT:       86.5,
	}
	require.NoError(t, cache.Set(ctx, reading))

	got, err := cache.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Timestamp.Equal(reading.Timestamp))
	assert.Equal(t, reading.RPM, got.RPM)
	assert.Equal(t, reading.CLT, got.CLT)
}

func TestLatestCacheMiss(t *testing.T) {
	_, cache := setupCache(t)

	got, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLatestCacheExpiry(t *testing.T) {
	server, cache := setupCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, telemetry.Reading{Timestamp: time.Now().UTC()}))
	server.FastForward(2 * time.Minute)

	got, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLatestCacheInvalidate(t *testing.T) {
	_, cache := setupCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, telemetry.Reading{Timestamp: time.Now().UTC()}))
	require.NoError(t, cache.Invalidate(ctx))

	got, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type probe struct {
	StationID string `json:"station_id"`
	Available int    `json:"available"`
}

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisCacheWithClient(client, 30*time.Second), mr
}

func TestGetMiss(t *testing.T) {
	c, _ := newTestCache(t)
	var out probe
	hit, err := c.Get(context.Background(), "stations/availability", &out)
	require.NoError(t, err)
	require.False(t, hit)
}

func TestSetGetDelete(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	in := probe{StationID: "st-1", Available: 3}
	require.NoError(t, c.Set(ctx, "station/st-1", in, 0))

	var out probe
	hit, err := c.Get(ctx, "station/st-1", &out)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, in, out)

	require.NoError(t, c.Delete(ctx, "station/st-1"))
	hit, err = c.Get(ctx, "station/st-1", &out)
	require.NoError(t, err)
	require.False(t, hit)
}

func TestTTLExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "station/st-1", probe{StationID: "st-1"}, time.Second))
	mr.FastForward(2 * time.Second)

	var out probe
	hit, err := c.Get(ctx, "station/st-1", &out)
	require.NoError(t, err)
	require.False(t, hit)
}

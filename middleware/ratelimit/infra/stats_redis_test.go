package infra

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VietQuocHoang/export-user-info/middleware/ratelimit/domain"
)

func TestRedisStatsStore_NilClientIsNoop(t *testing.T) {
	var s *RedisStatsStore
	assert.NoError(t, s.Record(context.Background(), domain.StatsEvent{}))
	assert.NoError(t, NewRedisStatsStore(nil).Record(context.Background(), domain.StatsEvent{}))
}

func TestRedisStatsStore_Options(t *testing.T) {
	s := NewRedisStatsStore(nil,
		WithStatsPrefix(":gw:stats:"),
		WithStatsTTL(time.Hour),
		WithStatsBucket(" NONE "),
		WithStatsTrackKeys(true),
	)
	assert.Equal(t, "gw:stats", s.prefix)
	assert.Equal(t, time.Hour, s.ttl)
	assert.Equal(t, StatsBucketNone, s.bucket)
	assert.True(t, s.trackKeys)

	at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	assert.Equal(t, "gw:stats:minute:202503040506", s.MinuteKey(at))
	assert.Equal(t, "gw:stats:route", s.RouteKey(at))

	minute := NewRedisStatsStore(nil, WithStatsPrefix("gw"))
	assert.Equal(t, "gw:route:202503040506", minute.RouteKey(at))

	// prefixo vazio mantém o padrão
	assert.Equal(t, "ratelimit:stats", NewRedisStatsStore(nil, WithStatsPrefix("::")).prefix)
}

// Requer Redis em localhost:6379. Pule com: go test -short
func TestRedisStatsStore_Record(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Redis integration test")
	}

	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	defer func() { _ = rdb.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available:", err)
	}

	prefix := "test:ratelimit:" + time.Now().Format("150405.000000")
	s := NewRedisStatsStore(rdb, WithStatsPrefix(prefix), WithStatsTrackKeys(true), WithStatsTTL(time.Minute))
	defer func() {
		keys, _ := rdb.Keys(ctx, prefix+":*").Result()
		if len(keys) > 0 {
			rdb.Del(ctx, keys...)
		}
	}()

	now := time.Now()
	require.NoError(t, s.Record(ctx, domain.StatsEvent{Key: "k1", Allowed: true, Method: "GET", Path: "/ping", At: now}))
	require.NoError(t, s.Record(ctx, domain.StatsEvent{Key: "k1", Allowed: false, Method: "GET", Path: "/ping", At: now}))

	total, err := rdb.HGetAll(ctx, prefix+":total").Result()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"admitted": "1", "rejected": "1"}, total)

	route, err := rdb.HGet(ctx, s.RouteKey(now), "GET /ping:rejected").Result()
	require.NoError(t, err)
	assert.Equal(t, "1", route)

	routeTTL, err := rdb.TTL(ctx, s.RouteKey(now)).Result()
	require.NoError(t, err)
	assert.Greater(t, routeTTL, time.Duration(0))

	ttl, err := rdb.TTL(ctx, s.MinuteKey(now)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	byKey, err := rdb.HGet(ctx, prefix+":key:k1", "admitted").Result()
	require.NoError(t, err)
	assert.Equal(t, "1", byKey)
}

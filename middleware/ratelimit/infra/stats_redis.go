package infra

import (
	"context"
	"strings"
	"time"

	"github.com/VietQuocHoang/export-user-info/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

const (
	StatsBucketMinute = "minute"
	StatsBucketNone   = "none"
)

// RedisStatsStore grava contadores de decisão em hashes do Redis.
//
// Layout (prefix padrão "ratelimit:stats"):
//
//	<prefix>:total               admitted|rejected (cumulativo, sem TTL)
//	<prefix>:minute:YYYYMMDDhhmm admitted|rejected (com TTL)
//	<prefix>:route:YYYYMMDDhhmm  "<METHOD> <path>:admitted|rejected" (com TTL)
//	<prefix>:route               idem, com bucket "none" (com TTL)
//	<prefix>:key:<key>           admitted|rejected (só com trackKeys, com TTL)
//
// O hash de rotas é separado por minuto para que paths arbitrários expirem
// junto com o bucket em vez de acumular num hash único.
type RedisStatsStore struct {
	rdb redis.Cmdable

	prefix    string
	ttl       time.Duration
	bucket    string
	trackKeys bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		if p := strings.Trim(prefix, ": "); p != "" {
			s.prefix = p
		}
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

// WithStatsBucket aceita "minute" ou "none".
func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackKeys(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackKeys = track }
}

func NewRedisStatsStore(rdb redis.Cmdable, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "ratelimit:stats",
		ttl:    24 * time.Hour,
		bucket: StatsBucketMinute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := "rejected"
	if ev.Allowed {
		field = "admitted"
	}

	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

		if s.bucket == StatsBucketMinute {
			s.incrWithTTL(ctx, pipe, s.MinuteKey(at), field)
		}

		if route := strings.TrimSpace(routeOf(ev)); route != "" {
			s.incrWithTTL(ctx, pipe, s.RouteKey(at), route+":"+field)
		}

		if s.trackKeys {
			if k := strings.TrimSpace(string(ev.Key)); k != "" {
				s.incrWithTTL(ctx, pipe, s.prefix+":key:"+k, field)
			}
		}
		return nil
	})
	return err
}

// MinuteKey retorna a chave do bucket de minuto (UTC) que contém at.
func (s *RedisStatsStore) MinuteKey(at time.Time) string {
	return s.prefix + ":minute:" + at.UTC().Format("200601021504")
}

// RouteKey retorna o hash de rotas que recebe eventos em at.
func (s *RedisStatsStore) RouteKey(at time.Time) string {
	if s.bucket == StatsBucketMinute {
		return s.prefix + ":route:" + at.UTC().Format("200601021504")
	}
	return s.prefix + ":route"
}

func (s *RedisStatsStore) incrWithTTL(ctx context.Context, pipe redis.Pipeliner, key, field string) {
	pipe.HIncrBy(ctx, key, field, 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
}

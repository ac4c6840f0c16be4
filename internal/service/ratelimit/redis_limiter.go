package ratelimit

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/3CBolt/promptpractice-kiro-sub000/internal/domain"
)

const (
	keyCount       = "hosted_quota:count"
	keyWindowStart = "hosted_quota:window_start"
	keyLimited     = "hosted_quota:limited"
)

// luaRecordSuccess increments the window counter atomically, starting a new
// window (count TTL + window_start marker) on the first request.
const luaRecordSuccess = `
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[1])
end
return count
`

// RedisLimiter shares the hosted-quota window across instances. All
// operations fail open on Redis errors so a cache outage never blocks
// dispatching; provider 429 handling still applies per call.
type RedisLimiter struct {
	rdb    *redis.Client
	window time.Duration
	max    int
	script *redis.Script
	now    func() time.Time
}

// NewRedisLimiter builds a Redis-backed limiter over the same window/cap
// semantics as the in-process WindowLimiter.
func NewRedisLimiter(rdb *redis.Client, window time.Duration, maxRequests int) *RedisLimiter {
	return &RedisLimiter{
		rdb:    rdb,
		window: window,
		max:    maxRequests,
		script: redis.NewScript(luaRecordSuccess),
		now:    time.Now,
	}
}

// CheckLimited reports whether hosted calls should be skipped. Window reset
// is handled by key expiry rather than lazily.
func (l *RedisLimiter) CheckLimited(ctx context.Context) bool {
	if n, err := l.rdb.Exists(ctx, keyLimited).Result(); err == nil && n > 0 {
		return true
	} else if err != nil {
		slog.Error("redis limiter exists failed", slog.Any("error", err))
		return false
	}
	v, err := l.rdb.Get(ctx, keyCount).Int()
	if err != nil && err != redis.Nil {
		slog.Error("redis limiter get failed", slog.Any("error", err))
		return false
	}
	return v >= l.max
}

// RecordSuccess counts one successful hosted request against the window.
func (l *RedisLimiter) RecordSuccess(ctx context.Context) {
	now := l.now()
	_, err := l.script.Run(ctx, l.rdb,
		[]string{keyCount, keyWindowStart},
		l.window.Milliseconds(), now.UnixMilli()).Result()
	if err != nil {
		slog.Error("redis limiter increment failed", slog.Any("error", err))
	}
}

// RecordRateLimited marks the shared window limited until resetAt.
func (l *RedisLimiter) RecordRateLimited(ctx context.Context, resetAt time.Time) {
	ttl := time.Until(resetAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := l.rdb.Set(ctx, keyLimited, resetAt.UnixMilli(), ttl).Err(); err != nil {
		slog.Error("redis limiter set limited failed", slog.Any("error", err))
	}
}

// Status returns a snapshot of the shared window.
func (l *RedisLimiter) Status(ctx context.Context) domain.RateLimitStatus {
	st := domain.RateLimitStatus{WindowStart: l.now()}
	if v, err := l.rdb.Get(ctx, keyCount).Int(); err == nil {
		st.RequestCount = v
	}
	if ms, err := l.rdb.Get(ctx, keyWindowStart).Result(); err == nil {
		if n, perr := strconv.ParseInt(ms, 10, 64); perr == nil {
			st.WindowStart = time.UnixMilli(n)
		}
	}
	if ms, err := l.rdb.Get(ctx, keyLimited).Result(); err == nil {
		if n, perr := strconv.ParseInt(ms, 10, 64); perr == nil {
			t := time.UnixMilli(n)
			st.ResetAt = &t
			st.Limited = true
		}
	}
	if st.RequestCount >= l.max {
		st.Limited = true
	}
	return st
}

var _ domain.RateLimiter = (*RedisLimiter)(nil)

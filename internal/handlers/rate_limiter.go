package handlers

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/trendhome-fenster/api/internal/platform/httpx"
	"github.com/trendhome-fenster/api/internal/platform/requestctx"
)

const redisKeyPrefix = "ratelimit:"

// RateLimiter decides whether a request identified by key may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, key string) bool
}

type memoryRateLimiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time
	mu     sync.Mutex
	store  map[string]rateEntry
}

type rateEntry struct {
	count int
	reset time.Time
}

// NewMemoryRateLimiter returns a per-process fixed-window limiter, or nil when
// limit or window is not positive.
func NewMemoryRateLimiter(limit int, window time.Duration, clock func() time.Time) RateLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &memoryRateLimiter{
		limit:  limit,
		window: window,
		clock:  clock,
		store:  make(map[string]rateEntry),
	}
}

func (l *memoryRateLimiter) Allow(_ context.Context, key string) bool {
	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.store[key]
	if !ok || now.After(entry.reset) {
		l.store[key] = rateEntry{count: 1, reset: now.Add(l.window)}
		l.pruneExpiredLocked(now)
		return true
	}
	if entry.count >= l.limit {
		return false
	}
	entry.count++
	l.store[key] = entry
	return true
}

func (l *memoryRateLimiter) pruneExpiredLocked(now time.Time) {
	for key, entry := range l.store {
		if now.After(entry.reset) {
			delete(l.store, key)
		}
	}
}

// redisRateLimiter shares fixed-window counters between instances. When Redis
// is unreachable it degrades to the in-process limiter instead of failing open
// or closed for everyone.
type redisRateLimiter struct {
	client   redis.Cmdable
	limit    int
	window   time.Duration
	fallback RateLimiter
	logger   *zap.Logger
}

// NewRedisRateLimiter builds a limiter backed by client with an in-memory fallback.
func NewRedisRateLimiter(client redis.Cmdable, limit int, window time.Duration, logger *zap.Logger) RateLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if client == nil {
		return NewMemoryRateLimiter(limit, window, nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redisRateLimiter{
		client:   client,
		limit:    limit,
		window:   window,
		fallback: NewMemoryRateLimiter(limit, window, nil),
		logger:   logger,
	}
}

func (l *redisRateLimiter) Allow(ctx context.Context, key string) bool {
	bucket := time.Now().UnixNano() / int64(l.window)
	redisKey := redisKeyPrefix + key + ":" + strconv.FormatInt(bucket, 10)

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, l.window)
		return nil
	})
	if err != nil {
		l.logger.Warn("rate limiter redis unavailable; using local window", zap.Error(err))
		return l.fallback.Allow(ctx, key)
	}
	return incr.Val() <= int64(l.limit)
}

// rateLimited wraps next so that at most the limiter's budget of requests per
// client IP reaches it. A nil limiter disables throttling.
func rateLimited(limiter RateLimiter, scope string, next http.HandlerFunc) http.HandlerFunc {
	if limiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		key := scope + ":" + clientIP(r)
		if !limiter.Allow(r.Context(), key) {
			requestctx.Logger(r.Context()).Info("rate limit exceeded", zap.String("scope", scope))
			httpx.WriteError(r.Context(), w, httpx.NewError("rate_limited", "too many requests, please try again later", http.StatusTooManyRequests).
				WithRetryAfter(time.Minute))
			return
		}
		next(w, r)
	}
}

// clientIP prefers the address resolved by observability.ClientIPMiddleware,
// which knows how many proxies to trust. Without it only the socket peer counts.
func clientIP(r *http.Request) string {
	if ip := requestctx.ClientIP(r.Context()); ip != "" {
		return ip
	}
	return httpx.ClientIP(r, 0)
}

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pmstore/pmstore-api/internal/http/response"
	"github.com/pmstore/pmstore-api/internal/observability"
)

type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
	Remaining  int
	ResetAt    time.Time
}

type RateLimitPolicy struct {
	Limit  int
	Window time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string, policy RateLimitPolicy) (Decision, error)
}

type FailureMode string

const (
	FailOpen   FailureMode = "fail_open"
	FailClosed FailureMode = "fail_closed"
)

type RateLimiter struct {
	limiter Limiter
	policy  RateLimitPolicy
	mode    FailureMode
	scope   string
	keyFunc func(r *http.Request) string
}

// NewRateLimiter limits per client IP with an in-process sliding window.
func NewRateLimiter(limit int, window time.Duration, scope string) *RateLimiter {
	return NewDistributedRateLimiter(NewLocalSlidingWindowLimiter(), limit, window, FailClosed, scope, nil)
}

func NewDistributedRateLimiter(
	limiter Limiter,
	limit int,
	window time.Duration,
	mode FailureMode,
	scope string,
	keyFunc func(r *http.Request) string,
) *RateLimiter {
	if scope == "" {
		scope = "api"
	}
	if keyFunc == nil {
		keyFunc = clientIPKey
	}
	return &RateLimiter{
		limiter: limiter,
		policy:  normalizePolicy(RateLimitPolicy{Limit: limit, Window: window}),
		mode:    mode,
		scope:   scope,
		keyFunc: keyFunc,
	}
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rl.keyFunc(r)
			if key == "" {
				key = clientIPKey(r)
			}
			decision, err := rl.limiter.Allow(r.Context(), rl.scope+":"+key, rl.policy)
			if err != nil {
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "backend_error")
				if rl.mode == FailOpen {
					slog.WarnContext(r.Context(), "rate limiter backend unavailable, allowing request",
						"scope", rl.scope,
						"error", err.Error(),
					)
					next.ServeHTTP(w, r)
					return
				}
				w.Header().Set("Retry-After", retryAfterHeader(rl.policy.Window))
				response.Error(w, r, http.StatusTooManyRequests, "Too many requests", nil)
				return
			}
			writeRateLimitHeaders(w.Header(), rl.policy.Limit, decision.Remaining, decision.ResetAt)
			if !decision.Allowed {
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "deny")
				w.Header().Set("Retry-After", retryAfterHeader(decision.RetryAfter))
				response.Error(w, r, http.StatusTooManyRequests, "Too many requests", nil)
				return
			}
			observability.RecordRateLimitDecision(r.Context(), rl.scope, "allow")
			next.ServeHTTP(w, r)
		})
	}
}

// SessionOrIPKey keys authenticated callers by user id so that a shared
// address does not throttle unrelated users.
func SessionOrIPKey(r *http.Request) string {
	if sc, ok := SessionFromContext(r.Context()); ok && sc.Authenticated() {
		return "user:" + sc.Identity.ID.String()
	}
	return clientIPKey(r)
}

type localSlidingWindowLimiter struct {
	mu      sync.Mutex
	hits    map[string][]time.Time
	cleanup time.Time
	now     func() time.Time
}

func NewLocalSlidingWindowLimiter() Limiter {
	return &localSlidingWindowLimiter{
		hits:    make(map[string][]time.Time),
		cleanup: time.Now().Add(time.Minute),
		now:     time.Now,
	}
}

func (l *localSlidingWindowLimiter) Allow(_ context.Context, key string, policy RateLimitPolicy) (Decision, error) {
	policy = normalizePolicy(policy)
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-policy.Window)
	if now.After(l.cleanup) {
		for k, hits := range l.hits {
			if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
				delete(l.hits, k)
			}
		}
		l.cleanup = now.Add(policy.Window)
	}

	pruned := l.hits[key][:0]
	for _, hit := range l.hits[key] {
		if hit.After(cutoff) {
			pruned = append(pruned, hit)
		}
	}

	if len(pruned) >= policy.Limit {
		l.hits[key] = pruned
		resetAt := pruned[0].Add(policy.Window)
		retry := resetAt.Sub(now)
		if retry <= 0 {
			retry = time.Second
		}
		return Decision{Allowed: false, RetryAfter: retry, ResetAt: resetAt}, nil
	}
	pruned = append(pruned, now)
	l.hits[key] = pruned
	return Decision{
		Allowed:   true,
		Remaining: policy.Limit - len(pruned),
		ResetAt:   pruned[0].Add(policy.Window),
	}, nil
}

// RedisFixedWindowLimiter counts hits per window in Redis so that limits hold
// across processes sharing the same Redis.
type RedisFixedWindowLimiter struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisFixedWindowLimiter(client redis.UniversalClient, prefix string) *RedisFixedWindowLimiter {
	if prefix == "" {
		prefix = "rate_limit"
	}
	return &RedisFixedWindowLimiter{client: client, prefix: prefix, now: time.Now}
}

func (l *RedisFixedWindowLimiter) Allow(ctx context.Context, key string, policy RateLimitPolicy) (Decision, error) {
	policy = normalizePolicy(policy)
	now := l.now()
	windowStart := now.Truncate(policy.Window)
	resetAt := windowStart.Add(policy.Window)
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, windowStart.Unix())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, policy.Window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("rate limit: %w", err)
	}
	count := int(incr.Val())
	if count > policy.Limit {
		return Decision{Allowed: false, RetryAfter: resetAt.Sub(now), ResetAt: resetAt}, nil
	}
	return Decision{Allowed: true, Remaining: policy.Limit - count, ResetAt: resetAt}, nil
}

func clientIPKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		host = strings.TrimSpace(r.RemoteAddr)
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}
	return host
}

func retryAfterHeader(d time.Duration) string {
	seconds := int(d.Round(time.Second).Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}

func writeRateLimitHeaders(h http.Header, limit int, remaining int, resetAt time.Time) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(max(limit, 0)))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
	if resetAt.IsZero() {
		resetAt = time.Now().Add(time.Second)
	}
	h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

func normalizePolicy(policy RateLimitPolicy) RateLimitPolicy {
	if policy.Limit <= 0 {
		policy.Limit = 1
	}
	if policy.Window <= 0 {
		policy.Window = time.Minute
	}
	return policy
}

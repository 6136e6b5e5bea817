package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// DefaultRateLimitWindow is the fixed window used by the retrieval limiter.
const DefaultRateLimitWindow = time.Minute

// Limiter counts hits per key inside a fixed window.
type Limiter interface {
	// Hit records one request for key and returns the count within the current window.
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// hitScript increments the window counter and arms its expiry in one step.
// A counter found without a TTL gets one, so a key can never outlive its window.
var hitScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 or redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RedisLimiter counts hits with an atomic INCR plus PEXPIRE script.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisLimiter constructs a RedisLimiter.
func NewRedisLimiter(client redis.UniversalClient) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: "giftspa:ratelimit:"}
}

// Hit implements Limiter.
func (l *RedisLimiter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, errRun := hitScript.Run(ctx, l.client, []string{l.prefix + key}, window.Milliseconds()).Int64()
	if errRun != nil {
		return 0, fmt.Errorf("ratelimit: hit: %w", errRun)
	}
	return count, nil
}

type memoryWindow struct {
	count   int64
	resetAt time.Time
}

// MemoryLimiter is a process-local Limiter for single-instance deployments and tests.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
}

// NewMemoryLimiter constructs a MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string]*memoryWindow), now: time.Now}
}

// Hit implements Limiter.
func (l *MemoryLimiter) Hit(_ context.Context, key string, window time.Duration) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &memoryWindow{resetAt: now.Add(window)}
		l.windows[key] = w
	}
	w.count++
	if len(l.windows) > 4096 {
		for k, v := range l.windows {
			if !now.Before(v.resetAt) {
				delete(l.windows, k)
			}
		}
	}
	return w.count, nil
}

// RateLimitMiddleware rejects clients that exceed limit requests per window with 429.
// The client IP keys the counter. Limiter failures let the request through.
func RateLimitMiddleware(limiter Limiter, scope string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}
		if window <= 0 {
			window = DefaultRateLimitWindow
		}

		key := scope + ":" + c.ClientIP()
		count, errHit := limiter.Hit(c.Request.Context(), key, window)
		if errHit != nil {
			log.WithError(errHit).WithField("scope", scope).Warn("rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		remaining := int64(limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		if count > int64(limit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded, try again later"})
			return
		}
		c.Next()
	}
}

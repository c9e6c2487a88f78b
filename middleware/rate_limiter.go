package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/omaree-johnson/myumrahesim-sub002/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitResult is the outcome of one rate-limit check.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RateLimiter answers whether a client may proceed. Checks happen before any
// session mutation; a denied check has no side effects.
type RateLimiter interface {
	Check(ctx context.Context, clientKey string) (RateLimitResult, error)
}

// ---- Redis fixed-window limiter ----

// RedisRateLimiter counts requests per client in a fixed window. The counter
// lives in Redis so every handler instance shares the same budget.
type RedisRateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, limit: limit, window: window}
}

func (rl *RedisRateLimiter) key(clientKey string) string {
	return "ratelimit:" + clientKey
}

func (rl *RedisRateLimiter) Check(ctx context.Context, clientKey string) (RateLimitResult, error) {
	key := rl.key(clientKey)

	count, err := rl.client.Incr(ctx, key).Result()
	if err != nil {
		return RateLimitResult{}, err
	}
	if count == 1 {
		// first hit in this window owns the expiry
		if err := rl.client.Expire(ctx, key, rl.window).Err(); err != nil {
			return RateLimitResult{}, err
		}
	}

	ttl, err := rl.client.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = rl.window
	}

	remaining := rl.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return RateLimitResult{
		Allowed:   count <= int64(rl.limit),
		Remaining: remaining,
		ResetAt:   time.Now().Add(ttl),
	}, nil
}

// ---- In-memory fallback limiter ----

// MemoryRateLimiter keeps a token bucket per client. Used when Redis is not
// configured; budgets are then per process instance.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	clients map[string]*rate.Limiter
	rate    rate.Limit
	burst   int
	window  time.Duration
}

func NewMemoryRateLimiter(limit int, window time.Duration) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		clients: make(map[string]*rate.Limiter),
		rate:    rate.Every(window / time.Duration(limit)),
		burst:   limit,
		window:  window,
	}
}

func (rl *MemoryRateLimiter) limiter(clientKey string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok := rl.clients[clientKey]; ok {
		return l
	}
	l := rate.NewLimiter(rl.rate, rl.burst)
	rl.clients[clientKey] = l
	return l
}

func (rl *MemoryRateLimiter) Check(_ context.Context, clientKey string) (RateLimitResult, error) {
	l := rl.limiter(clientKey)
	allowed := l.Allow()

	remaining := int(l.Tokens())
	if remaining < 0 {
		remaining = 0
	}

	return RateLimitResult{
		Allowed:   allowed,
		Remaining: remaining,
		ResetAt:   time.Now().Add(rl.window),
	}, nil
}

// ---- Gin middleware ----

// RateLimit rejects over-budget clients by IP before the handler runs.
func RateLimit(limiter RateLimiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := limiter.Check(c.Request.Context(), c.ClientIP())
		if err != nil {
			// limiter outage must not take the storefront down
			logger.Warn("rate limit check failed, allowing request",
				zap.String("client_ip", c.ClientIP()),
				zap.Error(err),
			)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

		if !res.Allowed {
			appErr := apperrors.RateLimited("Rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, appErr)
			return
		}
		c.Next()
	}
}

package http

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/JM-Mushraf/TownSquare-sub000/internal/log"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/metrics"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/repo"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDKey    = "X-Request-ID"
	uidKey          = "uid"
	requestIDHeader = "X-Request-ID"
)

// RequestID keeps an incoming X-Request-ID or mints one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithDD(c.Request.Context(), log.L()).Info("request",
			zap.String("method", c.Request.Method),
			zap.String("route", routeOf(c)),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(requestIDKey)),
		)
	}
}

func routeOf(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}
	return "unmatched"
}

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.InFlight.Inc()
		start := time.Now()
		c.Next()
		metrics.InFlight.Dec()

		route := routeOf(c)
		metrics.ReqDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
		metrics.RequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Limiter decides whether key may make another request now.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type bucket struct {
	tokens  int
	updated time.Time
}

// RateLimiter is the in-process fallback used when Redis is not configured.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    int
	window  time.Duration
	pruned  time.Time
}

func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	return &RateLimiter{buckets: make(map[string]*bucket), rate: rate, window: window, pruned: time.Now()}
}

func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := time.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.prune(now)
	b, ok := rl.buckets[key]
	if !ok || now.Sub(b.updated) > rl.window {
		rl.buckets[key] = &bucket{tokens: 1, updated: now}
		return true, nil
	}
	if b.tokens < rl.rate {
		b.tokens++
		b.updated = now
		return true, nil
	}
	return false, nil
}

// prune drops idle buckets at most once per window. Caller holds mu.
func (rl *RateLimiter) prune(now time.Time) {
	if now.Sub(rl.pruned) < rl.window {
		return
	}
	for k, b := range rl.buckets {
		if now.Sub(b.updated) > rl.window {
			delete(rl.buckets, k)
		}
	}
	rl.pruned = now
}

type redisLimiter struct {
	r      *repo.Redis
	rate   int
	window time.Duration
}

func NewRedisLimiter(r *repo.Redis, rate int, window time.Duration) Limiter {
	return &redisLimiter{r: r, rate: rate, window: window}
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return l.r.Allow(ctx, "vote:"+key, l.rate, l.window)
}

func ClientIP(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	host, _, err := net.SplitHostPort(ip)
	if err == nil && host != "" {
		return host
	}
	return ip
}

// RateLimit keys on the authenticated user when there is one, else the client IP.
// Limiter failures let the request through.
func RateLimit(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString(uidKey)
		if key == "" {
			key = ClientIP(c)
		}
		ok, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			log.L().Warn("rate limiter", zap.Error(err))
			ok = true
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResp{Success: false, Message: "too many requests"})
			return
		}
		c.Next()
	}
}

func AuthJWT(v security.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(strings.ToLower(h), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResp{Success: false, Message: "missing bearer"})
			return
		}
		claims, err := v.Verify(c.Request.Context(), strings.TrimSpace(h[len("Bearer "):]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResp{Success: false, Message: "invalid token"})
			return
		}
		uid := claims.UserID()
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResp{Success: false, Message: "no uid"})
			return
		}
		c.Set(uidKey, uid)
		c.Set("email", claims.Email)
		c.Next()
	}
}

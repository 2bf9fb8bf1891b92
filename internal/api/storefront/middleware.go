package storefront

import (
	"crypto/subtle"
	"net/http"
	"sync"
	"time"

	"github.com/Conversly/storefront/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const requestIDHeader = "X-Request-ID"

// AccessKeyHeader carries the shared key of a non-local deployment.
const AccessKeyHeader = "X-Storefront-Key"

// RequestID tags every request with an id, reusing the caller's when given.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("requestId", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// Logger writes one structured line per request.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		utils.Zlog.Info("Request served",
			zap.String("requestId", c.GetString("requestId")),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.String("client", c.ClientIP()),
			zap.Duration("duration", time.Since(start)))
	}
}

const visitorTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client ip.
type RateLimiter struct {
	rps   rate.Limit
	burst int

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:       rate.Limit(rps),
		burst:     burst,
		visitors:  make(map[string]*visitor),
		lastSweep: time.Now(),
	}
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastSweep) > visitorTTL {
		for key, v := range rl.visitors {
			if now.Sub(v.lastSeen) > visitorTTL {
				delete(rl.visitors, key)
			}
		}
		rl.lastSweep = now
	}

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Limit rejects requests over the per-ip budget with 429.
func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(c.ClientIP()).Allow() {
			utils.Zlog.Warn("Rate limit exceeded", zap.String("client", c.ClientIP()))
			respondError(c, http.StatusTooManyRequests, "Too Many Requests", "Too many requests, please slow down")
			return
		}
		c.Next()
	}
}

// Seller reports whether the current session holds seller rights.
type Seller interface {
	IsSeller() bool
}

// RequireSeller gates the admin routes on the seller check only.
func RequireSeller(s Seller) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.IsSeller() {
			respondError(c, http.StatusForbidden, "Forbidden", "seller access required")
			return
		}
		c.Next()
	}
}

// RequireAccessKey refuses callers that do not present key. Every caller
// shares the one shopper session.
func RequireAccessKey(key string) gin.HandlerFunc {
	want := []byte(key)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(AccessKeyHeader))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			utils.Zlog.Warn("Rejected request without a valid access key",
				zap.String("client", c.ClientIP()),
				zap.String("path", c.Request.URL.Path))
			respondError(c, http.StatusUnauthorized, "Unauthorized", "missing or invalid access key")
			return
		}
		c.Next()
	}
}

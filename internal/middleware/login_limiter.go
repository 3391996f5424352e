package middleware

import (
	"net/http"
	"time"

	"movie_api/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	loginLimiterCacheSize = 10_000
	loginLimiterEntryTTL  = time.Hour
)

// LoginLimiter throttles login attempts per client IP. Limiters live in an
// expiring LRU so idle addresses are forgotten.
type LoginLimiter struct {
	limit    rate.Limit
	burst    int
	visitors *expirable.LRU[string, *rate.Limiter]
	metrics  *observability.Metrics
}

func NewLoginLimiter(perSecond float64, burst int, metrics *observability.Metrics) *LoginLimiter {
	return &LoginLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		visitors: expirable.NewLRU[string, *rate.Limiter](loginLimiterCacheSize, nil, loginLimiterEntryTTL),
		metrics:  metrics,
	}
}

func (l *LoginLimiter) limiter(ip string) *rate.Limiter {
	lim, found := l.visitors.Get(ip)
	if !found {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.visitors.Add(ip, lim)
	}
	return lim
}

func (l *LoginLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.limiter(c.ClientIP()).Allow() {
			l.metrics.RateLimited("login")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many login attempts"})
			return
		}
		c.Next()
	}
}

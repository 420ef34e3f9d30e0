package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/blogly/blogly/utils"
)

const (
	rateWindow    = time.Hour
	sweepInterval = time.Minute
)

type clientLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

// RateLimiter hands every client IP a token bucket holding perHour requests
// that refills over an hour.
type RateLimiter struct {
	mu       sync.Mutex
	limiters  map[string]*clientLimiter
	limit     rate.Limit
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

func NewRateLimiter(perHour int) *RateLimiter {
	perHour = max(perHour, 1)
	return &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		limit:    rate.Every(rateWindow / time.Duration(perHour)),
		burst:    perHour,
		now:      time.Now,
	}
}

// Middleware rejects clients that have used up their allowance with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !rl.allow(ctx.ClientIP()) {
			utils.Error(ctx, http.StatusTooManyRequests, 42901, "Too many requests from this IP, please try again in an hour!")
			return
		}
		ctx.Next()
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= sweepInterval {
		rl.cleanupExpiredLocked(now)
		rl.lastSweep = now
	}

	cl, ok := rl.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = cl
	}
	// an idle bucket is full again after one window, so it can be forgotten then
	cl.expires = now.Add(rateWindow)
	return cl.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) cleanupExpiredLocked(now time.Time) {
	for key, cl := range rl.limiters {
		if now.After(cl.expires) {
			delete(rl.limiters, key)
		}
	}
}

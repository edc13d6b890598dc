package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/respiralivre/api/utils"
)

func rejectRateLimited(ctx *gin.Context) {
	utils.RateLimitRejections.Inc()
	ctx.Header("Retry-After", "60")
	utils.Fail(ctx, utils.NewError(utils.KindRateLimited, "too many requests, try again in a minute"))
	ctx.Abort()
}

// RateLimit applies the per-user fixed window limiter. It must run after AuthRequired.
func RateLimit(limiter *utils.RateLimiter) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userID, ok := CurrentUserID(ctx)
		if !ok {
			ctx.Next()
			return
		}
		if !limiter.Allow(ctx.Request.Context(), userID.String()) {
			rejectRateLimited(ctx)
			return
		}
		ctx.Next()
	}
}

type ipBucket struct {
	limiter *rate.Limiter
	expires time.Time
}

// IPRateLimit guards unauthenticated routes with an in-process token bucket per client IP.
func IPRateLimit(perMinute int) gin.HandlerFunc {
	if perMinute < 1 {
		perMinute = 1
	}
	var (
		mu      sync.Mutex
		buckets = map[string]*ipBucket{}
	)
	every := rate.Every(time.Minute / time.Duration(perMinute))
	burst := max(perMinute/2, 1)

	get := func(ip string, now time.Time) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		for key, b := range buckets {
			if now.After(b.expires) {
				delete(buckets, key)
			}
		}
		b, ok := buckets[ip]
		if !ok {
			b = &ipBucket{limiter: rate.NewLimiter(every, burst)}
			buckets[ip] = b
		}
		b.expires = now.Add(5 * time.Minute)
		return b.limiter
	}

	return func(ctx *gin.Context) {
		if !get(ctx.ClientIP(), time.Now()).Allow() {
			rejectRateLimited(ctx)
			return
		}
		ctx.Next()
	}
}

package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v9"
	"moff.io/walletkit/pkg/log"
)

// RateLimiter decides whether key may issue one more request.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

type redisRateLimiter struct {
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
}

// NewRedisRateLimiter allows perMinute requests per key and minute.
func NewRedisRateLimiter(limiter *redis_rate.Limiter, perMinute int) RateLimiter {
	return &redisRateLimiter{limiter: limiter, limit: redis_rate.PerMinute(perMinute)}
}

func (r *redisRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	res, err := r.limiter.Allow(ctx, key, r.limit)
	if err != nil {
		return false, 0, err
	}
	return res.Allowed > 0, res.RetryAfter, nil
}

// rateLimited rejects clients over their budget with 429. Limiter failures let
// the request through.
func rateLimited(limiter RateLimiter) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		allowed, retryAfter, err := limiter.Allow(ctx.Request.Context(), "walletkit:rate:"+ctx.ClientIP())
		if err != nil {
			log.Warnf("rate limiter unavailable:%v", err)
			ctx.Next()
			return
		}
		if !allowed {
			if retryAfter > 0 {
				ctx.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds()+0.5)))
			}
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		ctx.Next()
	}
}

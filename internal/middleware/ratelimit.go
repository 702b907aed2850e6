package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/juju/ratelimit"
)

// RateLimit 令牌桶限流，没有可用令牌直接拒绝
//
// rate：每秒生成的令牌数；capacity：桶大小
func RateLimit(rate float64, capacity int64) gin.HandlerFunc {
	bucket := ratelimit.NewBucketWithRate(rate, capacity)
	return func(c *gin.Context) {
		if bucket.TakeAvailable(1) != 1 {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "Request was throttled."})
			return
		}
		c.Next()
	}
}

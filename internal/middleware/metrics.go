package middleware

import (
	"strconv"

	"community_hub/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics 按路由模板统计请求数
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

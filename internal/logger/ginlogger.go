package logger

import (
	"errors"
	"net"
	"net/http"
	"net/http/httputil"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		cost := time.Since(start)

		Infof("| %3d | %13v | %15v | %-7s \"%s\"", c.Writer.Status(),
			cost,
			c.ClientIP(),
			c.Request.Method,
			c.Request.URL)
	}
}

func GinRecovery(stack bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				// 连接已断开时无需打印完整栈
				var brokenPipe bool
				if ne, ok := rec.(*net.OpError); ok {
					var se *os.SyscallError
					if errors.As(ne.Err, &se) {
						msg := strings.ToLower(se.Error())
						if strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer") {
							brokenPipe = true
						}
					}
				}

				httpRequest, _ := httputil.DumpRequest(c.Request, false)
				if brokenPipe {
					Errorf("%s: %v\n%s", c.Request.URL.Path, rec, string(httpRequest))
					c.Abort()
					return
				}

				if stack {
					Errorf("[Recovery from panic]\nError: %v\nRequest: %v\nStack trace:\n%v",
						rec, string(httpRequest), string(debug.Stack()))
				} else {
					Errorf("[Recovery from panic]\nError: %v\nRequest: %v\n", rec, string(httpRequest))
				}
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

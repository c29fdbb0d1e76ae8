package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
)

// Logger 访问日志中间件
func Logger(l logger.Logger) gin.HandlerFunc {
	l = l.Named("web.access")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"status", status,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"ip", c.ClientIP(),
			"latency", time.Since(start).String(),
		}
		if uid, ok := GetUserID(c); ok {
			fields = append(fields, "user_id", uid)
		}

		ctx := c.Request.Context()
		switch {
		case len(c.Errors) > 0:
			l.ErrorContext(ctx, "http request failed", append(fields, "error", c.Errors.Last().Err)...)
		case status >= 500:
			l.ErrorContext(ctx, "http request", fields...)
		case status >= 400:
			l.WarnContext(ctx, "http request", fields...)
		default:
			l.InfoContext(ctx, "http request", fields...)
		}
	}
}

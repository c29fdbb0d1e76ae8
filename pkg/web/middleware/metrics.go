package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-gacha/pkg/web/metrics"
)

// Metrics 接口监控中间件，path 使用路由模板避免标签基数膨胀
func Metrics(m *metrics.HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		m.RequestsTotal.WithLabelValues(path, c.Request.Method, status).Inc()
		m.RequestDuration.WithLabelValues(path, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

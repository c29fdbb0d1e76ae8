package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	weberrors "github.com/lk2023060901/xdooria-gacha/pkg/web/errors"
)

// PanicReporter panic 上报回调
type PanicReporter func(ctx context.Context, recovered any)

// Recovery 异常恢复中间件
func Recovery(l logger.Logger, report PanicReporter) gin.HandlerFunc {
	l = l.Named("web.recovery")
	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}

			httpRequest, _ := httputil.DumpRequest(c.Request, false)
			if isBrokenPipe(recovered) {
				l.Warn("http broken pipe", "error", recovered, "request", string(httpRequest))
				c.Abort()
				return
			}

			l.ErrorContext(c.Request.Context(), "http recovery from panic",
				"panic", recovered,
				"request", string(httpRequest),
			)
			if report != nil {
				report(c.Request.Context(), recovered)
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":    weberrors.CodeInternalError,
				"message": "internal server error",
				"data":    nil,
			})
		}()
		c.Next()
	}
}

func isBrokenPipe(recovered any) bool {
	err, ok := recovered.(error)
	if !ok {
		return false
	}
	var ne *net.OpError
	if !errors.As(err, &ne) {
		return false
	}
	var se *os.SyscallError
	if !errors.As(ne.Err, &se) {
		return false
	}
	msg := strings.ToLower(se.Error())
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
}

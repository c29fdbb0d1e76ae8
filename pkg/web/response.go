package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-gacha/pkg/web/errors"
	"go.opentelemetry.io/otel/trace"
)

// Response 统一响应结构
type Response struct {
	Code    int    `json:"code"` // 0 表示成功
	Message string `json:"message"`
	Data    any    `json:"data"`
	TraceID string `json:"trace_id,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    errors.CodeOK,
		Message: "ok",
		Data:    data,
		TraceID: traceID(c),
	})
}

// Fail 按业务错误码推导 HTTP 状态码
func Fail(c *gin.Context, code int, message string) {
	Error(c, errors.CodeToStatus(code), code, message)
}

// Error 错误响应
func Error(c *gin.Context, httpStatus int, code int, message string) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
		TraceID: traceID(c),
	})
}

// AbortWithError 中断并返回错误
func AbortWithError(c *gin.Context, httpStatus int, code int, message string) {
	c.AbortWithStatusJSON(httpStatus, Response{
		Code:    code,
		Message: message,
		TraceID: traceID(c),
	})
}

func traceID(c *gin.Context) string {
	sc := trace.SpanContextFromContext(c.Request.Context())
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

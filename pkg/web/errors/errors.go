package errors

import "net/http"

// 业务错误码
const (
	CodeOK            = 0
	CodeInvalidParams = 40001
	CodeUnAuthorized  = 40002
	CodeForbidden     = 40003
	CodeNotFound      = 40004
	CodeInternalError = 50000
	CodeExternalError = 50001
	// CodeUnavailable 并发冲突重试耗尽等暂时性失败，客户端可重试
	CodeUnavailable = 50003
)

// CodeToStatus 将业务错误码映射为 HTTP 状态码
func CodeToStatus(code int) int {
	switch code {
	case CodeOK:
		return http.StatusOK
	case CodeUnAuthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	}
	switch {
	case code >= 40000 && code < 50000:
		return http.StatusBadRequest
	case code >= 50000:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

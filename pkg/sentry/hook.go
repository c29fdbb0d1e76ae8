package sentry

import (
	"github.com/getsentry/sentry-go"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"go.uber.org/zap/zapcore"
)

// LoggerHook 将 Error 及以上级别的日志转发为 Sentry 消息
// 日志中的 error 字段作为异常上报，其余字符串字段作为标签
func (c *Client) LoggerHook() logger.Hook {
	return logger.LevelHook(zapcore.ErrorLevel, func(entry zapcore.Entry, fields []zapcore.Field) {
		if c.closed.Load() {
			return
		}

		tags := map[string]string{"logger": entry.LoggerName}
		var cause error
		for _, f := range fields {
			switch f.Type {
			case zapcore.ErrorType:
				if err, ok := f.Interface.(error); ok {
					cause = err
				}
			case zapcore.StringType:
				tags[f.Key] = f.String
			}
		}

		if cause != nil {
			c.hub.WithScope(func(scope *sentry.Scope) {
				scope.SetExtra("message", entry.Message)
				for k, v := range tags {
					scope.SetTag(k, v)
				}
				c.count(c.hub.CaptureException(cause))
			})
			return
		}
		c.CaptureMessage(entry.Message, LevelError, tags)
	})
}

package logger

import (
	"go.uber.org/zap/zapcore"
)

// Hook 日志写入钩子
type Hook interface {
	// OnWrite 在写入前调用，返回 false 则丢弃该条日志
	OnWrite(entry zapcore.Entry, fields []zapcore.Field) bool
}

// HookFunc 函数式 Hook
type HookFunc func(entry zapcore.Entry, fields []zapcore.Field) bool

func (f HookFunc) OnWrite(entry zapcore.Entry, fields []zapcore.Field) bool {
	return f(entry, fields)
}

// HookedCore 带钩子的 Core
type HookedCore struct {
	zapcore.Core
	hooks []Hook
}

// NewHookedCore 创建带钩子的 Core
func NewHookedCore(core zapcore.Core, hooks ...Hook) zapcore.Core {
	return &HookedCore{Core: core, hooks: hooks}
}

func (h *HookedCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if h.Enabled(entry.Level) {
		return ce.AddCore(entry, h)
	}
	return ce
}

func (h *HookedCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	for _, hook := range h.hooks {
		if !hook.OnWrite(entry, fields) {
			return nil
		}
	}
	return h.Core.Write(entry, fields)
}

func (h *HookedCore) With(fields []zapcore.Field) zapcore.Core {
	return &HookedCore{Core: h.Core.With(fields), hooks: h.hooks}
}

// LevelHook 仅对不低于 min 的日志触发 fn，不影响日志本身的写入
func LevelHook(min zapcore.Level, fn func(entry zapcore.Entry, fields []zapcore.Field)) Hook {
	return HookFunc(func(entry zapcore.Entry, fields []zapcore.Field) bool {
		if entry.Level >= min {
			fn(entry, fields)
		}
		return true
	})
}

// SensitiveDataHook 敏感字段脱敏
func SensitiveDataHook(sensitiveKeys ...string) Hook {
	keys := make(map[string]struct{}, len(sensitiveKeys))
	for _, k := range sensitiveKeys {
		keys[k] = struct{}{}
	}
	return HookFunc(func(entry zapcore.Entry, fields []zapcore.Field) bool {
		for i := range fields {
			if _, ok := keys[fields[i].Key]; ok {
				fields[i] = zapcore.Field{Key: fields[i].Key, Type: zapcore.StringType, String: "***"}
			}
		}
		return true
	})
}

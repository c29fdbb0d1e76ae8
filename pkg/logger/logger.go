package logger

import (
	"context"
	"fmt"
	"os"

	"github.com/lk2023060901/xdooria-gacha/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ Logger = (*BaseLogger)(nil)

// BaseLogger 基于 zap 的日志记录器
type BaseLogger struct {
	zl               *zap.Logger
	config           *Config
	hooks            []Hook
	contextExtractor ContextFieldExtractor
}

// Option 日志选项
type Option func(*BaseLogger)

// WithHooks 添加写入钩子
func WithHooks(hooks ...Hook) Option {
	return func(l *BaseLogger) {
		l.hooks = append(l.hooks, hooks...)
	}
}

// WithContextExtractor 设置 context 字段提取器
func WithContextExtractor(fn ContextFieldExtractor) Option {
	return func(l *BaseLogger) {
		if fn != nil {
			l.contextExtractor = fn
		}
	}
}

// New 创建 BaseLogger，cfg 可只填写需要覆盖的字段
func New(cfg *Config, opts ...Option) (*BaseLogger, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	l := &BaseLogger{
		config:           merged,
		contextExtractor: DefaultContextExtractor,
	}
	for _, opt := range opts {
		opt(l)
	}

	core, err := l.buildCore()
	if err != nil {
		return nil, err
	}
	l.zl = l.buildLogger(core)
	return l, nil
}

// NewWithCore 使用自定义 core 创建 logger（测试中用于捕获输出）
func NewWithCore(core zapcore.Core, opts ...Option) *BaseLogger {
	l := &BaseLogger{
		config:           DefaultConfig(),
		contextExtractor: DefaultContextExtractor,
	}
	for _, opt := range opts {
		opt(l)
	}
	if len(l.hooks) > 0 {
		core = NewHookedCore(core, l.hooks...)
	}
	l.zl = zap.New(core)
	return l
}

func (l *BaseLogger) buildCore() (zapcore.Core, error) {
	var encoder zapcore.Encoder
	if l.config.Format == JSONFormat {
		encoder = zapcore.NewJSONEncoder(l.encoderConfig())
	} else {
		encoder = zapcore.NewConsoleEncoder(l.encoderConfig())
	}

	writers := make([]zapcore.WriteSyncer, 0, 2)
	if l.config.EnableConsole {
		writers = append(writers, zapcore.AddSync(os.Stdout))
	}
	if l.config.EnableFile {
		w, err := NewRotationWriter(&l.config.Rotation, l.config.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create rotation writer: %w", err)
		}
		writers = append(writers, zapcore.AddSync(w))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(writers...), toZapLevel(l.config.Level))
	if len(l.hooks) > 0 {
		core = NewHookedCore(core, l.hooks...)
	}
	if l.config.EnableSampling {
		core = zapcore.NewSamplerWithOptions(core, 1e9, l.config.SamplingInitial, l.config.SamplingThereafter)
	}
	return core, nil
}

func (l *BaseLogger) buildLogger(core zapcore.Core) *zap.Logger {
	options := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1)}
	if l.config.EnableStacktrace {
		options = append(options, zap.AddStacktrace(toZapLevel(l.config.StacktraceLevel)))
	}
	if l.config.Development {
		options = append(options, zap.Development())
	}

	zl := zap.New(core, options...)
	if len(l.config.GlobalFields) > 0 {
		fields := make([]zap.Field, 0, len(l.config.GlobalFields))
		for k, v := range l.config.GlobalFields {
			fields = append(fields, zap.Any(k, v))
		}
		zl = zl.With(fields...)
	}
	return zl
}

func (l *BaseLogger) encoderConfig() zapcore.EncoderConfig {
	ec := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
	}
	if l.config.TimeFormat != "" {
		ec.EncodeTime = zapcore.TimeEncoderOfLayout(l.config.TimeFormat)
	}
	if l.config.Development {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return ec
}

func toZapLevel(level Level) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Zap 返回底层 zap.Logger
func (l *BaseLogger) Zap() *zap.Logger {
	return l.zl
}

func (l *BaseLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.zl.Debug(msg, toZapFields(keysAndValues)...)
}

func (l *BaseLogger) Info(msg string, keysAndValues ...interface{}) {
	l.zl.Info(msg, toZapFields(keysAndValues)...)
}

func (l *BaseLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.zl.Warn(msg, toZapFields(keysAndValues)...)
}

func (l *BaseLogger) Error(msg string, keysAndValues ...interface{}) {
	l.zl.Error(msg, toZapFields(keysAndValues)...)
}

func (l *BaseLogger) DebugContext(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.zl.Debug(msg, l.withContext(ctx, keysAndValues)...)
}

func (l *BaseLogger) InfoContext(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.zl.Info(msg, l.withContext(ctx, keysAndValues)...)
}

func (l *BaseLogger) WarnContext(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.zl.Warn(msg, l.withContext(ctx, keysAndValues)...)
}

func (l *BaseLogger) ErrorContext(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.zl.Error(msg, l.withContext(ctx, keysAndValues)...)
}

// Named 创建具名子 logger，名称以 "." 连接
func (l *BaseLogger) Named(name string) Logger {
	return l.derive(l.zl.Named(name))
}

// WithFields 创建携带固定字段的子 logger
func (l *BaseLogger) WithFields(keysAndValues ...interface{}) Logger {
	fields := toZapFields(keysAndValues)
	if len(fields) == 0 {
		return l
	}
	return l.derive(l.zl.With(fields...))
}

func (l *BaseLogger) Sync() error {
	return l.zl.Sync()
}

func (l *BaseLogger) derive(zl *zap.Logger) *BaseLogger {
	return &BaseLogger{
		zl:               zl,
		config:           l.config,
		hooks:            l.hooks,
		contextExtractor: l.contextExtractor,
	}
}

func (l *BaseLogger) withContext(ctx context.Context, keysAndValues []interface{}) []zap.Field {
	return append(l.contextExtractor(ctx), toZapFields(keysAndValues)...)
}

// toZapFields 将 key/value 对转换为 zap.Field，zap.Field 与 error 可直接传入
func toZapFields(keysAndValues []interface{}) []zap.Field {
	if len(keysAndValues) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, len(keysAndValues)/2+1)
	for i := 0; i < len(keysAndValues); i++ {
		switch v := keysAndValues[i].(type) {
		case zap.Field:
			fields = append(fields, v)
			continue
		case error:
			fields = append(fields, zap.Error(v))
			continue
		case string:
			if i+1 < len(keysAndValues) {
				fields = append(fields, zap.Any(v, keysAndValues[i+1]))
				i++
				continue
			}
			fields = append(fields, zap.Any("!BADKEY", v))
		default:
			fields = append(fields, zap.Any("!BADKEY", v))
		}
	}
	return fields
}

package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextFieldExtractor 从 context 提取日志字段
type ContextFieldExtractor func(ctx context.Context) []zap.Field

// DefaultContextExtractor 提取当前 span 的 trace_id / span_id
func DefaultContextExtractor(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}

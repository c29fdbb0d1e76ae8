package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// 抽卡相关 Span 属性键
const (
	AttrUserID     = attribute.Key("gacha.user_id")
	AttrBannerID   = attribute.Key("gacha.banner_id")
	AttrPullNumber = attribute.Key("gacha.pull_number")
	AttrRarity     = attribute.Key("gacha.rarity")
	AttrBatchCount = attribute.Key("gacha.batch_count")
	AttrPity       = attribute.Key("gacha.pity")
)

// StartSpan 使用全局 TracerProvider 开始一个内部 Span
func StartSpan(ctx context.Context, tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracer).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// EndSpan 结束 Span，err 非空时记录错误并标记状态
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

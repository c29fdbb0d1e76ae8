package otel

import (
	"context"
	"sync/atomic"

	"github.com/lk2023060901/xdooria-gacha/pkg/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerProvider 追踪提供者
type TracerProvider struct {
	config   *Config
	provider *sdktrace.TracerProvider
	closed   atomic.Bool
}

// New 创建追踪提供者并设置为全局
// 未启用或 noop 导出器时不创建 SDK provider，Tracer 回落到全局 noop 实现
func New(cfg *Config) (*TracerProvider, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	p := &TracerProvider{config: newCfg}
	if !newCfg.Enabled {
		return p, nil
	}

	exporter, err := createExporter(context.Background(), newCfg)
	if err != nil {
		return nil, err
	}
	if exporter == nil {
		return p, nil
	}

	attrs := []attribute.KeyValue{semconv.ServiceName(newCfg.ServiceName)}
	for k, v := range newCfg.Attributes {
		attrs = append(attrs, attribute.String(k, v))
	}

	p.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(newCfg.BatchExport.BatchTimeout),
			sdktrace.WithExportTimeout(newCfg.BatchExport.ExportTimeout),
			sdktrace.WithMaxExportBatchSize(newCfg.BatchExport.BatchSize),
			sdktrace.WithMaxQueueSize(newCfg.BatchExport.MaxQueueSize),
		),
		sdktrace.WithResource(resource.NewWithAttributes(semconv.SchemaURL, attrs...)),
		sdktrace.WithSampler(createSampler(newCfg.Sampler)),
	)

	otel.SetTracerProvider(p.provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return p, nil
}

func createSampler(cfg SamplerConfig) sdktrace.Sampler {
	switch cfg.Type {
	case SamplerTypeAlways:
		return sdktrace.AlwaysSample()
	case SamplerTypeNever:
		return sdktrace.NeverSample()
	case SamplerTypeRatio:
		return sdktrace.TraceIDRatioBased(cfg.Ratio)
	default:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
}

// Tracer 获取指定名称的 Tracer
func (p *TracerProvider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if p.provider == nil {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return p.provider.Tracer(name, opts...)
}

// Shutdown 关闭提供者，刷新未导出的 Span
func (p *TracerProvider) Shutdown(ctx context.Context) error {
	if p.closed.Swap(true) {
		return ErrProviderClosed
	}
	if p.provider == nil {
		return nil
	}
	return p.provider.Shutdown(ctx)
}

// Close 使用配置的超时关闭
func (p *TracerProvider) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.ShutdownTimeout)
	defer cancel()
	return p.Shutdown(ctx)
}

// IsEnabled 是否真正导出
func (p *TracerProvider) IsEnabled() bool {
	return p.config.Enabled && p.provider != nil
}

// Config 获取配置
func (p *TracerProvider) Config() *Config {
	return p.config
}

package otel

import "time"

// Config TracerProvider 配置
type Config struct {
	// Enabled 是否启用追踪
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled"`

	ServiceName string `mapstructure:"service_name" json:"service_name" yaml:"service_name"`

	// Endpoint 导出器端点
	// OTLP HTTP: localhost:4318
	// OTLP gRPC: localhost:4317
	Endpoint string `mapstructure:"endpoint" json:"endpoint" yaml:"endpoint"`

	ExporterType ExporterType `mapstructure:"exporter_type" json:"exporter_type" yaml:"exporter_type"`

	Sampler SamplerConfig `mapstructure:"sampler" json:"sampler" yaml:"sampler"`

	BatchExport BatchExportConfig `mapstructure:"batch_export" json:"batch_export" yaml:"batch_export"`

	// Attributes 资源属性
	Attributes map[string]string `mapstructure:"attributes" json:"attributes" yaml:"attributes"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" json:"shutdown_timeout" yaml:"shutdown_timeout"`

	// Insecure 不使用 TLS
	Insecure bool `mapstructure:"insecure" json:"insecure" yaml:"insecure"`
}

// ExporterType 导出器类型
type ExporterType string

const (
	ExporterTypeOTLPHTTP ExporterType = "otlp-http"
	ExporterTypeOTLPGRPC ExporterType = "otlp-grpc"
	// ExporterTypeStdout 调试用
	ExporterTypeStdout ExporterType = "stdout"
	ExporterTypeNoop   ExporterType = "noop"
)

// SamplerConfig 采样配置
type SamplerConfig struct {
	Type SamplerType `mapstructure:"type" json:"type" yaml:"type"`

	// Ratio 采样比率（0.0-1.0），仅 ratio 类型有效
	Ratio float64 `mapstructure:"ratio" json:"ratio" yaml:"ratio"`
}

// SamplerType 采样类型
type SamplerType string

const (
	SamplerTypeAlways SamplerType = "always"
	SamplerTypeNever  SamplerType = "never"
	SamplerTypeRatio  SamplerType = "ratio"
	SamplerTypeParent SamplerType = "parent"
)

// BatchExportConfig 批量导出配置
type BatchExportConfig struct {
	BatchSize     int           `mapstructure:"batch_size" json:"batch_size" yaml:"batch_size"`
	ExportTimeout time.Duration `mapstructure:"export_timeout" json:"export_timeout" yaml:"export_timeout"`
	MaxQueueSize  int           `mapstructure:"max_queue_size" json:"max_queue_size" yaml:"max_queue_size"`
	BatchTimeout  time.Duration `mapstructure:"batch_timeout" json:"batch_timeout" yaml:"batch_timeout"`
}

// DefaultConfig 默认配置，默认不导出
func DefaultConfig() *Config {
	return &Config{
		ServiceName:  "gacha",
		Endpoint:     "localhost:4318",
		ExporterType: ExporterTypeNoop,
		Sampler: SamplerConfig{
			Type:  SamplerTypeParent,
			Ratio: 1.0,
		},
		BatchExport: BatchExportConfig{
			BatchSize:     512,
			ExportTimeout: 30 * time.Second,
			MaxQueueSize:  2048,
			BatchTimeout:  5 * time.Second,
		},
		Attributes:      make(map[string]string),
		ShutdownTimeout: 5 * time.Second,
		Insecure:        true,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.ServiceName == "" {
		return ErrInvalidServiceName
	}
	if c.Sampler.Type == SamplerTypeRatio && (c.Sampler.Ratio < 0 || c.Sampler.Ratio > 1) {
		return ErrInvalidSamplerRatio
	}
	switch c.ExporterType {
	case ExporterTypeOTLPHTTP, ExporterTypeOTLPGRPC, ExporterTypeStdout, ExporterTypeNoop:
	default:
		return ErrUnsupportedExporter
	}
	return nil
}

package main

import (
	"time"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/gacha"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/metrics"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/service"
	"github.com/lk2023060901/xdooria-gacha/pkg/app"
	"github.com/lk2023060901/xdooria-gacha/pkg/cache/lru"
	"github.com/lk2023060901/xdooria-gacha/pkg/config"
	"github.com/lk2023060901/xdooria-gacha/pkg/database/postgres"
	"github.com/lk2023060901/xdooria-gacha/pkg/database/redis"
	"github.com/lk2023060901/xdooria-gacha/pkg/idgen"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/lk2023060901/xdooria-gacha/pkg/otel"
	"github.com/lk2023060901/xdooria-gacha/pkg/prometheus"
	"github.com/lk2023060901/xdooria-gacha/pkg/security"
	"github.com/lk2023060901/xdooria-gacha/pkg/sentry"
	"github.com/lk2023060901/xdooria-gacha/pkg/web"
)

// 存储驱动
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// StorageConfig 存储配置
type StorageConfig struct {
	// Driver postgres 或 memory
	Driver string `mapstructure:"driver" validate:"oneof=postgres memory"`
	// Migrate 启动时执行数据库迁移
	Migrate bool `mapstructure:"migrate"`
	// SeedCatalog 启动时将卡池目录写入数据库
	SeedCatalog bool `mapstructure:"seed_catalog"`
}

// CatalogConfig 卡池目录配置
type CatalogConfig struct {
	// Path 目录文件，为空时使用内置目录；memory 模式下监听文件变更
	Path string `mapstructure:"path"`
	// RedisCache 启用 Redis 二级缓存
	RedisCache bool          `mapstructure:"redis_cache"`
	RedisTTL   time.Duration `mapstructure:"redis_ttl"`
	LRU        lru.Config    `mapstructure:"lru"`
}

// Config 定义 Gacha 服务的完整配置结构
type Config struct {
	Log logger.Config `mapstructure:"log"`

	// HTTP 服务
	Server web.Config `mapstructure:"server"`

	// 抽卡引擎
	Gacha gacha.Config `mapstructure:"gacha"`

	Storage StorageConfig `mapstructure:"storage"`
	Catalog CatalogConfig `mapstructure:"catalog"`

	// Database 配置
	Postgres postgres.Config `mapstructure:"postgres"`

	// Redis 配置，Addrs 为空时不连接
	Redis redis.Config `mapstructure:"redis"`

	IDGen idgen.Config `mapstructure:"idgen"`

	// 对账任务
	Reconcile service.ReconcileConfig `mapstructure:"reconcile"`

	JWT security.JWTConfig `mapstructure:"jwt"`

	// 指标与追踪
	Metrics    metrics.Config    `mapstructure:"metrics"`
	Prometheus prometheus.Config `mapstructure:"prometheus"`
	Otel       otel.Config       `mapstructure:"otel"`
	Sentry     sentry.Config     `mapstructure:"sentry"`
}

func main() {
	var cfg Config

	// 1. 加载配置
	if err := app.LoadConfig(&cfg); err != nil {
		panic(err)
	}
	if err := config.NewValidator().Validate(&cfg.Storage); err != nil {
		panic(err)
	}

	// 2. 错误上报，Error 级别日志同时发往 Sentry
	reporter, err := sentry.New(&cfg.Sentry)
	if err != nil {
		panic(err)
	}
	defer reporter.Close()

	// 3. 初始化主日志
	l, err := logger.New(&cfg.Log, logger.WithHooks(reporter.LoggerHook()))
	if err != nil {
		panic(err)
	}
	logger.SetDefault(l)
	l.Info("starting", "version", app.GetInfo().String(), "storage", cfg.Storage.Driver)

	// 4. 通过 Wire 初始化应用
	application, cleanup, err := InitApp(&cfg, l, reporter)
	if err != nil {
		l.Error("failed to initialize application", "error", err)
		return
	}
	defer cleanup()

	// 5. 运行服务
	if err := application.Run(); err != nil {
		l.Error("application exited with error", "error", err)
	}
}

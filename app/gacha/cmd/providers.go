package main

import (
	"context"
	"fmt"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/catalog"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/dao"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/gacha"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/handler"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/metrics"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/migration"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/repository"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/service"
	"github.com/lk2023060901/xdooria-gacha/pkg/app"
	"github.com/lk2023060901/xdooria-gacha/pkg/database/postgres"
	"github.com/lk2023060901/xdooria-gacha/pkg/database/redis"
	"github.com/lk2023060901/xdooria-gacha/pkg/idgen"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/lk2023060901/xdooria-gacha/pkg/otel"
	"github.com/lk2023060901/xdooria-gacha/pkg/prometheus"
	"github.com/lk2023060901/xdooria-gacha/pkg/security"
	"github.com/lk2023060901/xdooria-gacha/pkg/sentry"
	"github.com/lk2023060901/xdooria-gacha/pkg/web"
	webmetrics "github.com/lk2023060901/xdooria-gacha/pkg/web/metrics"
	"github.com/lk2023060901/xdooria-gacha/pkg/web/middleware"
)

// provideTracer 提供追踪器，未启用时为空实现
func provideTracer(cfg *Config) (*otel.TracerProvider, error) {
	tp, err := otel.New(&cfg.Otel)
	if err != nil {
		return nil, err
	}
	return tp, nil
}

// providePostgres 提供 PostgreSQL 客户端并执行迁移
func providePostgres(cfg *Config, l logger.Logger) (*postgres.Client, func(), error) {
	if cfg.Storage.Driver == DriverMemory {
		return nil, func() {}, nil
	}
	if cfg.Storage.Migrate {
		if err := migration.Up(&cfg.Postgres.Primary, l); err != nil {
			return nil, nil, err
		}
	}
	db, err := postgres.New(&cfg.Postgres)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { _ = db.Close() }, nil
}

// provideRedis 提供 Redis 客户端，未配置地址时为 nil
func provideRedis(cfg *Config) (*redis.Client, func(), error) {
	if len(cfg.Redis.Addrs) == 0 {
		return nil, func() {}, nil
	}
	rdb, err := redis.New(&cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	return rdb, func() { _ = rdb.Close() }, nil
}

// provideIDGenerator 提供流水 ID 生成器
func provideIDGenerator(cfg *Config) (idgen.Generator, error) {
	return idgen.NewSonyflake(&cfg.IDGen)
}

// provideGachaMetrics 提供抽卡指标
func provideGachaMetrics(cfg *Config) (*metrics.GachaMetrics, error) {
	return metrics.New(&cfg.Metrics)
}

// providePrometheus 提供 Prometheus 客户端并注册抽卡指标
func providePrometheus(cfg *Config, m *metrics.GachaMetrics, l logger.Logger) (*prometheus.Client, error) {
	client, err := prometheus.New(&cfg.Prometheus, l)
	if err != nil {
		return nil, err
	}
	if err := m.Register(client.Registry()); err != nil {
		return nil, fmt.Errorf("failed to register gacha metrics: %w", err)
	}
	return client, nil
}

// provideDrawRepository 按存储驱动提供抽卡仓储
func provideDrawRepository(
	cfg *Config,
	db *postgres.Client,
	ids idgen.Generator,
	m *metrics.GachaMetrics,
	l logger.Logger,
) repository.DrawRepository {
	if cfg.Storage.Driver == DriverMemory {
		return repository.NewMemoryDrawRepository(ids, l)
	}
	return repository.NewPostgresDrawRepository(
		db,
		dao.NewLedgerDAO(ids, l, m),
		dao.NewHoldingsDAO(l, m),
		l,
	)
}

// provideCatalogRepository 提供卡池仓储
// postgres 模式从数据库读取，可选写入目录；memory 模式读取目录文件并监听变更
func provideCatalogRepository(
	cfg *Config,
	db *postgres.Client,
	rdb *redis.Client,
	m *metrics.GachaMetrics,
	l logger.Logger,
) (repository.CatalogRepository, func(), error) {
	c, err := catalog.LoadFile(cfg.Catalog.Path)
	if err != nil {
		return nil, nil, err
	}

	var cacheDAO *dao.CacheDAO
	if cfg.Catalog.RedisCache && rdb != nil {
		cacheDAO = dao.NewCacheDAO(rdb, cfg.Catalog.RedisTTL, l, m)
	}

	if cfg.Storage.Driver != DriverMemory {
		catalogDAO := dao.NewCatalogDAO(l, m)
		if cfg.Storage.SeedCatalog {
			if err := catalog.NewSeeder(db, catalogDAO, l).Seed(context.Background(), c); err != nil {
				return nil, nil, err
			}
		}
		repo := repository.NewCatalogRepository(repository.NewPostgresCatalogSource(db, catalogDAO), cacheDAO, &cfg.Catalog.LRU, l, m)
		if cacheDAO != nil && cfg.Storage.SeedCatalog {
			// 目录刚写入数据库，丢弃其他实例留下的旧缓存
			if err := repo.Invalidate(context.Background(), c.IDs()...); err != nil {
				l.Warn("failed to invalidate catalog cache", "error", err)
			}
		}
		return repo, func() { _ = repo.Close() }, nil
	}

	static := catalog.NewStatic(c)
	repo := repository.NewCatalogRepository(static, cacheDAO, &cfg.Catalog.LRU, l, m)
	if cfg.Catalog.Path == "" {
		return repo, func() { _ = repo.Close() }, nil
	}

	watcher, err := static.Watch(cfg.Catalog.Path, l, func(next *catalog.Catalog) {
		ids := append(c.IDs(), next.IDs()...)
		if err := repo.Invalidate(context.Background(), ids...); err != nil {
			l.Warn("failed to invalidate catalog cache", "error", err)
		}
		c = next
	})
	if err != nil {
		_ = repo.Close()
		return nil, nil, err
	}
	return repo, func() {
		_ = watcher.Stop()
		_ = repo.Close()
	}, nil
}

// provideEngine 提供抽卡引擎，指标作为事件观察者
func provideEngine(cfg *Config, draws repository.DrawRepository, m *metrics.GachaMetrics, l logger.Logger) (*gacha.Engine, error) {
	return gacha.NewEngine(draws, nil, &cfg.Gacha, l, gacha.WithObserver(m))
}

// provideReconcileConfig 提供对账配置
func provideReconcileConfig(cfg *Config) *service.ReconcileConfig {
	return &cfg.Reconcile
}

// provideGachaHandler 提供 HTTP 处理器
func provideGachaHandler(svc *service.GachaService, l logger.Logger) *handler.GachaHandler {
	return handler.NewGachaHandler(svc, app.Version, l)
}

// provideJWTManager 提供 JWT 管理器
func provideJWTManager(cfg *Config) (*security.JWTManager, error) {
	return security.NewJWTManager(&cfg.JWT)
}

// provideWebServer 提供 Web 服务并注册路由
func provideWebServer(
	cfg *Config,
	h *handler.GachaHandler,
	jwtManager *security.JWTManager,
	promClient *prometheus.Client,
	reporter *sentry.Client,
	l logger.Logger,
) (*web.Server, error) {
	httpMetrics := webmetrics.New(app.AppName)
	if err := httpMetrics.Register(promClient.Registry()); err != nil {
		return nil, fmt.Errorf("failed to register http metrics: %w", err)
	}

	srv, err := web.NewServer(&cfg.Server, l,
		web.WithMetrics(httpMetrics),
		web.WithServiceName(app.AppName),
		web.WithPanicReporter(func(ctx context.Context, recovered any) {
			reporter.RecoverWithContext(ctx, recovered)
		}),
	)
	if err != nil {
		return nil, err
	}
	h.Register(srv.Router(), middleware.Auth(&middleware.AuthConfig{JWTManager: jwtManager}))
	return srv, nil
}

// provideAppOptions 提供应用选项
func provideAppOptions(l logger.Logger) []app.Option {
	return []app.Option{
		app.WithName(app.AppName),
		app.WithLogger(l),
	}
}

// provideAppComponents 提供应用组件
func provideAppComponents(
	webServer *web.Server,
	promClient *prometheus.Client,
	reconciler *service.ReconcileService,
	tp *otel.TracerProvider,
) app.AppComponents {
	return app.AppComponents{
		Servers: []app.Server{
			webServer,
			promClient,
			reconciler,
		},
		Closers: []app.Closer{
			tp,
		},
	}
}

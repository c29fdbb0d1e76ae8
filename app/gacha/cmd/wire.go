//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/handler"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/service"
	"github.com/lk2023060901/xdooria-gacha/pkg/app"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/lk2023060901/xdooria-gacha/pkg/sentry"
)

func InitApp(cfg *Config, l logger.Logger, reporter *sentry.Client) (app.Application, func(), error) {
	panic(wire.Build(
		// 1. 基础框架 (BaseApp)
		app.ProviderSet,

		// 2. 追踪
		provideTracer,

		// 3. 存储客户端，memory 模式下为 nil
		providePostgres,
		provideRedis,
		provideIDGenerator,

		// 4. 指标收集
		provideGachaMetrics,
		providePrometheus,

		// 5. 仓储 (Repository)
		provideDrawRepository,
		provideCatalogRepository,

		// 6. 抽卡引擎
		provideEngine,

		// 7. 服务层 (Service)
		service.NewGachaService,
		provideReconcileConfig,
		service.NewReconcileService,

		// 8. 接口层 (Handler)
		provideGachaHandler,
		provideJWTManager,
		provideWebServer,

		// 9. 组装与应用配置
		provideAppOptions,
		provideAppComponents,
		app.InitApp,
	))
}

package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/catalog"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/gacha"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/repository"
	"github.com/lk2023060901/xdooria-gacha/pkg/config"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/lk2023060901/xdooria-gacha/pkg/util/conc"
)

// OfflineConfig 进程内模拟配置
type OfflineConfig struct {
	Users        int    `validate:"gt=0"`
	PullsPerUser int    `validate:"gt=0"`
	BatchSize    int    `validate:"gte=0,lte=100"` // 0 表示逐次单抽
	BannerID     int64  `validate:"gt=0"`
	Workers      int    `validate:"gt=0"`
	Seed         uint64 // 0 表示系统熵
	CatalogPath  string // 为空时使用内置目录
}

// RunOffline 在内存仓储上驱动抽卡引擎，统计稀有度分布与保底触发
func RunOffline(ctx context.Context, cfg *OfflineConfig, l logger.Logger) (*Report, error) {
	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, err
	}
	l = l.Named("robot.offline")

	c, err := catalog.LoadFile(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	detail := c.Detail(cfg.BannerID)
	if detail == nil {
		return nil, fmt.Errorf("banner %d not in catalog", cfg.BannerID)
	}

	report := &Report{}
	draws := repository.NewMemoryDrawRepository(nil, l)
	engine, err := gacha.NewEngine(draws, gacha.NewRandomSource(cfg.Seed), nil, l, gacha.WithObserver(report))
	if err != nil {
		return nil, err
	}

	pool := conc.NewPool[struct{}](cfg.Workers)
	defer pool.Release()

	start := time.Now()
	futures := make([]*conc.Future[struct{}], 0, cfg.Users)
	for i := 0; i < cfg.Users; i++ {
		userID := int64(i + 1)
		futures = append(futures, pool.Submit(func() (struct{}, error) {
			return struct{}{}, drawAll(ctx, engine, userID, detail.ID, detail.Items, cfg)
		}))
	}

	var firstErr error
	for _, f := range futures {
		if _, err := f.Await(); err != nil {
			report.FailedUsers.Inc()
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		report.Users.Inc()
	}
	report.elapsed.Store(time.Since(start))

	drift, err := draws.FindHoldingsDrift(ctx, cfg.Users*len(detail.Items))
	if err != nil {
		return report, err
	}
	report.Drift.Store(int64(len(drift)))

	if firstErr != nil {
		l.Warn("some users failed", "failed", report.FailedUsers.Load(), "error", firstErr)
	}
	return report, firstErr
}

func drawAll(ctx context.Context, engine *gacha.Engine, userID, bannerID int64, pool []model.Item, cfg *OfflineConfig) error {
	remaining := cfg.PullsPerUser
	for remaining > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if cfg.BatchSize <= 1 {
			if _, err := engine.DrawOne(ctx, userID, bannerID, pool); err != nil {
				return err
			}
			remaining--
			continue
		}
		n := min(cfg.BatchSize, remaining)
		if _, err := engine.DrawBatch(ctx, userID, bannerID, pool, n); err != nil {
			return err
		}
		remaining -= n
	}
	return nil
}

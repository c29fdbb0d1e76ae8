package catalog

import (
	"context"
	"fmt"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/dao"
	"github.com/lk2023060901/xdooria-gacha/pkg/database/postgres"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
)

// Seeder 将目录写入数据库
type Seeder struct {
	db     *postgres.Client
	dao    *dao.CatalogDAO
	logger logger.Logger
}

// NewSeeder 创建目录入库器
func NewSeeder(db *postgres.Client, catalogDAO *dao.CatalogDAO, l logger.Logger) *Seeder {
	return &Seeder{
		db:     db,
		dao:    catalogDAO,
		logger: l.Named("catalog.seeder"),
	}
}

// Seed 在一个事务内按 ID upsert 全部卡池与物品
func (s *Seeder) Seed(ctx context.Context, c *Catalog) error {
	items := 0
	err := s.db.WithTx(ctx, postgres.TxOptions{}, func(tx postgres.Tx) error {
		for _, b := range c.Banners {
			if err := s.dao.UpsertBanner(ctx, tx, b.Banner); err != nil {
				return err
			}
			for _, it := range b.Items {
				if err := s.dao.UpsertItem(ctx, tx, it); err != nil {
					return err
				}
				items++
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	s.logger.Info("catalog seeded",
		"banners", len(c.Banners),
		"items", items,
	)
	return nil
}

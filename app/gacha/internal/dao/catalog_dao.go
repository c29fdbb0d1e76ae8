package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/metrics"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/pkg/database/postgres"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
)

// CatalogDAO 卡池与物品数据访问对象
type CatalogDAO struct {
	logger  logger.Logger
	metrics *metrics.GachaMetrics
}

// NewCatalogDAO 创建卡池 DAO
func NewCatalogDAO(l logger.Logger, m *metrics.GachaMetrics) *CatalogDAO {
	return &CatalogDAO{
		logger:  l.Named("dao.catalog"),
		metrics: m,
	}
}

// ListBanners 全部卡池（含未开放），按 ID 升序
func (d *CatalogDAO) ListBanners(ctx context.Context, q postgres.Querier) (out []model.Banner, err error) {
	defer func(start time.Time) { recordQuery(d.metrics, "select", start, err) }(time.Now())

	builder := postgres.QueryBuilder.
		Select("id", "name", "description", "is_active").
		From(tableBanners).
		OrderBy("id ASC")

	rows, err := postgres.QueryAllBuilder[model.Banner](ctx, q, builder)
	if err != nil {
		return nil, fmt.Errorf("failed to list banners: %w", err)
	}
	out = make([]model.Banner, len(rows))
	for i, r := range rows {
		out[i] = *r
	}
	return out, nil
}

// GetBanner 按 ID 查询卡池，不存在时返回 nil
func (d *CatalogDAO) GetBanner(ctx context.Context, q postgres.Querier, bannerID int64) (b *model.Banner, err error) {
	defer func(start time.Time) { recordQuery(d.metrics, "select", start, err) }(time.Now())

	builder := postgres.QueryBuilder.
		Select("id", "name", "description", "is_active").
		From(tableBanners).
		Where(squirrel.Eq{"id": bannerID})

	b, err = postgres.QueryOneBuilder[model.Banner](ctx, q, builder)
	if err != nil {
		if errors.Is(err, postgres.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get banner: %w", err)
	}
	return b, nil
}

// ListItems 卡池全部物品，按 ID 升序
func (d *CatalogDAO) ListItems(ctx context.Context, q postgres.Querier, bannerID int64) (out []model.Item, err error) {
	defer func(start time.Time) { recordQuery(d.metrics, "select", start, err) }(time.Now())

	builder := postgres.QueryBuilder.
		Select("id", "banner_id", "name", "rarity", "weight", "emoji").
		From(tableItems).
		Where(squirrel.Eq{"banner_id": bannerID}).
		OrderBy("id ASC")

	rows, err := postgres.QueryAllBuilder[model.Item](ctx, q, builder)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	out = make([]model.Item, len(rows))
	for i, r := range rows {
		out[i] = *r
	}
	return out, nil
}

// UpsertBanner 按 ID 写入卡池
func (d *CatalogDAO) UpsertBanner(ctx context.Context, q postgres.Querier, b model.Banner) (err error) {
	defer func(start time.Time) { recordQuery(d.metrics, "upsert", start, err) }(time.Now())

	builder := postgres.QueryBuilder.
		Insert(tableBanners).
		Columns("id", "name", "description", "is_active").
		Values(b.ID, b.Name, b.Description, b.Active).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			is_active = EXCLUDED.is_active`)

	if _, err = postgres.ExecBuilder(ctx, q, builder); err != nil {
		d.logger.Error("failed to upsert banner",
			"banner_id", b.ID,
			"error", err,
		)
		return fmt.Errorf("failed to upsert banner: %w", err)
	}
	return nil
}

// UpsertItem 按 ID 写入物品
func (d *CatalogDAO) UpsertItem(ctx context.Context, q postgres.Querier, it model.Item) (err error) {
	defer func(start time.Time) { recordQuery(d.metrics, "upsert", start, err) }(time.Now())

	builder := postgres.QueryBuilder.
		Insert(tableItems).
		Columns("id", "banner_id", "name", "rarity", "weight", "emoji").
		Values(it.ID, it.BannerID, it.Name, int16(it.Rarity), it.Weight, it.Emoji).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			banner_id = EXCLUDED.banner_id,
			name = EXCLUDED.name,
			rarity = EXCLUDED.rarity,
			weight = EXCLUDED.weight,
			emoji = EXCLUDED.emoji`)

	if _, err = postgres.ExecBuilder(ctx, q, builder); err != nil {
		d.logger.Error("failed to upsert item",
			"item_id", it.ID,
			"banner_id", it.BannerID,
			"error", err,
		)
		return fmt.Errorf("failed to upsert item: %w", err)
	}
	return nil
}

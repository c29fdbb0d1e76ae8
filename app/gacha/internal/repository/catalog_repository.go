package repository

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/dao"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/gacha"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/metrics"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/pkg/cache/lru"
	"github.com/lk2023060901/xdooria-gacha/pkg/database/postgres"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"golang.org/x/sync/singleflight"
)

// CatalogSource 卡池数据来源
type CatalogSource interface {
	// ListBanners 全部卡池（含未开放），按 ID 升序
	ListBanners(ctx context.Context) ([]model.Banner, error)
	// GetBannerDetail 卡池及物品，不存在时返回 nil
	GetBannerDetail(ctx context.Context, bannerID int64) (*model.BannerDetail, error)
}

// ItemInfo 物品及其所属卡池名称
type ItemInfo struct {
	model.Item
	BannerName string
}

// CatalogRepository 带缓存的卡池仓储
// 返回值与缓存共享，调用方不得修改
type CatalogRepository interface {
	// ListActiveBanners 开放中的卡池
	ListActiveBanners(ctx context.Context) ([]model.Banner, error)
	// GetBanner 开放中的卡池及物品，不存在或未开放返回 gacha.ErrBannerNotFound
	GetBanner(ctx context.Context, bannerID int64) (*model.BannerDetail, error)
	// ItemIndex 全部卡池（含未开放）的物品，按物品 ID 索引
	ItemIndex(ctx context.Context) (map[int64]ItemInfo, error)
	// Invalidate 清除本地与 Redis 缓存，不传 ID 时清除全部卡池详情
	Invalidate(ctx context.Context, bannerIDs ...int64) error
	Close() error
}

const (
	bannerListKey = "banners"
	itemIndexKey  = "items"
)

type cachedCatalogRepository struct {
	source  CatalogSource
	redis   *dao.CacheDAO // 可为 nil
	details *lru.LRU[int64, *model.BannerDetail]
	lists   *lru.LRU[string, []model.Banner]
	indexes *lru.LRU[string, map[int64]ItemInfo]
	group   singleflight.Group
	logger  logger.Logger
	metrics *metrics.GachaMetrics
}

// NewCatalogRepository 创建卡池仓储：本地 LRU、Redis、数据来源三级读取，并发回源合并为一次
func NewCatalogRepository(
	source CatalogSource,
	cacheDAO *dao.CacheDAO,
	cfg *lru.Config,
	l logger.Logger,
	m *metrics.GachaMetrics,
) CatalogRepository {
	return &cachedCatalogRepository{
		source:  source,
		redis:   cacheDAO,
		details: lru.New[int64, *model.BannerDetail](cfg),
		lists:   lru.New[string, []model.Banner](cfg),
		indexes: lru.New[string, map[int64]ItemInfo](cfg),
		logger:  l.Named("repository.catalog"),
		metrics: m,
	}
}

func (r *cachedCatalogRepository) ListActiveBanners(ctx context.Context) ([]model.Banner, error) {
	banners, err := r.listBanners(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Banner, 0, len(banners))
	for _, b := range banners {
		if b.Active {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *cachedCatalogRepository) GetBanner(ctx context.Context, bannerID int64) (*model.BannerDetail, error) {
	detail, err := r.getDetail(ctx, bannerID)
	if err != nil {
		return nil, err
	}
	if detail == nil || !detail.Active {
		return nil, errors.Wrapf(gacha.ErrBannerNotFound, "banner %d", bannerID)
	}
	return detail, nil
}

func (r *cachedCatalogRepository) ItemIndex(ctx context.Context) (map[int64]ItemInfo, error) {
	if index, ok := r.indexes.Get(itemIndexKey); ok {
		return index, nil
	}

	v, err, _ := r.group.Do(itemIndexKey, func() (any, error) {
		banners, err := r.listBanners(ctx)
		if err != nil {
			return nil, err
		}
		index := make(map[int64]ItemInfo)
		for _, b := range banners {
			detail, err := r.getDetail(ctx, b.ID)
			if err != nil {
				return nil, err
			}
			if detail == nil {
				continue
			}
			for _, it := range detail.Items {
				index[it.ID] = ItemInfo{Item: it, BannerName: detail.Name}
			}
		}
		r.indexes.Set(itemIndexKey, index)
		return index, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[int64]ItemInfo), nil
}

func (r *cachedCatalogRepository) listBanners(ctx context.Context) ([]model.Banner, error) {
	if banners, ok := r.lists.Get(bannerListKey); ok {
		r.metrics.RecordCacheHit("local")
		return banners, nil
	}
	r.metrics.RecordCacheMiss("local")

	v, err, _ := r.group.Do(bannerListKey, func() (any, error) {
		if r.redis != nil {
			banners, err := r.redis.GetBanners(ctx)
			if err != nil {
				r.logger.WarnContext(ctx, "redis catalog read failed, falling back to source", "error", err)
			} else if banners != nil {
				r.lists.Set(bannerListKey, banners)
				return banners, nil
			}
		}

		banners, err := r.source.ListBanners(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "load banners")
		}
		if banners == nil {
			banners = []model.Banner{}
		}
		r.lists.Set(bannerListKey, banners)
		if r.redis != nil {
			if err := r.redis.SetBanners(ctx, banners); err != nil {
				r.logger.WarnContext(ctx, "failed to fill redis catalog cache", "error", err)
			}
		}
		return banners, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Banner), nil
}

func (r *cachedCatalogRepository) getDetail(ctx context.Context, bannerID int64) (*model.BannerDetail, error) {
	if detail, ok := r.details.Get(bannerID); ok {
		r.metrics.RecordCacheHit("local")
		return detail, nil
	}
	r.metrics.RecordCacheMiss("local")

	v, err, _ := r.group.Do("banner:"+strconv.FormatInt(bannerID, 10), func() (any, error) {
		if r.redis != nil {
			detail, err := r.redis.GetBannerDetail(ctx, bannerID)
			if err != nil {
				r.logger.WarnContext(ctx, "redis catalog read failed, falling back to source",
					"banner_id", bannerID,
					"error", err,
				)
			} else if detail != nil {
				r.details.Set(bannerID, detail)
				return detail, nil
			}
		}

		detail, err := r.source.GetBannerDetail(ctx, bannerID)
		if err != nil {
			return nil, errors.Wrapf(err, "load banner %d", bannerID)
		}
		if detail == nil {
			return (*model.BannerDetail)(nil), nil
		}
		r.details.Set(bannerID, detail)
		if r.redis != nil {
			if err := r.redis.SetBannerDetail(ctx, detail); err != nil {
				r.logger.WarnContext(ctx, "failed to fill redis catalog cache",
					"banner_id", bannerID,
					"error", err,
				)
			}
		}
		return detail, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.BannerDetail), nil
}

func (r *cachedCatalogRepository) Invalidate(ctx context.Context, bannerIDs ...int64) error {
	r.lists.Clear()
	r.indexes.Clear()
	if len(bannerIDs) == 0 {
		r.details.Clear()
	}
	for _, id := range bannerIDs {
		r.details.Delete(id)
	}
	if r.redis == nil {
		return nil
	}
	return r.redis.Invalidate(ctx, bannerIDs...)
}

func (r *cachedCatalogRepository) Close() error {
	_ = r.lists.Close()
	_ = r.indexes.Close()
	return r.details.Close()
}

// pgCatalogSource 从 PostgreSQL 读取卡池
type pgCatalogSource struct {
	db  *postgres.Client
	dao *dao.CatalogDAO
}

// NewPostgresCatalogSource 读从库的卡池来源
func NewPostgresCatalogSource(db *postgres.Client, catalogDAO *dao.CatalogDAO) CatalogSource {
	return &pgCatalogSource{db: db, dao: catalogDAO}
}

func (s *pgCatalogSource) ListBanners(ctx context.Context) ([]model.Banner, error) {
	return s.dao.ListBanners(ctx, s.db.Replica())
}

func (s *pgCatalogSource) GetBannerDetail(ctx context.Context, bannerID int64) (*model.BannerDetail, error) {
	q := s.db.Replica()
	banner, err := s.dao.GetBanner(ctx, q, bannerID)
	if err != nil || banner == nil {
		return nil, err
	}
	items, err := s.dao.ListItems(ctx, q, bannerID)
	if err != nil {
		return nil, err
	}
	return &model.BannerDetail{Banner: *banner, Items: items}, nil
}

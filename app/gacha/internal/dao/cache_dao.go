package dao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/metrics"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/pkg/database/redis"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
)

const (
	// Redis key
	bannerKeyPrefix = "cache:banner:"
	bannerListKey   = "cache:banners"

	catalogCacheTTL = 10 * time.Minute
)

// CacheDAO 卡池缓存数据访问对象
type CacheDAO struct {
	redis   *redis.Client
	ttl     time.Duration
	logger  logger.Logger
	metrics *metrics.GachaMetrics
}

// NewCacheDAO 创建缓存 DAO，ttl 为 0 时使用默认值
func NewCacheDAO(rdb *redis.Client, ttl time.Duration, l logger.Logger, m *metrics.GachaMetrics) *CacheDAO {
	if ttl <= 0 {
		ttl = catalogCacheTTL
	}
	return &CacheDAO{
		redis:   rdb,
		ttl:     ttl,
		logger:  l.Named("dao.cache"),
		metrics: m,
	}
}

// GetBannerDetail 读取卡池缓存，未命中返回 nil
func (d *CacheDAO) GetBannerDetail(ctx context.Context, bannerID int64) (*model.BannerDetail, error) {
	var detail model.BannerDetail
	ok, err := d.get(ctx, bannerKey(bannerID), &detail)
	if err != nil || !ok {
		return nil, err
	}
	return &detail, nil
}

// SetBannerDetail 写入卡池缓存
func (d *CacheDAO) SetBannerDetail(ctx context.Context, detail *model.BannerDetail) error {
	return d.set(ctx, bannerKey(detail.ID), detail)
}

// GetBanners 读取卡池列表缓存，未命中返回 nil
func (d *CacheDAO) GetBanners(ctx context.Context) ([]model.Banner, error) {
	var banners []model.Banner
	ok, err := d.get(ctx, bannerListKey, &banners)
	if err != nil || !ok {
		return nil, err
	}
	if banners == nil {
		banners = []model.Banner{}
	}
	return banners, nil
}

// SetBanners 写入卡池列表缓存
func (d *CacheDAO) SetBanners(ctx context.Context, banners []model.Banner) error {
	return d.set(ctx, bannerListKey, banners)
}

// Invalidate 删除列表缓存与指定卡池缓存
func (d *CacheDAO) Invalidate(ctx context.Context, bannerIDs ...int64) error {
	keys := make([]string, 0, len(bannerIDs)+1)
	keys = append(keys, bannerListKey)
	for _, id := range bannerIDs {
		keys = append(keys, bannerKey(id))
	}

	deleted, err := d.redis.Del(ctx, keys...)
	if err != nil {
		d.logger.Error("failed to invalidate catalog cache",
			"banner_ids", bannerIDs,
			"error", err,
		)
		return fmt.Errorf("failed to invalidate catalog cache: %w", err)
	}

	d.logger.Debug("invalidated catalog cache",
		"banner_ids", bannerIDs,
		"deleted_count", deleted,
	)
	return nil
}

func (d *CacheDAO) get(ctx context.Context, key string, v any) (bool, error) {
	data, err := d.redis.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			d.metrics.RecordCacheMiss("redis")
			return false, nil
		}
		d.logger.Error("failed to get catalog from cache",
			"key", key,
			"error", err,
		)
		return false, fmt.Errorf("failed to get %s from cache: %w", key, err)
	}

	d.metrics.RecordCacheHit("redis")
	if err := json.Unmarshal(data, v); err != nil {
		d.logger.Error("failed to unmarshal catalog cache",
			"key", key,
			"error", err,
		)
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (d *CacheDAO) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := d.redis.Set(ctx, key, data, d.ttl); err != nil {
		d.logger.Error("failed to set catalog cache",
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to set %s cache: %w", key, err)
	}
	return nil
}

func bannerKey(bannerID int64) string {
	return fmt.Sprintf("%s%d", bannerKeyPrefix, bannerID)
}

package service

import (
	"context"
	"sort"
	"strconv"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/gacha"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/repository"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/lk2023060901/xdooria-gacha/pkg/otel"
	"github.com/lk2023060901/xdooria-gacha/pkg/sentry"
)

const tracerName = "gacha/service"

// 历史查询条数
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// GachaService 抽卡服务：按卡池取物品交给引擎抽取，并提供背包、历史与统计查询
type GachaService struct {
	engine   *gacha.Engine
	draws    repository.DrawRepository
	catalog  repository.CatalogRepository
	reporter *sentry.Client // 可为 nil
	logger   logger.Logger
}

// NewGachaService 创建抽卡服务
func NewGachaService(
	engine *gacha.Engine,
	draws repository.DrawRepository,
	catalog repository.CatalogRepository,
	reporter *sentry.Client,
	l logger.Logger,
) *GachaService {
	return &GachaService{
		engine:   engine,
		draws:    draws,
		catalog:  catalog,
		reporter: reporter,
		logger:   l.Named("service.gacha"),
	}
}

// MaxBatchSize 单次连抽上限
func (s *GachaService) MaxBatchSize() int {
	return s.engine.Config().Draw.MaxBatchSize
}

// ListBanners 开放中的卡池
func (s *GachaService) ListBanners(ctx context.Context) ([]model.Banner, error) {
	return s.catalog.ListActiveBanners(ctx)
}

// GetBanner 开放中的卡池及物品
func (s *GachaService) GetBanner(ctx context.Context, bannerID int64) (*model.BannerDetail, error) {
	return s.catalog.GetBanner(ctx, bannerID)
}

// Pull 单抽
func (s *GachaService) Pull(ctx context.Context, userID, bannerID int64) (_ *PullResult, err error) {
	ctx, span := otel.StartSpan(ctx, tracerName, "gacha.Pull",
		otel.AttrUserID.Int64(userID),
		otel.AttrBannerID.Int64(bannerID),
	)
	defer func() { otel.EndSpan(span, err) }()

	banner, err := s.catalog.GetBanner(ctx, bannerID)
	if err != nil {
		return nil, err
	}

	res, err := s.engine.DrawOne(ctx, userID, bannerID, banner.Items)
	if err != nil {
		s.reportFailure(ctx, err, "pull", userID, bannerID)
		return nil, err
	}

	span.SetAttributes(
		otel.AttrPullNumber.Int64(res.PullNumber),
		otel.AttrRarity.String(res.Item.Rarity.String()),
		otel.AttrPity.Bool(res.WasPity),
	)
	out := toPullResult(*res)
	return &out, nil
}

// PullTen 十连，没有 Rare 及以上时最后一抽替换为 Rare
func (s *GachaService) PullTen(ctx context.Context, userID, bannerID int64) (*BatchPullResult, error) {
	return s.PullBatch(ctx, userID, bannerID, gacha.GuaranteedBatchSize)
}

// PullBatch 连抽 count 次
func (s *GachaService) PullBatch(ctx context.Context, userID, bannerID int64, count int) (_ *BatchPullResult, err error) {
	ctx, span := otel.StartSpan(ctx, tracerName, "gacha.PullBatch",
		otel.AttrUserID.Int64(userID),
		otel.AttrBannerID.Int64(bannerID),
		otel.AttrBatchCount.Int(count),
	)
	defer func() { otel.EndSpan(span, err) }()

	banner, err := s.catalog.GetBanner(ctx, bannerID)
	if err != nil {
		return nil, err
	}

	res, err := s.engine.DrawBatch(ctx, userID, bannerID, banner.Items, count)
	if err != nil {
		s.reportFailure(ctx, err, "pull_batch", userID, bannerID)
		return nil, err
	}

	out := &BatchPullResult{
		Results:   make([]PullResult, len(res.Results)),
		Corrected: res.Outcome == gacha.BatchCorrectedLastSlot,
	}
	for i, r := range res.Results {
		out.Results[i] = toPullResult(r)
	}
	// PullNumber 连续，最后一抽的序号即为玩家累计抽数
	out.TotalPulls = res.Results[len(res.Results)-1].PullNumber

	span.SetAttributes(otel.AttrPullNumber.Int64(out.TotalPulls))
	return out, nil
}

// Inventory 玩家背包，按稀有度从高到低、物品 ID 升序
func (s *GachaService) Inventory(ctx context.Context, userID int64) ([]InventoryEntry, error) {
	holdings, err := s.draws.ListHoldings(ctx, userID)
	if err != nil {
		return nil, err
	}
	index, err := s.catalog.ItemIndex(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]InventoryEntry, 0, len(holdings))
	for _, h := range holdings {
		info, ok := index[h.ItemID]
		if !ok {
			s.logger.WarnContext(ctx, "holdings reference unknown item",
				"user_id", userID,
				"item_id", h.ItemID,
			)
			continue
		}
		out = append(out, InventoryEntry{
			ItemID:   h.ItemID,
			ItemName: info.Name,
			Rarity:   info.Rarity,
			Emoji:    info.Emoji,
			Quantity: h.Quantity,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rarity != out[j].Rarity {
			return out[i].Rarity > out[j].Rarity
		}
		return out[i].ItemID < out[j].ItemID
	})
	return out, nil
}

// History 最近的抽卡记录，limit 限制在 [1, MaxHistoryLimit]，<= 0 时取默认值
func (s *GachaService) History(ctx context.Context, userID int64, limit int) ([]HistoryEntry, error) {
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	records, err := s.draws.ListHistory(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	index, err := s.catalog.ItemIndex(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]HistoryEntry, len(records))
	for i, rec := range records {
		info := index[rec.ItemID]
		out[i] = HistoryEntry{
			PullNumber: rec.PullNumber,
			ItemName:   info.Name,
			Rarity:     rec.Rarity,
			Emoji:      info.Emoji,
			BannerName: info.BannerName,
			PulledAt:   rec.CreatedAt,
		}
	}
	return out, nil
}

// Stats 玩家抽卡统计
func (s *GachaService) Stats(ctx context.Context, userID int64) (*Stats, error) {
	counts, err := s.draws.CountDraws(ctx, userID)
	if err != nil {
		return nil, err
	}
	pity, err := s.draws.PityState(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Stats{
		TotalPulls:           counts.Total,
		CommonCount:          counts.Common,
		RareCount:            counts.Rare,
		EpicCount:            counts.Epic,
		LegendaryCount:       counts.Legendary,
		LuckRating:           LuckRating(counts),
		PityCounterEpic:      pity.SinceEpic,
		PityCounterLegendary: pity.SinceLegendary,
	}, nil
}

// reportFailure 存储故障上报 Sentry；冲突重试耗尽只记日志
func (s *GachaService) reportFailure(ctx context.Context, err error, op string, userID, bannerID int64) {
	switch {
	case gacha.IsFailure(err):
		s.logger.ErrorContext(ctx, "draw failed",
			"op", op,
			"user_id", userID,
			"banner_id", bannerID,
			"error", err,
		)
		if s.reporter != nil {
			s.reporter.CaptureError(err, map[string]string{
				"op":        op,
				"user_id":   strconv.FormatInt(userID, 10),
				"banner_id": strconv.FormatInt(bannerID, 10),
			})
		}
	case gacha.IsConflict(err):
		s.logger.WarnContext(ctx, "draw gave up after conflicts",
			"op", op,
			"user_id", userID,
			"banner_id", bannerID,
			"error", err,
		)
	}
}

func toPullResult(r gacha.DrawResult) PullResult {
	return PullResult{
		ItemID:     r.Item.ID,
		ItemName:   r.Item.Name,
		Rarity:     r.Item.Rarity,
		Emoji:      r.Item.Emoji,
		IsPity:     r.WasPity,
		PullNumber: r.PullNumber,
	}
}

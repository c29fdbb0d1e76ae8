package repository

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/gacha"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/pkg/database/postgres"
)

// DrawRepository 抽卡数据仓储：引擎使用的原子作用域加上查询与对账接口
type DrawRepository interface {
	gacha.Store

	// ListHistory 玩家最近 limit 条流水，按 PullNumber 倒序
	ListHistory(ctx context.Context, userID int64, limit int) ([]model.DrawRecord, error)
	// ListHoldings 玩家数量大于 0 的持有条目
	ListHoldings(ctx context.Context, userID int64) ([]model.HoldingsEntry, error)
	// CountDraws 玩家各稀有度抽取次数
	CountDraws(ctx context.Context, userID int64) (model.RarityCounts, error)
	// PityState 玩家跨卡池的保底计数
	PityState(ctx context.Context, userID int64) (model.PityState, error)

	// FindHoldingsDrift 最多 limit 条持有数与流水计数不一致的条目
	FindHoldingsDrift(ctx context.Context, limit int) ([]model.HoldingsDrift, error)
	// RepairHoldings 在玩家锁内按当前流水重新计数并写回持有数，drift 只用于定位条目
	RepairHoldings(ctx context.Context, drift []model.HoldingsDrift) error
}

// domainErrors 作用域内产生的业务错误，原样返回
var domainErrors = []error{
	gacha.ErrEmptyPool,
	gacha.ErrInvalidPool,
	gacha.ErrInvalidBatchSize,
	gacha.ErrBannerNotFound,
	gacha.ErrNoDrawToCorrect,
}

// classify 为存储错误打上冲突或故障标记
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case gacha.IsConflict(err), gacha.IsFailure(err):
		return err
	case postgres.IsRetryable(err):
		return gacha.MarkConflict(err)
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	return gacha.MarkFailure(err)
}

package gacha

import (
	"context"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
)

// Ledger 抽卡流水存储
type Ledger interface {
	// AppendDraw 追加一条流水并返回落库后的记录
	AppendDraw(ctx context.Context, userID, bannerID int64, item model.Item, pullNumber int64) (*model.DrawRecord, error)
	// LatestPullNumber 玩家跨卡池的最大 PullNumber，无记录时为 0
	LatestPullNumber(ctx context.Context, userID int64) (int64, error)
	// HistoryForBanner 玩家在指定卡池的流水，按 PullNumber 倒序
	HistoryForBanner(ctx context.Context, userID, bannerID int64) ([]model.DrawRecord, error)
	// OverwriteLatestItem 改写玩家最新一条流水的物品，PullNumber 不变
	OverwriteLatestItem(ctx context.Context, userID int64, item model.Item) error
}

// Holdings 玩家持有数存储
type Holdings interface {
	// Increment 数量加一，不存在时以 1 创建
	Increment(ctx context.Context, userID, itemID int64) error
	// Decrement 数量减一，最低为 0，不删除记录
	Decrement(ctx context.Context, userID, itemID int64) error
}

// Scope 单个玩家的原子操作范围
type Scope interface {
	Ledger() Ledger
	Holdings() Holdings
}

// Store 提供按玩家串行化的原子作用域
// fn 返回错误时作用域内的全部写入都不可见；
// 并发冲突需返回 MarkConflict 标记的错误，存储故障返回 MarkFailure 标记的错误。
type Store interface {
	WithUserScope(ctx context.Context, userID int64, fn func(ctx context.Context, scope Scope) error) error
}

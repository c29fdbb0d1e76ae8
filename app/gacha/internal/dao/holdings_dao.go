package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/metrics"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/pkg/database/postgres"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
)

// findDriftSQL 持有数与流水计数不一致的条目，两侧缺失都按 0 计
const findDriftSQL = `
SELECT COALESCE(h.user_id, l.user_id)   AS user_id,
       COALESCE(h.item_id, l.item_id)   AS item_id,
       COALESCE(h.quantity, 0)          AS quantity,
       COALESCE(l.ledger_count, 0)      AS ledger_count
FROM holdings h
FULL OUTER JOIN (
    SELECT user_id, item_id, COUNT(*) AS ledger_count
    FROM draw_records
    GROUP BY user_id, item_id
) l ON h.user_id = l.user_id AND h.item_id = l.item_id
WHERE COALESCE(h.quantity, 0) <> COALESCE(l.ledger_count, 0)
ORDER BY 1, 2
LIMIT $1`

// syncHoldingsSQL 按流水计数重写单个持有条目，聚合查询无 GROUP BY 时总返回一行
const syncHoldingsSQL = `
INSERT INTO holdings (user_id, item_id, quantity)
SELECT $1::bigint, $2::bigint, COUNT(*)
FROM draw_records
WHERE user_id = $1 AND item_id = $2
ON CONFLICT (user_id, item_id) DO UPDATE SET quantity = EXCLUDED.quantity
RETURNING quantity`

// HoldingsDAO 玩家持有数数据访问对象
type HoldingsDAO struct {
	logger  logger.Logger
	metrics *metrics.GachaMetrics
}

// NewHoldingsDAO 创建持有数 DAO
func NewHoldingsDAO(l logger.Logger, m *metrics.GachaMetrics) *HoldingsDAO {
	return &HoldingsDAO{
		logger:  l.Named("dao.holdings"),
		metrics: m,
	}
}

// Increment 数量加一，不存在时以 1 插入
func (d *HoldingsDAO) Increment(ctx context.Context, q postgres.Querier, userID, itemID int64) (err error) {
	defer func(start time.Time) { recordQuery(d.metrics, "upsert", start, err) }(time.Now())

	builder := postgres.QueryBuilder.
		Insert(tableHoldings).
		Columns("user_id", "item_id", "quantity").
		Values(userID, itemID, 1).
		Suffix("ON CONFLICT (user_id, item_id) DO UPDATE SET quantity = holdings.quantity + 1")

	if _, err = postgres.ExecBuilder(ctx, q, builder); err != nil {
		d.logger.Error("failed to increment holdings",
			"user_id", userID,
			"item_id", itemID,
			"error", err,
		)
		return fmt.Errorf("failed to increment holdings: %w", err)
	}
	return nil
}

// Decrement 数量减一，最低为 0
func (d *HoldingsDAO) Decrement(ctx context.Context, q postgres.Querier, userID, itemID int64) (err error) {
	defer func(start time.Time) { recordQuery(d.metrics, "update", start, err) }(time.Now())

	builder := postgres.QueryBuilder.
		Update(tableHoldings).
		Set("quantity", squirrel.Expr("GREATEST(quantity - 1, 0)")).
		Where(squirrel.Eq{"user_id": userID, "item_id": itemID})

	if _, err = postgres.ExecBuilder(ctx, q, builder); err != nil {
		d.logger.Error("failed to decrement holdings",
			"user_id", userID,
			"item_id", itemID,
			"error", err,
		)
		return fmt.Errorf("failed to decrement holdings: %w", err)
	}
	return nil
}

// ListByUser 玩家数量大于 0 的持有条目，按物品 ID 升序
func (d *HoldingsDAO) ListByUser(ctx context.Context, q postgres.Querier, userID int64) (out []model.HoldingsEntry, err error) {
	defer func(start time.Time) { recordQuery(d.metrics, "select", start, err) }(time.Now())

	builder := postgres.QueryBuilder.
		Select("user_id", "item_id", "quantity").
		From(tableHoldings).
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.Gt{"quantity": 0}).
		OrderBy("item_id ASC")

	rows, err := postgres.QueryAllBuilder[model.HoldingsEntry](ctx, q, builder)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	out = make([]model.HoldingsEntry, len(rows))
	for i, r := range rows {
		out[i] = *r
	}
	return out, nil
}

// SyncWithLedger 将持有数改写为当前流水计数并返回新数量，调用方需持有玩家锁
func (d *HoldingsDAO) SyncWithLedger(ctx context.Context, q postgres.Querier, userID, itemID int64) (quantity int64, err error) {
	defer func(start time.Time) { recordQuery(d.metrics, "upsert", start, err) }(time.Now())

	if err = q.QueryRow(ctx, syncHoldingsSQL, userID, itemID).Scan(&quantity); err != nil {
		return 0, fmt.Errorf("failed to sync holdings with ledger: %w", err)
	}
	return quantity, nil
}

// FindDrift 查找最多 limit 条持有数与流水不一致的条目
func (d *HoldingsDAO) FindDrift(ctx context.Context, q postgres.Querier, limit int) (out []model.HoldingsDrift, err error) {
	defer func(start time.Time) { recordQuery(d.metrics, "select", start, err) }(time.Now())

	rows, err := postgres.QueryAll[model.HoldingsDrift](ctx, q, findDriftSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find holdings drift: %w", err)
	}
	out = make([]model.HoldingsDrift, len(rows))
	for i, r := range rows {
		out[i] = *r
	}
	return out, nil
}

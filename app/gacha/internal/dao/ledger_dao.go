package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/metrics"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/pkg/database/postgres"
	"github.com/lk2023060901/xdooria-gacha/pkg/idgen"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
)

var drawRecordColumns = []string{
	"id", "user_id", "banner_id", "item_id", "rarity", "pull_number", "created_at",
}

// LedgerDAO 抽卡流水数据访问对象
// 方法接收 Querier，可在事务内外使用
type LedgerDAO struct {
	ids     idgen.Generator
	logger  logger.Logger
	metrics *metrics.GachaMetrics
}

// NewLedgerDAO 创建流水 DAO
func NewLedgerDAO(ids idgen.Generator, l logger.Logger, m *metrics.GachaMetrics) *LedgerDAO {
	return &LedgerDAO{
		ids:     ids,
		logger:  l.Named("dao.ledger"),
		metrics: m,
	}
}

// LockUser 获取玩家级事务 advisory lock，事务结束时自动释放
func (d *LedgerDAO) LockUser(ctx context.Context, q postgres.Querier, lockKey int64) (err error) {
	defer func(start time.Time) { recordQuery(d.metrics, "lock", start, err) }(time.Now())

	if _, err = q.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", lockKey); err != nil {
		return fmt.Errorf("failed to acquire advisory lock: %w", err)
	}
	return nil
}

// Insert 写入一条流水，回填 ID 与 CreatedAt
func (d *LedgerDAO) Insert(ctx context.Context, q postgres.Querier, rec *model.DrawRecord) (err error) {
	defer func(start time.Time) { recordQuery(d.metrics, "insert", start, err) }(time.Now())

	id, err := d.ids.NextID()
	if err != nil {
		return err
	}

	builder := postgres.QueryBuilder.
		Insert(tableDrawRecords).
		Columns("id", "user_id", "banner_id", "item_id", "rarity", "pull_number").
		Values(id, rec.UserID, rec.BannerID, rec.ItemID, int16(rec.Rarity), rec.PullNumber).
		Suffix("RETURNING created_at")

	if err = postgres.ScanBuilder(ctx, q, builder, &rec.CreatedAt); err != nil {
		d.logger.Error("failed to insert draw record",
			"user_id", rec.UserID,
			"pull_number", rec.PullNumber,
			"error", err,
		)
		return fmt.Errorf("failed to insert draw record: %w", err)
	}
	rec.ID = id
	return nil
}

// LatestPullNumber 玩家最大 PullNumber，无记录时为 0
func (d *LedgerDAO) LatestPullNumber(ctx context.Context, q postgres.Querier, userID int64) (n int64, err error) {
	defer func(start time.Time) { recordQuery(d.metrics, "select", start, err) }(time.Now())

	builder := postgres.QueryBuilder.
		Select("COALESCE(MAX(pull_number), 0)").
		From(tableDrawRecords).
		Where(squirrel.Eq{"user_id": userID})

	if err = postgres.ScanBuilder(ctx, q, builder, &n); err != nil {
		return 0, fmt.Errorf("failed to get latest pull number: %w", err)
	}
	return n, nil
}

// ListByBanner 玩家在指定卡池的全部流水，按 PullNumber 倒序
func (d *LedgerDAO) ListByBanner(ctx context.Context, q postgres.Querier, userID, bannerID int64) (out []model.DrawRecord, err error) {
	defer func(start time.Time) { recordQuery(d.metrics, "select", start, err) }(time.Now())

	builder := postgres.QueryBuilder.
		Select(drawRecordColumns...).
		From(tableDrawRecords).
		Where(squirrel.Eq{"user_id": userID, "banner_id": bannerID}).
		OrderBy("pull_number DESC")

	return d.list(ctx, q, builder)
}

// ListByUser 玩家最近 limit 条流水，按 PullNumber 倒序；limit <= 0 表示不限
func (d *LedgerDAO) ListByUser(ctx context.Context, q postgres.Querier, userID int64, limit int) (out []model.DrawRecord, err error) {
	defer func(start time.Time) { recordQuery(d.metrics, "select", start, err) }(time.Now())

	builder := postgres.QueryBuilder.
		Select(drawRecordColumns...).
		From(tableDrawRecords).
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("pull_number DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	return d.list(ctx, q, builder)
}

func (d *LedgerDAO) list(ctx context.Context, q postgres.Querier, builder squirrel.SelectBuilder) ([]model.DrawRecord, error) {
	rows, err := postgres.QueryAllBuilder[model.DrawRecord](ctx, q, builder)
	if err != nil {
		return nil, fmt.Errorf("failed to list draw records: %w", err)
	}
	out := make([]model.DrawRecord, len(rows))
	for i, r := range rows {
		out[i] = *r
	}
	return out, nil
}

// UpdateLatestItem 改写玩家最新一条流水的物品，返回影响行数
func (d *LedgerDAO) UpdateLatestItem(ctx context.Context, q postgres.Querier, userID int64, item model.Item) (n int64, err error) {
	defer func(start time.Time) { recordQuery(d.metrics, "update", start, err) }(time.Now())

	builder := postgres.QueryBuilder.
		Update(tableDrawRecords).
		Set("item_id", item.ID).
		Set("rarity", int16(item.Rarity)).
		Where(squirrel.Expr(
			"id = (SELECT id FROM draw_records WHERE user_id = ? ORDER BY pull_number DESC LIMIT 1)",
			userID,
		))

	n, err = postgres.ExecBuilder(ctx, q, builder)
	if err != nil {
		d.logger.Error("failed to overwrite latest draw",
			"user_id", userID,
			"item_id", item.ID,
			"error", err,
		)
		return 0, fmt.Errorf("failed to overwrite latest draw: %w", err)
	}
	return n, nil
}

// CountByRarity 玩家各稀有度抽取次数
func (d *LedgerDAO) CountByRarity(ctx context.Context, q postgres.Querier, userID int64) (counts model.RarityCounts, err error) {
	defer func(start time.Time) { recordQuery(d.metrics, "select", start, err) }(time.Now())

	query, args, err := postgres.QueryBuilder.
		Select("rarity", "COUNT(*)").
		From(tableDrawRecords).
		Where(squirrel.Eq{"user_id": userID}).
		GroupBy("rarity").
		ToSql()
	if err != nil {
		return counts, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return counts, fmt.Errorf("failed to count draws: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rarity int16
			n      int64
		)
		if err = rows.Scan(&rarity, &n); err != nil {
			return counts, fmt.Errorf("failed to scan draw count: %w", err)
		}
		counts.Add(model.Rarity(rarity), n)
	}
	if err = rows.Err(); err != nil {
		return counts, fmt.Errorf("rows iteration error: %w", err)
	}
	return counts, nil
}

// PityMarks 玩家最新 PullNumber 以及最近一次 Epic 及以上、Legendary 的 PullNumber，不存在时为 0
func (d *LedgerDAO) PityMarks(ctx context.Context, q postgres.Querier, userID int64) (latest, lastEpic, lastLegendary int64, err error) {
	defer func(start time.Time) { recordQuery(d.metrics, "select", start, err) }(time.Now())

	builder := postgres.QueryBuilder.
		Select(
			"COALESCE(MAX(pull_number), 0)",
			fmt.Sprintf("COALESCE(MAX(pull_number) FILTER (WHERE rarity >= %d), 0)", int(model.RarityEpic)),
			fmt.Sprintf("COALESCE(MAX(pull_number) FILTER (WHERE rarity = %d), 0)", int(model.RarityLegendary)),
		).
		From(tableDrawRecords).
		Where(squirrel.Eq{"user_id": userID})

	if err = postgres.ScanBuilder(ctx, q, builder, &latest, &lastEpic, &lastLegendary); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to get pity marks: %w", err)
	}
	return latest, lastEpic, lastLegendary, nil
}

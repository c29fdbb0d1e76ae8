package gacha

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
)

// GuaranteedBatchSize 享受 Rare 保底的连抽次数
const GuaranteedBatchSize = 10

// BatchOutcome 连抽结果类型
type BatchOutcome int

const (
	// BatchCommitted 按抽取结果原样提交
	BatchCommitted BatchOutcome = iota
	// BatchCorrectedLastSlot 十连无 Rare 及以上，最后一抽被替换
	BatchCorrectedLastSlot
)

func (o BatchOutcome) String() string {
	if o == BatchCorrectedLastSlot {
		return "corrected_last_slot"
	}
	return "committed"
}

// Correction 十连保底的替换记录
type Correction struct {
	PullNumber  int64
	Original    model.Item
	Replacement model.Item
}

// BatchResult 连抽结果，Results 按抽取顺序排列
type BatchResult struct {
	Outcome    BatchOutcome
	Results    []DrawResult
	Correction *Correction
}

// DrawBatch 连抽 count 次，全部抽取与保底修正在同一个玩家作用域内提交
// 仅当 count == 10 且没有 Rare 及以上时修正最后一抽
func (e *Engine) DrawBatch(ctx context.Context, userID, bannerID int64, pool []model.Item, count int) (*BatchResult, error) {
	if count < 1 || count > e.config.Draw.MaxBatchSize {
		return nil, errors.Wrapf(ErrInvalidBatchSize, "count %d not in [1, %d]", count, e.config.Draw.MaxBatchSize)
	}
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}

	var res *BatchResult
	err := e.runScoped(ctx, userID, func(ctx context.Context, scope Scope) error {
		// 冲突重跑时丢弃上一轮结果
		res = &BatchResult{Outcome: BatchCommitted, Results: make([]DrawResult, 0, count)}
		for i := 0; i < count; i++ {
			r, err := e.drawInScope(ctx, scope, userID, bannerID, pool)
			if err != nil {
				return errors.Wrapf(err, "batch draw %d/%d", i+1, count)
			}
			res.Results = append(res.Results, *r)
		}
		if count != GuaranteedBatchSize || hasRareOrAbove(res.Results) {
			return nil
		}
		return e.correctLastSlot(ctx, scope, userID, pool, res)
	})
	if err != nil {
		return nil, err
	}

	for _, r := range res.Results {
		e.observer.OnDraw(bannerID, r.Item, r.WasPity)
	}
	if res.Correction != nil {
		e.observer.OnCorrection(bannerID, res.Correction.Original, res.Correction.Replacement)
		e.logger.DebugContext(ctx, "batch corrected last slot",
			"user_id", userID,
			"banner_id", bannerID,
			"pull_number", res.Correction.PullNumber,
			"original_item", res.Correction.Original.ID,
			"replacement_item", res.Correction.Replacement.ID,
		)
	}
	return res, nil
}

func (e *Engine) correctLastSlot(ctx context.Context, scope Scope, userID int64, pool []model.Item, res *BatchResult) error {
	replacement, err := e.selector.Pick(pool, model.RarityRare)
	if err != nil {
		return err
	}

	last := &res.Results[len(res.Results)-1]
	if err := scope.Holdings().Decrement(ctx, userID, last.Item.ID); err != nil {
		return errors.Wrap(err, "decrement replaced holdings")
	}
	if err := scope.Holdings().Increment(ctx, userID, replacement.ID); err != nil {
		return errors.Wrap(err, "increment replacement holdings")
	}
	if err := scope.Ledger().OverwriteLatestItem(ctx, userID, replacement); err != nil {
		return errors.Wrap(err, "overwrite latest draw")
	}

	res.Outcome = BatchCorrectedLastSlot
	res.Correction = &Correction{
		PullNumber:  last.PullNumber,
		Original:    last.Item,
		Replacement: replacement,
	}
	*last = DrawResult{Item: replacement, WasPity: true, PullNumber: last.PullNumber}
	return nil
}

func hasRareOrAbove(results []DrawResult) bool {
	for _, r := range results {
		if r.Item.Rarity.AtLeast(model.RarityRare) {
			return true
		}
	}
	return false
}

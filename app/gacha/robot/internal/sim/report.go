package sim

import (
	"time"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"go.uber.org/atomic"
)

// Report 压测统计，可并发更新
type Report struct {
	Users           atomic.Int64
	FailedUsers     atomic.Int64
	Draws           atomic.Int64
	Pity            atomic.Int64
	Corrections     atomic.Int64
	ConflictRetries atomic.Int64
	Gaps            atomic.Int64 // 玩家 PullNumber 不连续的次数
	Drift           atomic.Int64 // 持有数与流水不一致的条目

	byRarity [model.RarityLegendary + 1]atomic.Int64
	elapsed  atomic.Duration
}

func (r *Report) record(rarity model.Rarity, pity bool) {
	r.Draws.Inc()
	if rarity.Valid() {
		r.byRarity[rarity].Inc()
	}
	if pity {
		r.Pity.Inc()
	}
}

// OnDraw 实现 gacha.Observer
func (r *Report) OnDraw(_ int64, item model.Item, pity bool) {
	r.record(item.Rarity, pity)
}

// OnCorrection 十连修正时原抽取结果已计入，这里改记为 Rare
func (r *Report) OnCorrection(_ int64, original, replacement model.Item) {
	r.Corrections.Inc()
	if original.Rarity.Valid() {
		r.byRarity[original.Rarity].Dec()
	}
	if replacement.Rarity.Valid() {
		r.byRarity[replacement.Rarity].Inc()
	}
}

// OnConflictRetry 实现 gacha.Observer
func (r *Report) OnConflictRetry(int) {
	r.ConflictRetries.Inc()
}

// Count 某稀有度的抽取次数
func (r *Report) Count(rarity model.Rarity) int64 {
	if !rarity.Valid() {
		return 0
	}
	return r.byRarity[rarity].Load()
}

// Frequency 某稀有度的出现频率
func (r *Report) Frequency(rarity model.Rarity) float64 {
	total := r.Draws.Load()
	if total == 0 {
		return 0
	}
	return float64(r.Count(rarity)) / float64(total)
}

// Elapsed 总耗时
func (r *Report) Elapsed() time.Duration {
	return r.elapsed.Load()
}

// Log 输出统计结果
func (r *Report) Log(l logger.Logger) {
	draws := r.Draws.Load()
	var qps float64
	if elapsed := r.Elapsed(); elapsed > 0 {
		qps = float64(draws) / elapsed.Seconds()
	}
	l.Info("simulation finished",
		"users", r.Users.Load(),
		"failed_users", r.FailedUsers.Load(),
		"draws", draws,
		"elapsed", r.Elapsed(),
		"draws_per_second", qps,
	)
	for _, rarity := range model.Rarities {
		l.Info("rarity distribution",
			"rarity", rarity.String(),
			"count", r.Count(rarity),
			"frequency", r.Frequency(rarity),
		)
	}
	l.Info("guarantees",
		"pity", r.Pity.Load(),
		"corrections", r.Corrections.Load(),
		"conflict_retries", r.ConflictRetries.Load(),
		"gaps", r.Gaps.Load(),
		"drift", r.Drift.Load(),
	)
}

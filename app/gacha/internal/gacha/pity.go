package gacha

import "github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"

// PityRules 保底阈值
type PityRules struct {
	// EpicThreshold 连续 N-1 次未出 Epic 及以上时，第 N 次强制 Epic
	EpicThreshold int `mapstructure:"epic_threshold" validate:"gt=0"`
	// LegendaryThreshold 连续 N-1 次未出 Legendary 时，第 N 次强制 Legendary
	LegendaryThreshold int `mapstructure:"legendary_threshold" validate:"gt=0"`
}

// DefaultPityRules 默认 50/90 保底
func DefaultPityRules() PityRules {
	return PityRules{EpicThreshold: 50, LegendaryThreshold: 90}
}

// Counters 从按 PullNumber 倒序的流水中推导保底计数
// bannerID 为 0 时统计全部卡池，否则跳过其他卡池的记录
func Counters(history []model.DrawRecord, bannerID int64) model.PityState {
	var state model.PityState
	epicFrozen, legendaryFrozen := false, false
	for i := range history {
		rec := &history[i]
		if bannerID != 0 && rec.BannerID != bannerID {
			continue
		}
		if !epicFrozen {
			if rec.Rarity.AtLeast(model.RarityEpic) {
				epicFrozen = true
			} else {
				state.SinceEpic++
			}
		}
		if !legendaryFrozen {
			if rec.Rarity.AtLeast(model.RarityLegendary) {
				legendaryFrozen = true
			} else {
				state.SinceLegendary++
			}
		}
		if epicFrozen && legendaryFrozen {
			break
		}
	}
	return state
}

// Decide 根据保底计数决定本次是否强制稀有度，Legendary 优先
func (r PityRules) Decide(state model.PityState) (forced model.Rarity, pity bool) {
	switch {
	case state.SinceLegendary >= r.LegendaryThreshold-1:
		return model.RarityLegendary, true
	case state.SinceEpic >= r.EpicThreshold-1:
		return model.RarityEpic, true
	default:
		return model.RarityNone, false
	}
}

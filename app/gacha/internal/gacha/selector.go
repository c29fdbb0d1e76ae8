package gacha

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
)

// Selector 加权随机选择器
type Selector struct {
	rng RandomSource
}

// NewSelector 创建选择器，rng 为 nil 时使用系统熵种子
func NewSelector(rng RandomSource) *Selector {
	if rng == nil {
		rng = NewRandomSource(0)
	}
	return &Selector{rng: rng}
}

// Pick 从卡池中选出一个物品
// forced 非 None 且卡池中存在该稀有度时，在该稀有度内等概率选择（忽略权重）；
// 不存在时静默回落到按权重抽取。
func (s *Selector) Pick(pool []model.Item, forced model.Rarity) (model.Item, error) {
	if len(pool) == 0 {
		return model.Item{}, ErrEmptyPool
	}

	if forced != model.RarityNone {
		var candidates []int
		for i := range pool {
			if pool[i].Rarity == forced {
				candidates = append(candidates, i)
			}
		}
		if len(candidates) > 0 {
			return pool[candidates[s.index(len(candidates))]], nil
		}
	}

	return s.weighted(pool)
}

func (s *Selector) weighted(pool []model.Item) (model.Item, error) {
	total := 0.0
	for i := range pool {
		w := pool[i].Weight
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return model.Item{}, errors.Wrapf(ErrInvalidPool, "item %d weight %v", pool[i].ID, w)
		}
		total += w
	}
	if total <= 0 {
		return model.Item{}, errors.Wrap(ErrEmptyPool, "all weights are zero")
	}

	target := s.rng.Float64() * total
	last := -1
	cum := 0.0
	for i := range pool {
		if pool[i].Weight == 0 {
			continue
		}
		cum += pool[i].Weight
		last = i
		if target < cum {
			return pool[i], nil
		}
	}
	// 浮点累加误差，落到最后一个正权重物品
	return pool[last], nil
}

func (s *Selector) index(n int) int {
	idx := int(s.rng.Float64() * float64(n))
	if idx >= n {
		idx = n - 1
	}
	return idx
}

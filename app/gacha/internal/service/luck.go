package service

import "github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"

// 运势评级
const (
	LuckNoPulls = "No pulls yet"
	LuckBlessed = "Blessed by the Sakura Spirit"
	LuckFortune = "Fortunate"
	LuckAverage = "Average"
	LuckUnlucky = "The blossoms will bloom soon..."
)

// LuckRating 按 Legendary 与 Epic 出货率评级
func LuckRating(c model.RarityCounts) string {
	if c.Total == 0 {
		return LuckNoPulls
	}
	total := float64(c.Total)
	legendary := float64(c.Legendary) / total
	epic := float64(c.Epic) / total

	switch {
	case legendary > 0.04:
		return LuckBlessed
	case epic > 0.12:
		return LuckFortune
	case legendary > 0.02 || epic > 0.08:
		return LuckAverage
	default:
		return LuckUnlucky
	}
}

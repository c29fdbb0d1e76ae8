package service

import (
	"testing"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestLuckRating(t *testing.T) {
	tests := []struct {
		name   string
		counts model.RarityCounts
		want   string
	}{
		{"no pulls", model.RarityCounts{}, LuckNoPulls},
		{"legendary rich", model.RarityCounts{Total: 100, Common: 95, Legendary: 5}, LuckBlessed},
		{"epic rich", model.RarityCounts{Total: 100, Common: 87, Epic: 13}, LuckFortune},
		{"legendary average", model.RarityCounts{Total: 100, Common: 97, Legendary: 3}, LuckAverage},
		{"epic average", model.RarityCounts{Total: 100, Common: 91, Epic: 9}, LuckAverage},
		{"boundary is exclusive", model.RarityCounts{Total: 100, Common: 96, Legendary: 4}, LuckAverage},
		{"unlucky", model.RarityCounts{Total: 100, Common: 90, Rare: 8, Epic: 2}, LuckUnlucky},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LuckRating(tt.counts))
		})
	}
}

package gacha

import (
	"testing"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
)

// newestFirst 按给定稀有度（最新在前）构造流水
func newestFirst(bannerID int64, rarities ...model.Rarity) []model.DrawRecord {
	out := make([]model.DrawRecord, len(rarities))
	for i, r := range rarities {
		out[i] = model.DrawRecord{BannerID: bannerID, Rarity: r, PullNumber: int64(len(rarities) - i)}
	}
	return out
}

func TestCounters(t *testing.T) {
	C, R, E, L := model.RarityCommon, model.RarityRare, model.RarityEpic, model.RarityLegendary

	tests := []struct {
		name    string
		history []model.DrawRecord
		want    model.PityState
	}{
		{"empty", nil, model.PityState{}},
		{"no qualifying draw", newestFirst(1, C, R, C), model.PityState{SinceEpic: 3, SinceLegendary: 3}},
		{"epic three back", newestFirst(1, C, R, E, C, C), model.PityState{SinceEpic: 2, SinceLegendary: 5}},
		{"legendary resets both", newestFirst(1, C, L, C, E), model.PityState{SinceEpic: 1, SinceLegendary: 1}},
		{"latest epic", newestFirst(1, E, C, L), model.PityState{SinceEpic: 0, SinceLegendary: 2}},
		{"latest legendary", newestFirst(1, L, C, C), model.PityState{SinceEpic: 0, SinceLegendary: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Counters(tt.history, 1)
			if got != tt.want {
				t.Errorf("Counters() = %+v, want %+v", got, tt.want)
			}
			if again := Counters(tt.history, 1); again != got {
				t.Errorf("Counters() not deterministic: %+v then %+v", got, again)
			}
		})
	}
}

func TestCounters_FiltersBanner(t *testing.T) {
	history := append(newestFirst(2, model.RarityEpic), newestFirst(1, model.RarityCommon, model.RarityCommon)...)

	if got := Counters(history, 1); got.SinceEpic != 2 {
		t.Errorf("banner 1 SinceEpic = %d, want 2", got.SinceEpic)
	}
	if got := Counters(history, 0); got.SinceEpic != 0 || got.SinceLegendary != 3 {
		t.Errorf("all banners = %+v, want {0 3}", got)
	}
}

func TestPityRules_Decide(t *testing.T) {
	rules := DefaultPityRules()
	tests := []struct {
		state      model.PityState
		wantForced model.Rarity
		wantPity   bool
	}{
		{model.PityState{SinceEpic: 48, SinceLegendary: 48}, model.RarityNone, false},
		{model.PityState{SinceEpic: 49, SinceLegendary: 49}, model.RarityEpic, true},
		{model.PityState{SinceEpic: 10, SinceLegendary: 88}, model.RarityNone, false},
		{model.PityState{SinceEpic: 10, SinceLegendary: 89}, model.RarityLegendary, true},
		// Legendary 优先于 Epic
		{model.PityState{SinceEpic: 89, SinceLegendary: 89}, model.RarityLegendary, true},
	}
	for _, tt := range tests {
		forced, pity := rules.Decide(tt.state)
		if forced != tt.wantForced || pity != tt.wantPity {
			t.Errorf("Decide(%+v) = (%v, %v), want (%v, %v)", tt.state, forced, pity, tt.wantForced, tt.wantPity)
		}
	}
}

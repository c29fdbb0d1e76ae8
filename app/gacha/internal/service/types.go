package service

import (
	"time"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
)

// PullResult 单抽结果
type PullResult struct {
	ItemID     int64        `json:"item_id"`
	ItemName   string       `json:"item_name"`
	Rarity     model.Rarity `json:"rarity"`
	Emoji      string       `json:"emoji"`
	IsPity     bool         `json:"is_pity"`
	PullNumber int64        `json:"pull_number"`
}

// BatchPullResult 连抽结果
type BatchPullResult struct {
	Results    []PullResult `json:"results"`
	TotalPulls int64        `json:"total_pulls"`
	Corrected  bool         `json:"corrected"`
}

// InventoryEntry 背包条目
type InventoryEntry struct {
	ItemID   int64        `json:"item_id"`
	ItemName string       `json:"item_name"`
	Rarity   model.Rarity `json:"rarity"`
	Emoji    string       `json:"emoji"`
	Quantity int64        `json:"quantity"`
}

// HistoryEntry 抽卡历史条目
type HistoryEntry struct {
	PullNumber int64        `json:"pull_number"`
	ItemName   string       `json:"item_name"`
	Rarity     model.Rarity `json:"rarity"`
	Emoji      string       `json:"emoji"`
	BannerName string       `json:"banner_name"`
	PulledAt   time.Time    `json:"pulled_at"`
}

// Stats 玩家抽卡统计，保底计数跨卡池
type Stats struct {
	TotalPulls           int64  `json:"total_pulls"`
	CommonCount          int64  `json:"common_count"`
	RareCount            int64  `json:"rare_count"`
	EpicCount            int64  `json:"epic_count"`
	LegendaryCount       int64  `json:"legendary_count"`
	LuckRating           string `json:"luck_rating"`
	PityCounterEpic      int    `json:"pity_counter_epic"`
	PityCounterLegendary int    `json:"pity_counter_legendary"`
}

package model

import "time"

// DrawRecord 抽卡流水，PullNumber 为玩家跨卡池的连续序号
type DrawRecord struct {
	ID         int64     `db:"id" json:"id"`
	UserID     int64     `db:"user_id" json:"user_id"`
	BannerID   int64     `db:"banner_id" json:"banner_id"`
	ItemID     int64     `db:"item_id" json:"item_id"`
	Rarity     Rarity    `db:"rarity" json:"rarity"`
	PullNumber int64     `db:"pull_number" json:"pull_number"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// HoldingsEntry 玩家物品持有数
type HoldingsEntry struct {
	UserID   int64 `db:"user_id" json:"user_id"`
	ItemID   int64 `db:"item_id" json:"item_id"`
	Quantity int64 `db:"quantity" json:"quantity"`
}

// PityState 保底计数，由流水实时推导，不落库
type PityState struct {
	SinceEpic      int `json:"since_epic"`
	SinceLegendary int `json:"since_legendary"`
}

// HoldingsDrift 持有数与流水计数不一致的条目
type HoldingsDrift struct {
	UserID      int64 `db:"user_id" json:"user_id"`
	ItemID      int64 `db:"item_id" json:"item_id"`
	Quantity    int64 `db:"quantity" json:"quantity"`
	LedgerCount int64 `db:"ledger_count" json:"ledger_count"`
}

// RarityCounts 各稀有度抽取次数
type RarityCounts struct {
	Total     int64 `json:"total"`
	Common    int64 `json:"common"`
	Rare      int64 `json:"rare"`
	Epic      int64 `json:"epic"`
	Legendary int64 `json:"legendary"`
}

// Add 累加一次抽取
func (c *RarityCounts) Add(r Rarity, n int64) {
	c.Total += n
	switch r {
	case RarityCommon:
		c.Common += n
	case RarityRare:
		c.Rare += n
	case RarityEpic:
		c.Epic += n
	case RarityLegendary:
		c.Legendary += n
	}
}

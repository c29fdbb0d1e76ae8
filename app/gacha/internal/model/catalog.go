package model

// Banner 卡池
type Banner struct {
	ID          int64  `db:"id" json:"id" yaml:"id"`
	Name        string `db:"name" json:"name" yaml:"name"`
	Description string `db:"description" json:"description" yaml:"description"`
	Active      bool   `db:"is_active" json:"is_active" yaml:"active"`
}

// Item 卡池物品，Weight 为相对掉落权重
type Item struct {
	ID       int64   `db:"id" json:"id" yaml:"id"`
	BannerID int64   `db:"banner_id" json:"banner_id" yaml:"-"`
	Name     string  `db:"name" json:"name" yaml:"name"`
	Rarity   Rarity  `db:"rarity" json:"rarity" yaml:"rarity"`
	Weight   float64 `db:"weight" json:"weight" yaml:"weight"`
	Emoji    string  `db:"emoji" json:"emoji" yaml:"emoji"`
}

// BannerDetail 卡池及其物品
type BannerDetail struct {
	Banner
	Items []Item `json:"items"`
}

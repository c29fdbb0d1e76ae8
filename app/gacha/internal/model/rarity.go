package model

import (
	"fmt"
	"strings"
)

// Rarity 稀有度，数值越大越稀有
type Rarity int8

const (
	// RarityNone 未指定（不强制稀有度）
	RarityNone Rarity = iota
	RarityCommon
	RarityRare
	RarityEpic
	RarityLegendary
)

var rarityNames = [...]string{
	RarityNone:      "",
	RarityCommon:    "Common",
	RarityRare:      "Rare",
	RarityEpic:      "Epic",
	RarityLegendary: "Legendary",
}

// Rarities 全部有效稀有度，从低到高
var Rarities = []Rarity{RarityCommon, RarityRare, RarityEpic, RarityLegendary}

func (r Rarity) String() string {
	if r.Valid() || r == RarityNone {
		return rarityNames[r]
	}
	return fmt.Sprintf("Rarity(%d)", int8(r))
}

// Valid 是否为有效稀有度（不含 RarityNone）
func (r Rarity) Valid() bool {
	return r >= RarityCommon && r <= RarityLegendary
}

// AtLeast r 是否不低于 min
func (r Rarity) AtLeast(min Rarity) bool {
	return r >= min
}

// ParseRarity 解析稀有度名称，大小写不敏感
func ParseRarity(s string) (Rarity, error) {
	for _, r := range Rarities {
		if strings.EqualFold(s, rarityNames[r]) {
			return r, nil
		}
	}
	return RarityNone, fmt.Errorf("unknown rarity %q", s)
}

func (r Rarity) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid rarity %d", int8(r))
	}
	return []byte(r.String()), nil
}

func (r *Rarity) UnmarshalText(text []byte) error {
	v, err := ParseRarity(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

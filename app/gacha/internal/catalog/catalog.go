// Package catalog 卡池目录：YAML 定义、校验、热更新与入库
package catalog

import (
	"cmp"
	_ "embed"
	"fmt"
	"math"
	"os"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ErrInvalidCatalog 目录内容不合法
var ErrInvalidCatalog = errors.New("catalog: invalid catalog")

// BannerSpec 目录文件中的卡池定义
type BannerSpec struct {
	model.Banner `yaml:",inline"`
	Items        []model.Item `yaml:"items"`
}

// Catalog 卡池目录
type Catalog struct {
	Banners []BannerSpec `yaml:"banners"`
}

// Default 内嵌的默认目录
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded catalog is invalid: %v", err))
	}
	return c
}

// LoadFile 读取目录文件，path 为空时返回默认目录
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read catalog %s", path)
	}
	return Parse(data)
}

// Parse 解析并校验目录，补全物品的 BannerID
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode catalog"), ErrInvalidCatalog)
	}
	for i := range c.Banners {
		b := &c.Banners[i]
		for j := range b.Items {
			b.Items[j].BannerID = b.ID
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate 至少一个卡池；卡池与物品 ID 全局唯一，名称非空，稀有度有效，权重为有限非负数
func (c *Catalog) Validate() error {
	if len(c.Banners) == 0 {
		return errors.Wrap(ErrInvalidCatalog, "no banners")
	}
	bannerIDs := make(map[int64]struct{}, len(c.Banners))
	itemIDs := make(map[int64]struct{})
	for _, b := range c.Banners {
		if b.ID <= 0 || b.Name == "" {
			return errors.Wrapf(ErrInvalidCatalog, "banner %d: id and name are required", b.ID)
		}
		if _, dup := bannerIDs[b.ID]; dup {
			return errors.Wrapf(ErrInvalidCatalog, "duplicate banner id %d", b.ID)
		}
		bannerIDs[b.ID] = struct{}{}

		for _, it := range b.Items {
			if it.ID <= 0 || it.Name == "" {
				return errors.Wrapf(ErrInvalidCatalog, "banner %d item %d: id and name are required", b.ID, it.ID)
			}
			if _, dup := itemIDs[it.ID]; dup {
				return errors.Wrapf(ErrInvalidCatalog, "duplicate item id %d", it.ID)
			}
			itemIDs[it.ID] = struct{}{}
			if !it.Rarity.Valid() {
				return errors.Wrapf(ErrInvalidCatalog, "item %d: invalid rarity", it.ID)
			}
			if it.Weight < 0 || math.IsNaN(it.Weight) || math.IsInf(it.Weight, 0) {
				return errors.Wrapf(ErrInvalidCatalog, "item %d: invalid weight %v", it.ID, it.Weight)
			}
		}
	}
	return nil
}

// ListBanners 全部卡池，按 ID 升序
func (c *Catalog) ListBanners() []model.Banner {
	out := make([]model.Banner, 0, len(c.Banners))
	for _, b := range c.Banners {
		out = append(out, b.Banner)
	}
	slices.SortFunc(out, func(a, b model.Banner) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Detail 卡池及物品，不存在时返回 nil
func (c *Catalog) Detail(bannerID int64) *model.BannerDetail {
	for _, b := range c.Banners {
		if b.ID == bannerID {
			return &model.BannerDetail{Banner: b.Banner, Items: slices.Clone(b.Items)}
		}
	}
	return nil
}

// IDs 全部卡池 ID
func (c *Catalog) IDs() []int64 {
	ids := make([]int64, len(c.Banners))
	for i, b := range c.Banners {
		ids[i] = b.ID
	}
	return ids
}

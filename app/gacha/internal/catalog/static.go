package catalog

import (
	"context"
	"sync/atomic"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/pkg/config"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
)

// Static 内存中的目录数据来源，可整体替换
type Static struct {
	current atomic.Pointer[Catalog]
}

// NewStatic 以 c 创建数据来源
func NewStatic(c *Catalog) *Static {
	s := &Static{}
	s.current.Store(c)
	return s
}

// Replace 替换目录
func (s *Static) Replace(c *Catalog) {
	s.current.Store(c)
}

// Current 当前目录
func (s *Static) Current() *Catalog {
	return s.current.Load()
}

func (s *Static) ListBanners(context.Context) ([]model.Banner, error) {
	return s.current.Load().ListBanners(), nil
}

func (s *Static) GetBannerDetail(_ context.Context, bannerID int64) (*model.BannerDetail, error) {
	return s.current.Load().Detail(bannerID), nil
}

// Watch 监听目录文件，内容合法时替换 s 并回调 onChange；不合法时保留旧目录
func (s *Static) Watch(path string, l logger.Logger, onChange func(*Catalog)) (*config.Watcher[Catalog], error) {
	l = l.Named("catalog")
	// 物品稀有度以文本存储，直接用 yaml 解码文件
	decode := func(config.Manager) (*Catalog, error) {
		return LoadFile(path)
	}
	w, err := config.NewWatcher(path, decode, func(err error) {
		l.Error("catalog reload rejected", "path", path, "error", err)
	})
	if err != nil {
		return nil, err
	}

	s.Replace(w.Current())
	w.OnChange(func(c *Catalog) {
		s.Replace(c)
		l.Info("catalog reloaded", "path", path, "banners", len(c.Banners))
		if onChange != nil {
			onChange(c)
		}
	})
	return w, nil
}

package gacha

import "github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"

// Observer 抽卡事件观察者，只在事务提交后回调
type Observer interface {
	OnDraw(bannerID int64, item model.Item, pity bool)
	OnCorrection(bannerID int64, original, replacement model.Item)
	OnConflictRetry(attempt int)
}

type noopObserver struct{}

func (noopObserver) OnDraw(int64, model.Item, bool)             {}
func (noopObserver) OnCorrection(int64, model.Item, model.Item) {}
func (noopObserver) OnConflictRetry(int)                        {}

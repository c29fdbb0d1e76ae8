package gacha

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/pkg/config"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
)

// DrawResult 单抽结果
type DrawResult struct {
	Item       model.Item
	WasPity    bool
	PullNumber int64
}

// Engine 抽卡引擎：保底判定、加权选择与流水/持有数的原子落库
type Engine struct {
	store    Store
	selector *Selector
	config   *Config
	observer Observer
	logger   logger.Logger
}

// Option 引擎选项
type Option func(*Engine)

// WithObserver 设置事件观察者
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// NewEngine 创建抽卡引擎，rng 为 nil 时按配置种子创建
func NewEngine(store Store, rng RandomSource, cfg *Config, l logger.Logger, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, errors.New("gacha: store is nil")
	}
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge gacha config: %w", err)
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = NewRandomSource(newCfg.Draw.RNGSeed)
	}

	e := &Engine{
		store:    store,
		selector: NewSelector(rng),
		config:   newCfg,
		observer: noopObserver{},
		logger:   l.Named("gacha.engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config 生效的配置
func (e *Engine) Config() *Config {
	return e.config
}

// DrawOne 为玩家在指定卡池执行一次抽卡
func (e *Engine) DrawOne(ctx context.Context, userID, bannerID int64, pool []model.Item) (*DrawResult, error) {
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}

	var res *DrawResult
	err := e.runScoped(ctx, userID, func(ctx context.Context, scope Scope) error {
		r, err := e.drawInScope(ctx, scope, userID, bannerID, pool)
		res = r
		return err
	})
	if err != nil {
		return nil, err
	}

	e.observer.OnDraw(bannerID, res.Item, res.WasPity)
	return res, nil
}

// drawInScope 在已持有玩家作用域的前提下完成一次抽卡
func (e *Engine) drawInScope(ctx context.Context, scope Scope, userID, bannerID int64, pool []model.Item) (*DrawResult, error) {
	ledger := scope.Ledger()

	history, err := ledger.HistoryForBanner(ctx, userID, bannerID)
	if err != nil {
		return nil, errors.Wrap(err, "load banner history")
	}
	forced, pity := e.config.Pity.Decide(Counters(history, bannerID))

	item, err := e.selector.Pick(pool, forced)
	if err != nil {
		return nil, err
	}

	latest, err := ledger.LatestPullNumber(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "load latest pull number")
	}
	rec, err := ledger.AppendDraw(ctx, userID, bannerID, item, latest+1)
	if err != nil {
		return nil, errors.Wrap(err, "append draw record")
	}
	if err := scope.Holdings().Increment(ctx, userID, item.ID); err != nil {
		return nil, errors.Wrap(err, "increment holdings")
	}

	return &DrawResult{Item: item, WasPity: pity, PullNumber: rec.PullNumber}, nil
}

// runScoped 在玩家作用域内执行 fn，冲突时整体重跑，重试次数耗尽后返回最后一次的冲突错误
func (e *Engine) runScoped(ctx context.Context, userID int64, fn func(ctx context.Context, scope Scope) error) error {
	maxRetries := e.config.Draw.conflictRetries()
	for attempt := 0; ; attempt++ {
		err := e.store.WithUserScope(ctx, userID, fn)
		if err == nil {
			return nil
		}
		if !IsConflict(err) {
			return err
		}
		if attempt >= maxRetries {
			return errors.Wrapf(err, "draw for user %d gave up after %d attempts", userID, attempt+1)
		}

		e.observer.OnConflictRetry(attempt + 1)
		e.logger.WarnContext(ctx, "draw conflict, retrying",
			"user_id", userID,
			"attempt", attempt+1,
			"error", err,
		)

		if backoff := e.config.Draw.retryBackoff(attempt + 1); backoff > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
}

package repository

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/gacha"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/pkg/idgen"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
)

const memoryStripes = 64

// userState 单个玩家的流水与持有数
type userState struct {
	records  []model.DrawRecord // 按 PullNumber 正序
	holdings map[int64]int64    // itemID -> quantity
}

func (s *userState) clone() *userState {
	c := &userState{
		records:  slices.Clone(s.records),
		holdings: maps.Clone(s.holdings),
	}
	if c.holdings == nil {
		c.holdings = make(map[int64]int64)
	}
	return c
}

type memoryDrawRepository struct {
	stripes [memoryStripes]sync.Mutex

	mu    sync.RWMutex
	users map[int64]*userState

	ids    idgen.Generator
	logger logger.Logger
}

// NewMemoryDrawRepository 进程内抽卡仓储，用于单机部署、压测与测试
// 同一玩家的作用域按 xxhash 分段加锁串行执行，作用域在副本上修改，成功后整体替换
func NewMemoryDrawRepository(ids idgen.Generator, l logger.Logger) DrawRepository {
	if ids == nil {
		ids = idgen.NewSequence(0)
	}
	return &memoryDrawRepository{
		users:  make(map[int64]*userState),
		ids:    ids,
		logger: l.Named("repository.draw.memory"),
	}
}

func (r *memoryDrawRepository) stripe(userID int64) *sync.Mutex {
	h := xxhash.Sum64String(strconv.FormatInt(userID, 10))
	return &r.stripes[h%memoryStripes]
}

func (r *memoryDrawRepository) load(userID int64) *userState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.users[userID]; ok {
		return s
	}
	return &userState{holdings: make(map[int64]int64)}
}

func (r *memoryDrawRepository) store(userID int64, s *userState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[userID] = s
}

func (r *memoryDrawRepository) WithUserScope(ctx context.Context, userID int64, fn func(ctx context.Context, scope gacha.Scope) error) error {
	lock := r.stripe(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snap := r.load(userID).clone()
	if err := fn(ctx, &memoryScope{repo: r, state: snap}); err != nil {
		return classify(err)
	}
	r.store(userID, snap)
	return nil
}

func (r *memoryDrawRepository) ListHistory(_ context.Context, userID int64, limit int) ([]model.DrawRecord, error) {
	records := r.load(userID).records
	n := len(records)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.DrawRecord, 0, n)
	for i := len(records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, records[i])
	}
	return out, nil
}

func (r *memoryDrawRepository) ListHoldings(_ context.Context, userID int64) ([]model.HoldingsEntry, error) {
	state := r.load(userID)
	out := make([]model.HoldingsEntry, 0, len(state.holdings))
	for itemID, qty := range state.holdings {
		if qty > 0 {
			out = append(out, model.HoldingsEntry{UserID: userID, ItemID: itemID, Quantity: qty})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

func (r *memoryDrawRepository) CountDraws(_ context.Context, userID int64) (model.RarityCounts, error) {
	var counts model.RarityCounts
	for _, rec := range r.load(userID).records {
		counts.Add(rec.Rarity, 1)
	}
	return counts, nil
}

func (r *memoryDrawRepository) PityState(ctx context.Context, userID int64) (model.PityState, error) {
	history, err := r.ListHistory(ctx, userID, 0)
	if err != nil {
		return model.PityState{}, err
	}
	return gacha.Counters(history, 0), nil
}

func (r *memoryDrawRepository) FindHoldingsDrift(_ context.Context, limit int) ([]model.HoldingsDrift, error) {
	r.mu.RLock()
	userIDs := slices.Sorted(maps.Keys(r.users))
	r.mu.RUnlock()

	var out []model.HoldingsDrift
	for _, userID := range userIDs {
		state := r.load(userID)
		ledger := make(map[int64]int64)
		for _, rec := range state.records {
			ledger[rec.ItemID]++
		}
		itemIDs := make(map[int64]struct{}, len(ledger)+len(state.holdings))
		for id := range ledger {
			itemIDs[id] = struct{}{}
		}
		for id := range state.holdings {
			itemIDs[id] = struct{}{}
		}
		for _, itemID := range slices.Sorted(maps.Keys(itemIDs)) {
			if state.holdings[itemID] == ledger[itemID] {
				continue
			}
			out = append(out, model.HoldingsDrift{
				UserID:      userID,
				ItemID:      itemID,
				Quantity:    state.holdings[itemID],
				LedgerCount: ledger[itemID],
			})
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
	}
	return out, nil
}

func (r *memoryDrawRepository) RepairHoldings(ctx context.Context, drift []model.HoldingsDrift) error {
	for _, d := range drift {
		err := r.WithUserScope(ctx, d.UserID, func(_ context.Context, scope gacha.Scope) error {
			state := scope.(*memoryScope).state
			var count int64
			for _, rec := range state.records {
				if rec.ItemID == d.ItemID {
					count++
				}
			}
			state.holdings[d.ItemID] = count
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// memoryScope 作用于玩家状态副本
type memoryScope struct {
	repo  *memoryDrawRepository
	state *userState
}

func (s *memoryScope) Ledger() gacha.Ledger     { return s }
func (s *memoryScope) Holdings() gacha.Holdings { return (*memoryHoldings)(s) }

func (s *memoryScope) AppendDraw(_ context.Context, userID, bannerID int64, item model.Item, pullNumber int64) (*model.DrawRecord, error) {
	if n := len(s.state.records); n > 0 && s.state.records[n-1].PullNumber >= pullNumber {
		return nil, gacha.MarkConflict(errors.Newf("pull number %d already taken for user %d", pullNumber, userID))
	}
	id, err := s.repo.ids.NextID()
	if err != nil {
		return nil, err
	}
	rec := model.DrawRecord{
		ID:         id,
		UserID:     userID,
		BannerID:   bannerID,
		ItemID:     item.ID,
		Rarity:     item.Rarity,
		PullNumber: pullNumber,
		CreatedAt:  time.Now(),
	}
	s.state.records = append(s.state.records, rec)
	return &rec, nil
}

func (s *memoryScope) LatestPullNumber(context.Context, int64) (int64, error) {
	if n := len(s.state.records); n > 0 {
		return s.state.records[n-1].PullNumber, nil
	}
	return 0, nil
}

func (s *memoryScope) HistoryForBanner(_ context.Context, _ int64, bannerID int64) ([]model.DrawRecord, error) {
	var out []model.DrawRecord
	for i := len(s.state.records) - 1; i >= 0; i-- {
		if s.state.records[i].BannerID == bannerID {
			out = append(out, s.state.records[i])
		}
	}
	return out, nil
}

func (s *memoryScope) OverwriteLatestItem(_ context.Context, userID int64, item model.Item) error {
	n := len(s.state.records)
	if n == 0 {
		return errors.Wrapf(gacha.ErrNoDrawToCorrect, "user %d", userID)
	}
	s.state.records[n-1].ItemID = item.ID
	s.state.records[n-1].Rarity = item.Rarity
	return nil
}

type memoryHoldings memoryScope

func (h *memoryHoldings) Increment(_ context.Context, _, itemID int64) error {
	h.state.holdings[itemID]++
	return nil
}

func (h *memoryHoldings) Decrement(_ context.Context, _, itemID int64) error {
	if h.state.holdings[itemID] > 0 {
		h.state.holdings[itemID]--
	}
	return nil
}

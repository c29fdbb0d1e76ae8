package gacha

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
)

// scriptedRand 按顺序循环返回预设值
type scriptedRand struct {
	mu   sync.Mutex
	vals []float64
	i    int
}

func (r *scriptedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v
}

type holdingKey struct{ user, item int64 }

type userSnapshot struct {
	records  []model.DrawRecord // 按 PullNumber 正序
	holdings map[holdingKey]int64
}

// fakeStore 内存 Store，可注入冲突与故障
type fakeStore struct {
	mu        sync.Mutex
	records   map[int64][]model.DrawRecord
	holdings  map[holdingKey]int64
	conflicts int
	failure   error
	calls     atomic.Int32
	nextID    int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:  make(map[int64][]model.DrawRecord),
		holdings: make(map[holdingKey]int64),
	}
}

func (s *fakeStore) WithUserScope(ctx context.Context, userID int64, fn func(ctx context.Context, scope Scope) error) error {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if s.failure != nil {
		return MarkFailure(s.failure)
	}
	if s.conflicts > 0 {
		s.conflicts--
		return MarkConflict(errors.New("could not serialize access"))
	}

	snap := &userSnapshot{
		records:  slices.Clone(s.records[userID]),
		holdings: make(map[holdingKey]int64),
	}
	for k, v := range s.holdings {
		if k.user == userID {
			snap.holdings[k] = v
		}
	}
	if err := fn(ctx, &fakeScope{store: s, snap: snap}); err != nil {
		return err
	}

	s.records[userID] = snap.records
	for k, v := range snap.holdings {
		s.holdings[k] = v
	}
	return nil
}

func (s *fakeStore) history(userID int64) []model.DrawRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.records[userID])
}

func (s *fakeStore) quantity(userID, itemID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holdings[holdingKey{userID, itemID}]
}

type fakeScope struct {
	store *fakeStore
	snap  *userSnapshot
}

func (f *fakeScope) Ledger() Ledger     { return f }
func (f *fakeScope) Holdings() Holdings { return (*fakeHoldings)(f) }

func (f *fakeScope) AppendDraw(_ context.Context, userID, bannerID int64, item model.Item, pullNumber int64) (*model.DrawRecord, error) {
	f.store.nextID++
	rec := model.DrawRecord{
		ID:         f.store.nextID,
		UserID:     userID,
		BannerID:   bannerID,
		ItemID:     item.ID,
		Rarity:     item.Rarity,
		PullNumber: pullNumber,
		CreatedAt:  time.Now(),
	}
	f.snap.records = append(f.snap.records, rec)
	return &rec, nil
}

func (f *fakeScope) LatestPullNumber(context.Context, int64) (int64, error) {
	if len(f.snap.records) == 0 {
		return 0, nil
	}
	return f.snap.records[len(f.snap.records)-1].PullNumber, nil
}

func (f *fakeScope) HistoryForBanner(_ context.Context, _ int64, bannerID int64) ([]model.DrawRecord, error) {
	var out []model.DrawRecord
	for i := len(f.snap.records) - 1; i >= 0; i-- {
		if f.snap.records[i].BannerID == bannerID {
			out = append(out, f.snap.records[i])
		}
	}
	return out, nil
}

func (f *fakeScope) OverwriteLatestItem(_ context.Context, _ int64, item model.Item) error {
	if len(f.snap.records) == 0 {
		return ErrNoDrawToCorrect
	}
	last := &f.snap.records[len(f.snap.records)-1]
	last.ItemID = item.ID
	last.Rarity = item.Rarity
	return nil
}

type fakeHoldings fakeScope

func (h *fakeHoldings) Increment(_ context.Context, userID, itemID int64) error {
	h.snap.holdings[holdingKey{userID, itemID}]++
	return nil
}

func (h *fakeHoldings) Decrement(_ context.Context, userID, itemID int64) error {
	k := holdingKey{userID, itemID}
	if h.snap.holdings[k] > 0 {
		h.snap.holdings[k]--
	}
	return nil
}

// countingObserver 统计回调次数
type countingObserver struct {
	mu          sync.Mutex
	draws       int
	pity        int
	corrections int
	retries     int
}

func (o *countingObserver) OnDraw(_ int64, _ model.Item, pity bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.draws++
	if pity {
		o.pity++
	}
}

func (o *countingObserver) OnCorrection(int64, model.Item, model.Item) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.corrections++
}

func (o *countingObserver) OnConflictRetry(int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.retries++
}

func item(id int64, r model.Rarity, w float64) model.Item {
	return model.Item{ID: id, BannerID: 1, Name: r.String(), Rarity: r, Weight: w}
}

// commonOnlyPool Common 权重为 1，其余稀有度权重为 0，只能通过保底或修正获得
func commonOnlyPool() []model.Item {
	return []model.Item{
		item(1, model.RarityCommon, 1),
		item(2, model.RarityRare, 0),
		item(3, model.RarityEpic, 0),
		item(4, model.RarityLegendary, 0),
	}
}

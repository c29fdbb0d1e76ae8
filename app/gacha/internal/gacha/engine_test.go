package gacha

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newTestEngine(t *testing.T, store Store, rng RandomSource, opts ...Option) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Draw.RetryBackoff = time.Millisecond
	e, err := NewEngine(store, rng, cfg, logger.NewNoop(), opts...)
	require.NoError(t, err)
	return e
}

func TestEngine_EpicPityOnFiftiethDraw(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(t, store, NewRandomSource(1))
	ctx := context.Background()

	for i := 1; i <= 49; i++ {
		res, err := e.DrawOne(ctx, 1, 1, commonOnlyPool())
		require.NoError(t, err)
		require.False(t, res.WasPity, "draw %d", i)
		require.Equal(t, model.RarityCommon, res.Item.Rarity)
		require.Equal(t, int64(i), res.PullNumber)
	}

	res, err := e.DrawOne(ctx, 1, 1, commonOnlyPool())
	require.NoError(t, err)
	assert.True(t, res.WasPity)
	assert.Equal(t, model.RarityEpic, res.Item.Rarity)
	assert.Equal(t, int64(50), res.PullNumber)
}

func TestEngine_LegendaryPityOnNinetiethDraw(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(t, store, NewRandomSource(1))
	ctx := context.Background()

	var last *DrawResult
	for i := 1; i <= 90; i++ {
		res, err := e.DrawOne(ctx, 1, 1, commonOnlyPool())
		require.NoError(t, err)
		last = res
	}
	assert.True(t, last.WasPity)
	assert.Equal(t, model.RarityLegendary, last.Item.Rarity)

	// 第 90 抽之后两个计数都清零
	state := Counters(reverse(store.history(1)), 1)
	assert.Equal(t, model.PityState{}, state)
}

func TestEngine_PityIsPerBanner(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(t, store, NewRandomSource(1))
	ctx := context.Background()

	for i := 0; i < 49; i++ {
		_, err := e.DrawOne(ctx, 1, 1, commonOnlyPool())
		require.NoError(t, err)
	}
	res, err := e.DrawOne(ctx, 1, 2, commonOnlyPool())
	require.NoError(t, err)
	assert.False(t, res.WasPity)
	// PullNumber 跨卡池连续
	assert.Equal(t, int64(50), res.PullNumber)
}

func TestEngine_HoldingsTrackLedger(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(t, store, NewRandomSource(9))
	pool := []model.Item{
		item(1, model.RarityCommon, 80),
		item(2, model.RarityRare, 15),
		item(3, model.RarityEpic, 4),
		item(4, model.RarityLegendary, 1),
	}

	for i := 0; i < 300; i++ {
		_, err := e.DrawOne(context.Background(), 5, 1, pool)
		require.NoError(t, err)
	}
	assertHoldingsMatchLedger(t, store, 5, pool)
}

func TestEngine_EmptyPoolSkipsStore(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(t, store, nil)

	_, err := e.DrawOne(context.Background(), 1, 1, nil)
	assert.True(t, errors.Is(err, ErrEmptyPool))
	assert.Zero(t, store.calls.Load())
}

func TestEngine_RetriesConflicts(t *testing.T) {
	store := newFakeStore()
	store.conflicts = 2
	obs := &countingObserver{}
	e := newTestEngine(t, store, NewRandomSource(1), WithObserver(obs))

	res, err := e.DrawOne(context.Background(), 1, 1, commonOnlyPool())
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.PullNumber)
	assert.Equal(t, int32(3), store.calls.Load())
	assert.Equal(t, 2, obs.retries)
	assert.Equal(t, 1, obs.draws)
}

func TestEngine_ConflictRetriesExhausted(t *testing.T) {
	store := newFakeStore()
	store.conflicts = 10
	e := newTestEngine(t, store, NewRandomSource(1))

	_, err := e.DrawOne(context.Background(), 1, 1, commonOnlyPool())
	require.Error(t, err)
	assert.True(t, IsConflict(err))
	assert.Equal(t, int32(4), store.calls.Load())
	assert.Empty(t, store.history(1))
}

func TestNewEngine_RetrySettings(t *testing.T) {
	tests := []struct {
		name        string
		retries     int
		backoff     time.Duration
		wantRetries int
		wantBackoff time.Duration
	}{
		{"zero keeps defaults", 0, 0, 3, 20 * time.Millisecond},
		{"explicit values", 5, time.Millisecond, 5, time.Millisecond},
		{"negative disables", -1, -1, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Draw: DrawConfig{MaxConflictRetries: tt.retries, RetryBackoff: tt.backoff}}
			e, err := NewEngine(newFakeStore(), NewRandomSource(1), cfg, logger.NewNoop())
			require.NoError(t, err)
			assert.Equal(t, tt.wantRetries, e.Config().Draw.conflictRetries())
			assert.Equal(t, tt.wantBackoff, e.Config().Draw.retryBackoff(1))
		})
	}

	_, err := NewEngine(newFakeStore(), nil, &Config{Draw: DrawConfig{MaxConflictRetries: -2}}, logger.NewNoop())
	assert.Error(t, err)
}

func TestEngine_RetriesDisabled(t *testing.T) {
	store := newFakeStore()
	store.conflicts = 1
	cfg := &Config{Draw: DrawConfig{MaxConflictRetries: -1, RetryBackoff: -1}}
	e, err := NewEngine(store, NewRandomSource(1), cfg, logger.NewNoop())
	require.NoError(t, err)

	_, err = e.DrawOne(context.Background(), 1, 1, commonOnlyPool())
	assert.True(t, IsConflict(err))
	assert.Equal(t, int32(1), store.calls.Load())
}

func TestEngine_FailureNotRetried(t *testing.T) {
	store := newFakeStore()
	store.failure = errors.New("connection refused")
	e := newTestEngine(t, store, NewRandomSource(1))

	_, err := e.DrawOne(context.Background(), 1, 1, commonOnlyPool())
	assert.True(t, IsFailure(err))
	assert.False(t, IsConflict(err))
	assert.Equal(t, int32(1), store.calls.Load())
}

func TestEngine_ContextCancelledDuringBackoff(t *testing.T) {
	store := newFakeStore()
	store.conflicts = 10
	cfg := DefaultConfig()
	cfg.Draw.RetryBackoff = time.Hour
	e, err := NewEngine(store, NewRandomSource(1), cfg, logger.NewNoop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = e.DrawOne(ctx, 1, 1, commonOnlyPool())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEngine_ConcurrentDrawsKeepPullNumbersGapless(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(t, store, NewRandomSource(11))
	pool := []model.Item{item(1, model.RarityCommon, 70), item(2, model.RarityRare, 30)}

	var g errgroup.Group
	for w := 0; w < 8; w++ {
		g.Go(func() error {
			for i := 0; i < 5; i++ {
				if w%2 == 0 {
					if _, err := e.DrawOne(context.Background(), 1, int64(1+i%2), pool); err != nil {
						return err
					}
					continue
				}
				if _, err := e.DrawBatch(context.Background(), 1, 1, pool, 3); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	history := store.history(1)
	require.Len(t, history, 4*5+4*5*3)
	pulls := make([]int, len(history))
	for i, rec := range history {
		pulls[i] = int(rec.PullNumber)
	}
	sort.Ints(pulls)
	for i, p := range pulls {
		require.Equal(t, i+1, p, "pull numbers must be gapless")
	}
	assertHoldingsMatchLedger(t, store, 1, pool)
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Draw.MaxBatchSize = 5
	_, err := NewEngine(newFakeStore(), nil, cfg, logger.NewNoop())
	assert.Error(t, err)

	_, err = NewEngine(nil, nil, nil, logger.NewNoop())
	assert.Error(t, err)
}

func reverse(records []model.DrawRecord) []model.DrawRecord {
	out := make([]model.DrawRecord, len(records))
	for i, r := range records {
		out[len(records)-1-i] = r
	}
	return out
}

func assertHoldingsMatchLedger(t *testing.T, store *fakeStore, userID int64, pool []model.Item) {
	t.Helper()
	ledger := map[int64]int64{}
	for _, rec := range store.history(userID) {
		ledger[rec.ItemID]++
	}
	for _, it := range pool {
		assert.Equal(t, ledger[it.ID], store.quantity(userID, it.ID), "item %d", it.ID)
	}
}

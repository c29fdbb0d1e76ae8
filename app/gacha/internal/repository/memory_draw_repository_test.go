package repository

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/gacha"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func testPool() []model.Item {
	return []model.Item{
		{ID: 1, BannerID: 1, Name: "Fallen Petal", Rarity: model.RarityCommon, Weight: 80},
		{ID: 2, BannerID: 1, Name: "Moonlit Branch", Rarity: model.RarityRare, Weight: 15},
		{ID: 3, BannerID: 1, Name: "Spirit Fox Mask", Rarity: model.RarityEpic, Weight: 4},
		{ID: 4, BannerID: 1, Name: "Dragon of the Blossoms", Rarity: model.RarityLegendary, Weight: 1},
	}
}

func newMemoryEngine(t *testing.T) (DrawRepository, *gacha.Engine) {
	t.Helper()
	repo := NewMemoryDrawRepository(nil, logger.NewNoop())
	engine, err := gacha.NewEngine(repo, gacha.NewRandomSource(7), nil, logger.NewNoop())
	require.NoError(t, err)
	return repo, engine
}

func TestMemoryDrawRepository_ConcurrentUsers(t *testing.T) {
	repo, engine := newMemoryEngine(t)
	ctx := context.Background()

	var g errgroup.Group
	for user := int64(1); user <= 4; user++ {
		for w := 0; w < 4; w++ {
			g.Go(func() error {
				for i := 0; i < 5; i++ {
					if _, err := engine.DrawBatch(ctx, user, 1, testPool(), 10); err != nil {
						return err
					}
				}
				return nil
			})
		}
	}
	require.NoError(t, g.Wait())

	for user := int64(1); user <= 4; user++ {
		history, err := repo.ListHistory(ctx, user, 0)
		require.NoError(t, err)
		require.Len(t, history, 200)
		for i, rec := range history {
			assert.Equal(t, int64(200-i), rec.PullNumber)
		}

		counts, err := repo.CountDraws(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, int64(200), counts.Total)
	}

	drift, err := repo.FindHoldingsDrift(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, drift)
}

func TestMemoryDrawRepository_FailedScopeLeavesNoTrace(t *testing.T) {
	repo, _ := newMemoryEngine(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.WithUserScope(ctx, 1, func(ctx context.Context, scope gacha.Scope) error {
		if _, err := scope.Ledger().AppendDraw(ctx, 1, 1, testPool()[0], 1); err != nil {
			return err
		}
		if err := scope.Holdings().Increment(ctx, 1, 1); err != nil {
			return err
		}
		return boom
	})
	assert.True(t, errors.Is(err, boom))
	assert.True(t, gacha.IsFailure(err))

	history, err := repo.ListHistory(ctx, 1, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
	holdings, err := repo.ListHoldings(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, holdings)
}

func TestMemoryDrawRepository_DuplicatePullNumberConflicts(t *testing.T) {
	repo, _ := newMemoryEngine(t)
	ctx := context.Background()

	err := repo.WithUserScope(ctx, 1, func(ctx context.Context, scope gacha.Scope) error {
		if _, err := scope.Ledger().AppendDraw(ctx, 1, 1, testPool()[0], 1); err != nil {
			return err
		}
		_, err := scope.Ledger().AppendDraw(ctx, 1, 1, testPool()[0], 1)
		return err
	})
	assert.True(t, gacha.IsConflict(err))
}

func TestMemoryDrawRepository_OverwriteWithoutDraws(t *testing.T) {
	repo, _ := newMemoryEngine(t)
	err := repo.WithUserScope(context.Background(), 1, func(ctx context.Context, scope gacha.Scope) error {
		return scope.Ledger().OverwriteLatestItem(ctx, 1, testPool()[1])
	})
	assert.True(t, errors.Is(err, gacha.ErrNoDrawToCorrect))
}

func TestMemoryDrawRepository_PityStateAcrossBanners(t *testing.T) {
	repo, _ := newMemoryEngine(t)
	ctx := context.Background()
	pool := testPool()

	// 1: Common@b1, 2: Epic@b2, 3: Common@b1, 4: Rare@b2
	seq := []struct {
		banner int64
		item   model.Item
	}{{1, pool[0]}, {2, pool[2]}, {1, pool[0]}, {2, pool[1]}}
	err := repo.WithUserScope(ctx, 9, func(ctx context.Context, scope gacha.Scope) error {
		for i, s := range seq {
			if _, err := scope.Ledger().AppendDraw(ctx, 9, s.banner, s.item, int64(i+1)); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	state, err := repo.PityState(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, model.PityState{SinceEpic: 2, SinceLegendary: 4}, state)

	history, err := repo.ListHistory(ctx, 9, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(4), history[0].PullNumber)
}

func TestMemoryDrawRepository_RepairHoldings(t *testing.T) {
	repo, _ := newMemoryEngine(t)
	ctx := context.Background()

	// 只写流水不写持有数，制造不一致
	err := repo.WithUserScope(ctx, 3, func(ctx context.Context, scope gacha.Scope) error {
		for i := 1; i <= 3; i++ {
			if _, err := scope.Ledger().AppendDraw(ctx, 3, 1, testPool()[0], int64(i)); err != nil {
				return err
			}
		}
		return scope.Holdings().Increment(ctx, 3, 2)
	})
	require.NoError(t, err)

	drift, err := repo.FindHoldingsDrift(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, []model.HoldingsDrift{
		{UserID: 3, ItemID: 1, Quantity: 0, LedgerCount: 3},
		{UserID: 3, ItemID: 2, Quantity: 1, LedgerCount: 0},
	}, drift)

	limited, err := repo.FindHoldingsDrift(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	require.NoError(t, repo.RepairHoldings(ctx, drift))
	drift, err = repo.FindHoldingsDrift(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, drift)

	holdings, err := repo.ListHoldings(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []model.HoldingsEntry{{UserID: 3, ItemID: 1, Quantity: 3}}, holdings)
}

func TestMemoryDrawRepository_RepairAfterConcurrentDraw(t *testing.T) {
	repo, engine := newMemoryEngine(t)
	ctx := context.Background()
	pool := testPool()[:1]

	err := repo.WithUserScope(ctx, 5, func(ctx context.Context, scope gacha.Scope) error {
		_, err := scope.Ledger().AppendDraw(ctx, 5, 1, pool[0], 1)
		return err
	})
	require.NoError(t, err)

	drift, err := repo.FindHoldingsDrift(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, []model.HoldingsDrift{{UserID: 5, ItemID: 1, Quantity: 0, LedgerCount: 1}}, drift)

	// 扫描与修复之间又抽了一次
	res, err := engine.DrawOne(ctx, 5, 1, pool)
	require.NoError(t, err)
	require.Equal(t, int64(2), res.PullNumber)

	require.NoError(t, repo.RepairHoldings(ctx, drift))

	after, err := repo.FindHoldingsDrift(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, after)

	holdings, err := repo.ListHoldings(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []model.HoldingsEntry{{UserID: 5, ItemID: 1, Quantity: 2}}, holdings)
}

func TestMemoryDrawRepository_CanceledContext(t *testing.T) {
	repo, _ := newMemoryEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.WithUserScope(ctx, 1, func(context.Context, gacha.Scope) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

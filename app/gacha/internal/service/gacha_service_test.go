package service

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/catalog"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/gacha"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/repository"
	"github.com/lk2023060901/xdooria-gacha/pkg/cache/lru"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constRand 恒定随机数，0 总是选中池中第一个物品
type constRand float64

func (r constRand) Float64() float64 { return float64(r) }

type testEnv struct {
	svc   *GachaService
	draws repository.DrawRepository
}

func newTestService(t *testing.T, rng gacha.RandomSource) *testEnv {
	t.Helper()
	l := logger.NewNoop()

	draws := repository.NewMemoryDrawRepository(nil, l)
	cat := repository.NewCatalogRepository(
		catalog.NewStatic(catalog.Default()),
		nil,
		&lru.Config{MaxSize: 64, DefaultTTL: time.Minute},
		l, nil,
	)
	t.Cleanup(func() { _ = cat.Close() })

	engine, err := gacha.NewEngine(draws, rng, &gacha.Config{
		Draw: gacha.DrawConfig{RetryBackoff: time.Millisecond},
	}, l)
	require.NoError(t, err)

	return &testEnv{
		svc:   NewGachaService(engine, draws, cat, nil, l),
		draws: draws,
	}
}

func TestGachaService_ListBanners(t *testing.T) {
	env := newTestService(t, nil)

	banners, err := env.svc.ListBanners(context.Background())
	require.NoError(t, err)
	require.Len(t, banners, 2)
	assert.Equal(t, "Spring Blossom", banners[0].Name)
	assert.Equal(t, "Midnight Garden", banners[1].Name)

	detail, err := env.svc.GetBanner(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, detail.Items, 11)

	_, err = env.svc.GetBanner(context.Background(), 99)
	assert.True(t, errors.Is(err, gacha.ErrBannerNotFound))
}

func TestGachaService_Pull(t *testing.T) {
	env := newTestService(t, constRand(0))
	ctx := context.Background()

	res, err := env.svc.Pull(ctx, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(101), res.ItemID)
	assert.Equal(t, "Fallen Petal", res.ItemName)
	assert.Equal(t, model.RarityCommon, res.Rarity)
	assert.Equal(t, int64(1), res.PullNumber)
	assert.False(t, res.IsPity)

	res, err = env.svc.Pull(ctx, 7, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(201), res.ItemID)
	assert.Equal(t, int64(2), res.PullNumber)

	_, err = env.svc.Pull(ctx, 7, 99)
	assert.True(t, errors.Is(err, gacha.ErrBannerNotFound))
}

func TestGachaService_PullTenCorrectsLastSlot(t *testing.T) {
	env := newTestService(t, constRand(0))
	ctx := context.Background()

	res, err := env.svc.PullTen(ctx, 3, 1)
	require.NoError(t, err)
	require.Len(t, res.Results, 10)
	assert.True(t, res.Corrected)
	assert.Equal(t, int64(10), res.TotalPulls)

	for i, r := range res.Results[:9] {
		assert.Equal(t, model.RarityCommon, r.Rarity)
		assert.Equal(t, int64(i+1), r.PullNumber)
	}
	last := res.Results[9]
	assert.Equal(t, model.RarityRare, last.Rarity)
	assert.True(t, last.IsPity)

	inv, err := env.svc.Inventory(ctx, 3)
	require.NoError(t, err)
	require.Len(t, inv, 2)
	assert.Equal(t, model.RarityRare, inv[0].Rarity)
	assert.Equal(t, int64(1), inv[0].Quantity)
	assert.Equal(t, int64(101), inv[1].ItemID)
	assert.Equal(t, int64(9), inv[1].Quantity)
}

func TestGachaService_PullBatch(t *testing.T) {
	env := newTestService(t, gacha.NewRandomSource(42))
	ctx := context.Background()

	res, err := env.svc.PullBatch(ctx, 5, 2, 25)
	require.NoError(t, err)
	assert.Len(t, res.Results, 25)
	assert.False(t, res.Corrected)
	assert.Equal(t, int64(25), res.TotalPulls)

	res, err = env.svc.PullBatch(ctx, 5, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(28), res.TotalPulls)

	_, err = env.svc.PullBatch(ctx, 5, 1, 0)
	assert.True(t, errors.Is(err, gacha.ErrInvalidBatchSize))
	_, err = env.svc.PullBatch(ctx, 5, 1, env.svc.MaxBatchSize()+1)
	assert.True(t, errors.Is(err, gacha.ErrInvalidBatchSize))
}

func TestGachaService_HistoryAndStats(t *testing.T) {
	env := newTestService(t, constRand(0))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := env.svc.Pull(ctx, 11, 1)
		require.NoError(t, err)
	}
	_, err := env.svc.Pull(ctx, 11, 2)
	require.NoError(t, err)

	history, err := env.svc.History(ctx, 11, 0)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, int64(4), history[0].PullNumber)
	assert.Equal(t, "Midnight Garden", history[0].BannerName)
	assert.Equal(t, "Shadow Petal", history[0].ItemName)
	assert.Equal(t, "Spring Blossom", history[3].BannerName)

	history, err = env.svc.History(ctx, 11, 2)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	stats, err := env.svc.Stats(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalPulls)
	assert.Equal(t, int64(4), stats.CommonCount)
	assert.Equal(t, LuckUnlucky, stats.LuckRating)
	assert.Equal(t, 4, stats.PityCounterEpic)
	assert.Equal(t, 4, stats.PityCounterLegendary)
}

func TestGachaService_EmptyUser(t *testing.T) {
	env := newTestService(t, nil)
	ctx := context.Background()

	inv, err := env.svc.Inventory(ctx, 404)
	require.NoError(t, err)
	assert.Empty(t, inv)

	history, err := env.svc.History(ctx, 404, 10)
	require.NoError(t, err)
	assert.Empty(t, history)

	stats, err := env.svc.Stats(ctx, 404)
	require.NoError(t, err)
	assert.Equal(t, LuckNoPulls, stats.LuckRating)
	assert.Zero(t, stats.PityCounterEpic)
}

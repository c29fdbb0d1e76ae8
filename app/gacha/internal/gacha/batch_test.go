package gacha

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawBatch_CorrectsAllCommonTen(t *testing.T) {
	store := newFakeStore()
	obs := &countingObserver{}
	e := newTestEngine(t, store, NewRandomSource(1), WithObserver(obs))

	res, err := e.DrawBatch(context.Background(), 1, 1, commonOnlyPool(), 10)
	require.NoError(t, err)
	require.Len(t, res.Results, 10)

	assert.Equal(t, BatchCorrectedLastSlot, res.Outcome)
	require.NotNil(t, res.Correction)
	assert.Equal(t, int64(1), res.Correction.Original.ID)
	assert.Equal(t, model.RarityRare, res.Correction.Replacement.Rarity)
	assert.Equal(t, int64(10), res.Correction.PullNumber)

	last := res.Results[9]
	assert.Equal(t, model.RarityRare, last.Item.Rarity)
	assert.True(t, last.WasPity)
	assert.Equal(t, int64(10), last.PullNumber)
	for i, r := range res.Results[:9] {
		assert.Equal(t, model.RarityCommon, r.Item.Rarity, "slot %d", i)
		assert.Equal(t, int64(i+1), r.PullNumber)
	}

	history := store.history(1)
	require.Len(t, history, 10)
	assert.Equal(t, int64(2), history[9].ItemID)
	assert.Equal(t, int64(10), history[9].PullNumber)
	assert.Equal(t, int64(9), store.quantity(1, 1))
	assert.Equal(t, int64(1), store.quantity(1, 2))

	assert.Equal(t, 10, obs.draws)
	assert.Equal(t, 1, obs.corrections)
}

func TestDrawBatch_NoCorrectionOutsideTen(t *testing.T) {
	for _, count := range []int{1, 9, 11} {
		store := newFakeStore()
		e := newTestEngine(t, store, NewRandomSource(1))

		res, err := e.DrawBatch(context.Background(), 1, 1, commonOnlyPool(), count)
		require.NoError(t, err)
		assert.Equal(t, BatchCommitted, res.Outcome, "count %d", count)
		assert.Nil(t, res.Correction)
		for _, r := range res.Results {
			assert.Equal(t, model.RarityCommon, r.Item.Rarity)
		}
		assert.Equal(t, int64(count), store.quantity(1, 1))
	}
}

func TestDrawBatch_NoCorrectionWhenRarePresent(t *testing.T) {
	store := newFakeStore()
	// 第一抽落在 Rare 区间，其余落在 Common 区间
	rng := &scriptedRand{vals: []float64{0.9, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1}}
	e := newTestEngine(t, store, rng)
	pool := []model.Item{item(1, model.RarityCommon, 80), item(2, model.RarityRare, 20)}

	res, err := e.DrawBatch(context.Background(), 1, 1, pool, 10)
	require.NoError(t, err)
	assert.Equal(t, BatchCommitted, res.Outcome)
	assert.Equal(t, model.RarityRare, res.Results[0].Item.Rarity)
	assert.Equal(t, model.RarityCommon, res.Results[9].Item.Rarity)
}

func TestDrawBatch_CorrectionWithoutRareFallsBack(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(t, store, NewRandomSource(1))
	pool := []model.Item{item(1, model.RarityCommon, 1)}

	res, err := e.DrawBatch(context.Background(), 1, 1, pool, 10)
	require.NoError(t, err)
	assert.Equal(t, BatchCorrectedLastSlot, res.Outcome)
	// 卡池没有 Rare 时回落为按权重抽取，持有数仍与流水一致
	assert.Equal(t, int64(10), store.quantity(1, 1))
	assert.True(t, res.Results[9].WasPity)
}

func TestDrawBatch_SampleScenario(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(t, store, NewRandomSource(2024))
	pool := []model.Item{
		item(1, model.RarityCommon, 80),
		item(2, model.RarityRare, 15),
		item(3, model.RarityEpic, 4),
		item(4, model.RarityLegendary, 1),
	}

	res, err := e.DrawBatch(context.Background(), 7, 1, pool, 10)
	require.NoError(t, err)

	history := store.history(7)
	require.Len(t, history, 10)
	for i, rec := range history {
		assert.Equal(t, int64(i+1), rec.PullNumber)
	}
	assert.True(t, hasRareOrAbove(res.Results))
	assertHoldingsMatchLedger(t, store, 7, pool)
}

func TestDrawBatch_ConflictRerunsWholeBatch(t *testing.T) {
	store := newFakeStore()
	store.conflicts = 1
	e := newTestEngine(t, store, NewRandomSource(1))

	res, err := e.DrawBatch(context.Background(), 1, 1, commonOnlyPool(), 10)
	require.NoError(t, err)
	assert.Len(t, res.Results, 10)
	assert.Len(t, store.history(1), 10)
}

func TestDrawBatch_InvalidCount(t *testing.T) {
	e := newTestEngine(t, newFakeStore(), nil)
	for _, count := range []int{0, -1, 101} {
		_, err := e.DrawBatch(context.Background(), 1, 1, commonOnlyPool(), count)
		assert.True(t, errors.Is(err, ErrInvalidBatchSize), "count %d", count)
	}
}

func TestDrawBatch_FailurePropagates(t *testing.T) {
	store := newFakeStore()
	store.failure = errors.New("disk full")
	e := newTestEngine(t, store, nil)

	_, err := e.DrawBatch(context.Background(), 1, 1, commonOnlyPool(), 10)
	assert.True(t, IsFailure(err))
}

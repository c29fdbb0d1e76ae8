package repository

import (
	"context"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/dao"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/gacha"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/pkg/database/postgres"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
)

const userLockNamespace = "gacha:draw:"

type pgDrawRepository struct {
	db       *postgres.Client
	ledger   *dao.LedgerDAO
	holdings *dao.HoldingsDAO
	logger   logger.Logger
}

// NewPostgresDrawRepository 基于 PostgreSQL 的抽卡仓储
// 每个玩家作用域是一个 read committed 事务，并持有该玩家的 advisory lock
func NewPostgresDrawRepository(
	db *postgres.Client,
	ledger *dao.LedgerDAO,
	holdings *dao.HoldingsDAO,
	l logger.Logger,
) DrawRepository {
	return &pgDrawRepository{
		db:       db,
		ledger:   ledger,
		holdings: holdings,
		logger:   l.Named("repository.draw"),
	}
}

// userLockKey 玩家 advisory lock 的 key
func userLockKey(userID int64) int64 {
	return int64(xxhash.Sum64String(userLockNamespace + strconv.FormatInt(userID, 10)))
}

func (r *pgDrawRepository) WithUserScope(ctx context.Context, userID int64, fn func(ctx context.Context, scope gacha.Scope) error) error {
	opts := postgres.TxOptions{IsoLevel: postgres.TxIsolationLevelReadCommitted}
	err := r.db.WithTx(ctx, opts, func(tx postgres.Tx) error {
		if err := r.ledger.LockUser(ctx, tx, userLockKey(userID)); err != nil {
			return err
		}
		return fn(ctx, &pgScope{repo: r, tx: tx})
	})
	if err = classify(err); err != nil && gacha.IsFailure(err) {
		r.logger.ErrorContext(ctx, "draw transaction failed",
			"user_id", userID,
			"error", err,
		)
	}
	return err
}

func (r *pgDrawRepository) ListHistory(ctx context.Context, userID int64, limit int) ([]model.DrawRecord, error) {
	out, err := r.ledger.ListByUser(ctx, r.db.Primary(), userID, limit)
	return out, classify(err)
}

func (r *pgDrawRepository) ListHoldings(ctx context.Context, userID int64) ([]model.HoldingsEntry, error) {
	out, err := r.holdings.ListByUser(ctx, r.db.Primary(), userID)
	return out, classify(err)
}

func (r *pgDrawRepository) CountDraws(ctx context.Context, userID int64) (model.RarityCounts, error) {
	counts, err := r.ledger.CountByRarity(ctx, r.db.Primary(), userID)
	return counts, classify(err)
}

func (r *pgDrawRepository) PityState(ctx context.Context, userID int64) (model.PityState, error) {
	latest, lastEpic, lastLegendary, err := r.ledger.PityMarks(ctx, r.db.Primary(), userID)
	if err != nil {
		return model.PityState{}, classify(err)
	}
	// PullNumber 连续，差值即为之后的抽数
	return model.PityState{
		SinceEpic:      int(latest - lastEpic),
		SinceLegendary: int(latest - lastLegendary),
	}, nil
}

func (r *pgDrawRepository) FindHoldingsDrift(ctx context.Context, limit int) ([]model.HoldingsDrift, error) {
	out, err := r.holdings.FindDrift(ctx, r.db.Primary(), limit)
	return out, classify(err)
}

func (r *pgDrawRepository) RepairHoldings(ctx context.Context, drift []model.HoldingsDrift) error {
	if len(drift) == 0 {
		return nil
	}
	err := r.db.WithTx(ctx, postgres.TxOptions{}, func(tx postgres.Tx) error {
		for _, d := range drift {
			if err := r.ledger.LockUser(ctx, tx, userLockKey(d.UserID)); err != nil {
				return err
			}
			qty, err := r.holdings.SyncWithLedger(ctx, tx, d.UserID, d.ItemID)
			if err != nil {
				return err
			}
			if qty != d.LedgerCount {
				r.logger.Info("ledger moved since drift scan",
					"user_id", d.UserID,
					"item_id", d.ItemID,
					"scanned", d.LedgerCount,
					"repaired", qty,
				)
			}
		}
		return nil
	})
	return classify(err)
}

// pgScope 单个事务内的流水与持有数操作
type pgScope struct {
	repo *pgDrawRepository
	tx   postgres.Tx
}

func (s *pgScope) Ledger() gacha.Ledger     { return s }
func (s *pgScope) Holdings() gacha.Holdings { return (*pgHoldings)(s) }

func (s *pgScope) AppendDraw(ctx context.Context, userID, bannerID int64, item model.Item, pullNumber int64) (*model.DrawRecord, error) {
	rec := &model.DrawRecord{
		UserID:     userID,
		BannerID:   bannerID,
		ItemID:     item.ID,
		Rarity:     item.Rarity,
		PullNumber: pullNumber,
	}
	if err := s.repo.ledger.Insert(ctx, s.tx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *pgScope) LatestPullNumber(ctx context.Context, userID int64) (int64, error) {
	return s.repo.ledger.LatestPullNumber(ctx, s.tx, userID)
}

func (s *pgScope) HistoryForBanner(ctx context.Context, userID, bannerID int64) ([]model.DrawRecord, error) {
	return s.repo.ledger.ListByBanner(ctx, s.tx, userID, bannerID)
}

func (s *pgScope) OverwriteLatestItem(ctx context.Context, userID int64, item model.Item) error {
	n, err := s.repo.ledger.UpdateLatestItem(ctx, s.tx, userID, item)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Wrapf(gacha.ErrNoDrawToCorrect, "user %d", userID)
	}
	return nil
}

type pgHoldings pgScope

func (h *pgHoldings) Increment(ctx context.Context, userID, itemID int64) error {
	return h.repo.holdings.Increment(ctx, h.tx, userID, itemID)
}

func (h *pgHoldings) Decrement(ctx context.Context, userID, itemID int64) error {
	return h.repo.holdings.Decrement(ctx, h.tx, userID, itemID)
}

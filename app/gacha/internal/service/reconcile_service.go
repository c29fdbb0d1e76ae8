package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/metrics"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/repository"
	"github.com/lk2023060901/xdooria-gacha/pkg/config"
	"github.com/lk2023060901/xdooria-gacha/pkg/database/redis"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/robfig/cron/v3"
)

const reconcileLockKey = "gacha:reconcile"

// ReconcileConfig 持有数对账任务配置
type ReconcileConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Schedule cron 表达式，支持 @every 语法
	Schedule string `mapstructure:"schedule" validate:"required"`
	// DryRun 只报告差异，不改写持有数
	DryRun     bool          `mapstructure:"dry_run"`
	BatchLimit int           `mapstructure:"batch_limit" validate:"gt=0"`
	LockTTL    time.Duration `mapstructure:"lock_ttl" validate:"gt=0"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// DefaultReconcileConfig 默认配置
func DefaultReconcileConfig() *ReconcileConfig {
	return &ReconcileConfig{
		Enabled:    false,
		Schedule:   "@every 10m",
		BatchLimit: 1000,
		LockTTL:    5 * time.Minute,
		Timeout:    2 * time.Minute,
	}
}

// ReconcileReport 单次对账结果
type ReconcileReport struct {
	Found    int  `json:"found"`
	Repaired int  `json:"repaired"`
	Skipped  bool `json:"skipped"`
}

// ReconcileService 定期比对持有数与流水计数
// 多实例部署时通过 Redis 锁保证同一时刻只有一个实例执行
type ReconcileService struct {
	config  *ReconcileConfig
	draws   repository.DrawRepository
	rdb     *redis.Client // 可为 nil
	metrics *metrics.GachaMetrics
	logger  logger.Logger
	cron    *cron.Cron
}

// NewReconcileService 创建对账服务
func NewReconcileService(
	cfg *ReconcileConfig,
	draws repository.DrawRepository,
	rdb *redis.Client,
	m *metrics.GachaMetrics,
	l logger.Logger,
) (*ReconcileService, error) {
	newCfg, err := config.MergeConfig(DefaultReconcileConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge reconcile config: %w", err)
	}
	if err := config.NewValidator().Validate(newCfg); err != nil {
		return nil, err
	}

	s := &ReconcileService{
		config:  newCfg,
		draws:   draws,
		rdb:     rdb,
		metrics: m,
		logger:  l.Named("service.reconcile"),
	}
	cl := cronLogger{s.logger}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := s.cron.AddFunc(newCfg.Schedule, s.runScheduled); err != nil {
		return nil, errors.Wrapf(err, "invalid reconcile schedule %q", newCfg.Schedule)
	}
	return s, nil
}

// Start 启动定时任务，未启用时直接返回
func (s *ReconcileService) Start() error {
	if !s.config.Enabled {
		s.logger.Info("reconcile disabled")
		return nil
	}
	s.cron.Start()
	s.logger.Info("reconcile scheduled", "schedule", s.config.Schedule)
	return nil
}

// Stop 停止调度，最多等待 Timeout 让进行中的任务结束
func (s *ReconcileService) Stop() error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-time.After(s.config.Timeout):
		return errors.New("reconcile: timed out waiting for running job")
	}
}

func (s *ReconcileService) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("reconcile failed", "error", err)
	}
}

// RunOnce 执行一次对账；其他实例持有锁时跳过
func (s *ReconcileService) RunOnce(ctx context.Context) (*ReconcileReport, error) {
	if s.rdb == nil {
		return s.reconcile(ctx)
	}

	var report *ReconcileReport
	err := s.rdb.WithLock(ctx, reconcileLockKey, s.config.LockTTL, func(ctx context.Context) error {
		var err error
		report, err = s.reconcile(ctx)
		return err
	})
	if errors.Is(err, redis.ErrLockFailed) {
		s.logger.Debug("reconcile skipped, lock held elsewhere")
		return &ReconcileReport{Skipped: true}, nil
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *ReconcileService) reconcile(ctx context.Context) (*ReconcileReport, error) {
	start := time.Now()
	drift, err := s.draws.FindHoldingsDrift(ctx, s.config.BatchLimit)
	if err != nil {
		return nil, errors.Wrap(err, "find holdings drift")
	}
	s.metrics.SetHoldingsDrift(len(drift))

	report := &ReconcileReport{Found: len(drift)}
	if len(drift) == 0 {
		s.logger.Debug("holdings consistent with ledger", "elapsed", time.Since(start))
		return report, nil
	}

	for _, d := range drift {
		s.logger.Warn("holdings drift",
			"user_id", d.UserID,
			"item_id", d.ItemID,
			"quantity", d.Quantity,
			"ledger_count", d.LedgerCount,
		)
	}
	if s.config.DryRun {
		return report, nil
	}

	if err := s.draws.RepairHoldings(ctx, drift); err != nil {
		return report, errors.Wrap(err, "repair holdings")
	}
	report.Repaired = len(drift)
	s.metrics.SetHoldingsDrift(0)
	s.logger.Info("holdings repaired",
		"count", report.Repaired,
		"elapsed", time.Since(start),
	)
	return report, nil
}

// cronLogger 将 cron 日志转到服务日志
type cronLogger struct {
	l logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

package sim

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/gacha"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/service"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/robot/internal/client"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/robot/internal/workflow"
	"github.com/lk2023060901/xdooria-gacha/pkg/config"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/lk2023060901/xdooria-gacha/pkg/security"
	"github.com/lk2023060901/xdooria-gacha/pkg/util/conc"
)

// OnlineConfig HTTP 压测配置
type OnlineConfig struct {
	BaseURL      string `validate:"required,url"`
	JWTSecret    string `validate:"required"`
	Users        int    `validate:"gt=0"`
	FirstUserID  int64  `validate:"gt=0"`
	PullsPerUser int    `validate:"gt=0"`
	BatchSize    int    `validate:"gte=0,lte=100"` // 0 表示逐次单抽；每个玩家先做一次十连
	BannerID     int64  `validate:"gt=0"`
	Workers      int    `validate:"gt=0"`
	Timeout      time.Duration
}

// RunOnline 模拟多个玩家并发调用 HTTP 接口，并校验每个玩家的 PullNumber 连续
func RunOnline(ctx context.Context, cfg *OnlineConfig, l logger.Logger) (*Report, error) {
	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	l = l.Named("robot.online")

	jwtManager, err := security.NewJWTManager(&security.JWTConfig{SecretKey: cfg.JWTSecret})
	if err != nil {
		return nil, err
	}

	report := &Report{}
	pool := conc.NewPool[struct{}](cfg.Workers)
	defer pool.Release()

	start := time.Now()
	futures := make([]*conc.Future[struct{}], 0, cfg.Users)
	for i := 0; i < cfg.Users; i++ {
		userID := cfg.FirstUserID + int64(i)
		futures = append(futures, pool.Submit(func() (struct{}, error) {
			token, err := jwtManager.GenerateUserToken(userID)
			if err != nil {
				return struct{}{}, err
			}
			c := client.NewGachaClient(cfg.BaseURL, token, cfg.Timeout, l)
			return struct{}{}, newPlayer(userID, c, cfg, report, l).run(ctx)
		}))
	}

	var firstErr error
	for _, f := range futures {
		if _, err := f.Await(); err != nil {
			report.FailedUsers.Inc()
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		report.Users.Inc()
	}
	report.elapsed.Store(time.Since(start))
	return report, firstErr
}

// player 单个玩家的抽卡流程
type player struct {
	userID int64
	client *client.GachaClient
	cfg    *OnlineConfig
	report *Report
	logger logger.Logger

	baseline int64 // 开始前已有的抽数
	pulled   int64
}

func newPlayer(userID int64, c *client.GachaClient, cfg *OnlineConfig, report *Report, l logger.Logger) *player {
	return &player{
		userID: userID,
		client: c,
		cfg:    cfg,
		report: report,
		logger: l,
	}
}

func (p *player) run(ctx context.Context) error {
	w := workflow.New("user-"+strconv.FormatInt(p.userID, 10), p.logger,
		workflow.WithRetryable(func(err error) bool { return errors.Is(err, client.ErrRetryable) }),
	)
	w.AddStep("check_banner", p.checkBanner)
	w.AddStep("baseline", p.loadBaseline)

	remaining := p.cfg.PullsPerUser
	if remaining >= gacha.GuaranteedBatchSize {
		w.AddStep("pull_ten", p.pullTen)
		remaining -= gacha.GuaranteedBatchSize
	}
	for i := 0; remaining > 0; i++ {
		n := 1
		if p.cfg.BatchSize > 1 {
			n = min(p.cfg.BatchSize, remaining)
		}
		w.AddStep(fmt.Sprintf("pull_%d", i), p.pullStep(n))
		remaining -= n
	}

	w.AddStep("verify_history", p.verifyHistory)
	w.AddStep("verify_stats", p.verifyStats)
	return w.Run(ctx)
}

func (p *player) checkBanner(ctx context.Context) error {
	banners, err := p.client.Banners(ctx)
	if err != nil {
		return err
	}
	for _, b := range banners {
		if b.ID == p.cfg.BannerID {
			return nil
		}
	}
	return fmt.Errorf("banner %d is not active", p.cfg.BannerID)
}

func (p *player) loadBaseline(ctx context.Context) error {
	stats, err := p.client.Stats(ctx)
	if err != nil {
		return err
	}
	p.baseline = stats.TotalPulls
	return nil
}

func (p *player) pullTen(ctx context.Context) error {
	res, err := p.client.PullTen(ctx, p.cfg.BannerID)
	if err != nil {
		return err
	}
	p.recordBatch(res)
	return nil
}

func (p *player) pullStep(n int) workflow.StepFunc {
	return func(ctx context.Context) error {
		if n == 1 {
			res, err := p.client.Pull(ctx, p.cfg.BannerID)
			if err != nil {
				return err
			}
			p.record(*res)
			return nil
		}
		res, err := p.client.PullBatch(ctx, p.cfg.BannerID, n)
		if err != nil {
			return err
		}
		p.recordBatch(res)
		return nil
	}
}

func (p *player) recordBatch(res *service.BatchPullResult) {
	for _, r := range res.Results {
		p.record(r)
	}
	if res.Corrected {
		p.report.Corrections.Inc()
	}
}

func (p *player) record(r service.PullResult) {
	p.pulled++
	if want := p.baseline + p.pulled; r.PullNumber != want {
		p.report.Gaps.Inc()
		p.logger.Warn("unexpected pull number",
			"user_id", p.userID,
			"want", want,
			"got", r.PullNumber,
		)
	}
	p.report.record(r.Rarity, r.IsPity)
}

// verifyHistory 本轮新增的历史必须按 PullNumber 连续倒序
func (p *player) verifyHistory(ctx context.Context) error {
	limit := int(min(p.pulled, service.MaxHistoryLimit))
	history, err := p.client.History(ctx, limit)
	if err != nil {
		return err
	}
	if len(history) != limit {
		return fmt.Errorf("history has %d entries, want %d", len(history), limit)
	}
	want := p.baseline + p.pulled
	for _, h := range history {
		if h.PullNumber != want {
			p.report.Gaps.Inc()
			return fmt.Errorf("history gap: pull number %d, want %d", h.PullNumber, want)
		}
		want--
	}
	return nil
}

func (p *player) verifyStats(ctx context.Context) error {
	stats, err := p.client.Stats(ctx)
	if err != nil {
		return err
	}
	if want := p.baseline + p.pulled; stats.TotalPulls != want {
		return fmt.Errorf("total pulls %d, want %d", stats.TotalPulls, want)
	}
	return nil
}

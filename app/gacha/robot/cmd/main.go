package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/robot/internal/sim"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/spf13/pflag"
)

var (
	mode      = pflag.String("mode", "offline", "运行模式: online 调用 HTTP 接口, offline 进程内模拟")
	addr      = pflag.String("addr", "http://localhost:8080", "抽卡服务地址 (online)")
	jwtSecret = pflag.String("jwt-secret", "change-me", "JWT 密钥，需与服务配置一致 (online)")
	firstUID  = pflag.Int64("first-uid", 10001, "第一个模拟玩家 ID (online)")
	users     = pflag.Int("users", 100, "模拟玩家数")
	pulls     = pflag.Int("pulls", 100, "每个玩家的抽数")
	batch     = pflag.Int("batch", 10, "每次连抽数，0 或 1 为单抽")
	bannerID  = pflag.Int64("banner", 1, "卡池 ID")
	workers   = pflag.Int("workers", 16, "并发数")
	seed      = pflag.Uint64("seed", 0, "随机种子，0 使用系统熵 (offline)")
	catalog   = pflag.String("catalog", "", "卡池目录文件，为空使用内置目录 (offline)")
	timeout   = pflag.Duration("timeout", 10*time.Second, "单次请求超时 (online)")
	verbose   = pflag.Bool("verbose", false, "输出调试日志")
)

func main() {
	pflag.Parse()

	level := logger.InfoLevel
	if *verbose {
		level = logger.DebugLevel
	}
	l, err := logger.New(&logger.Config{
		Level:         level,
		Format:        logger.ConsoleFormat,
		EnableConsole: true,
	})
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var report *sim.Report
	switch *mode {
	case "online":
		l.Info("starting online robot", "addr", *addr, "users", *users, "pulls", *pulls)
		report, err = sim.RunOnline(ctx, &sim.OnlineConfig{
			BaseURL:      *addr,
			JWTSecret:    *jwtSecret,
			Users:        *users,
			FirstUserID:  *firstUID,
			PullsPerUser: *pulls,
			BatchSize:    *batch,
			BannerID:     *bannerID,
			Workers:      *workers,
			Timeout:      *timeout,
		}, l)
	case "offline":
		l.Info("starting offline simulation", "users", *users, "pulls", *pulls, "banner", *bannerID)
		report, err = sim.RunOffline(ctx, &sim.OfflineConfig{
			Users:        *users,
			PullsPerUser: *pulls,
			BatchSize:    *batch,
			BannerID:     *bannerID,
			Workers:      *workers,
			Seed:         *seed,
			CatalogPath:  *catalog,
		}, l)
	default:
		l.Error("unknown mode", "mode", *mode)
		os.Exit(2)
	}

	if report != nil {
		report.Log(l)
	}
	if err != nil {
		l.Error("robot finished with errors", "error", err)
		os.Exit(1)
	}
	if report.Gaps.Load() > 0 || report.Drift.Load() > 0 {
		l.Error("consistency check failed", "gaps", report.Gaps.Load(), "drift", report.Drift.Load())
		os.Exit(1)
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/lk2023060901/xdooria-gacha/pkg/util/conc"
)

var ErrAppAlreadyRunning = errors.New("app: application is already running")

// Application 应用生命周期接口
type Application interface {
	Run() error
	Shutdown() error
	Logger() logger.Logger
}

// Server 可启动/停止的服务（HTTP、指标端口等），Start 不应阻塞
type Server interface {
	Start() error
	Stop() error
}

// GracefulServer 支持优雅停止的服务
type GracefulServer interface {
	Server
	GracefulStop() error
}

// Closer 资源清理接口（DB、Redis、Tracer 等）
type Closer interface {
	Close() error
}

// BaseApp Application 的默认实现
type BaseApp struct {
	opts    Options
	logger  logger.Logger
	servers []Server
	closers []Closer

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex

	started atomic.Bool
	closed  atomic.Bool
}

// NewBaseApp 创建 BaseApp
func NewBaseApp(opts ...Option) *BaseApp {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &BaseApp{
		opts:   o,
		logger: o.Logger.Named("app"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Logger 应用主日志
func (a *BaseApp) Logger() logger.Logger {
	return a.logger
}

// Context 应用级 context，Shutdown 时取消
func (a *BaseApp) Context() context.Context {
	return a.ctx
}

// Run 启动所有服务并阻塞到收到退出信号
func (a *BaseApp) Run() error {
	if !a.started.CompareAndSwap(false, true) {
		return ErrAppAlreadyRunning
	}

	info := GetInfo()
	fmt.Println(info.String())
	a.logger.Info("application starting",
		"name", a.opts.Name,
		"version", info.Version,
		"commit", info.GitCommit,
		"go_version", info.GoVersion,
		"id", a.opts.ID,
	)

	for _, srv := range a.servers {
		if err := srv.Start(); err != nil {
			a.logger.Error("failed to start server", "error", err)
			_ = a.Shutdown()
			return err
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		a.logger.Info("received signal, shutting down", "signal", sig.String())
	case <-a.ctx.Done():
		a.logger.Info("context cancelled, shutting down")
	}

	return a.Shutdown()
}

// Shutdown 并发停止服务，超时后按注册逆序关闭资源
func (a *BaseApp) Shutdown() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.cancel()
	a.logger.Info("application shutting down")

	futures := make([]*conc.Future[struct{}], 0, len(a.servers))
	for _, srv := range a.servers {
		s := srv
		futures = append(futures, conc.Go(func() (struct{}, error) {
			var err error
			if gs, ok := s.(GracefulServer); ok {
				err = gs.GracefulStop()
			} else {
				err = s.Stop()
			}
			if err != nil {
				a.logger.Error("failed to stop server", "error", err)
			}
			return struct{}{}, err
		}))
	}

	wait := conc.Go(func() (struct{}, error) {
		return struct{}{}, conc.AwaitAll(futures...)
	})

	select {
	case <-wait.Inner():
		a.logger.Info("all servers stopped")
	case <-time.After(a.opts.StopTimeout):
		a.logger.Warn("shutdown timeout, forcing exit", "timeout", a.opts.StopTimeout)
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Error("failed to close component", "error", err)
		}
	}

	a.logger.Info("application exited")
	_ = a.logger.Sync()
	return nil
}

// AppendServer 注册服务
func (a *BaseApp) AppendServer(srv ...Server) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.servers = append(a.servers, srv...)
}

// AppendCloser 注册资源
func (a *BaseApp) AppendCloser(closer ...Closer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, closer...)
}

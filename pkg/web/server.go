package web

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-gacha/pkg/config"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/lk2023060901/xdooria-gacha/pkg/util/conc"
	"github.com/lk2023060901/xdooria-gacha/pkg/web/metrics"
	"github.com/lk2023060901/xdooria-gacha/pkg/web/middleware"
)

// Server Web 服务，实现 app.Server
type Server struct {
	engine *gin.Engine
	config *Config
	logger logger.Logger

	mu     sync.Mutex
	server *http.Server
}

// ServerOption Server 选项
type ServerOption func(*serverOptions)

type serverOptions struct {
	metrics     *metrics.HTTPMetrics
	panicReport middleware.PanicReporter
	serviceName string
}

// WithMetrics 挂载 HTTP 指标中间件
func WithMetrics(m *metrics.HTTPMetrics) ServerOption {
	return func(o *serverOptions) { o.metrics = m }
}

// WithPanicReporter panic 时额外上报（如 Sentry）
func WithPanicReporter(fn middleware.PanicReporter) ServerOption {
	return func(o *serverOptions) { o.panicReport = fn }
}

// WithServiceName 追踪中的服务名
func WithServiceName(name string) ServerOption {
	return func(o *serverOptions) { o.serviceName = name }
}

// NewServer 创建 Web 服务并挂载基础中间件
func NewServer(cfg *Config, l logger.Logger, opts ...ServerOption) (*Server, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	o := &serverOptions{serviceName: "web"}
	for _, opt := range opts {
		opt(o)
	}

	gin.SetMode(newCfg.Mode)
	engine := gin.New()
	engine.Use(middleware.Recovery(l, o.panicReport))
	engine.Use(middleware.Tracing(o.serviceName))
	engine.Use(middleware.Logger(l))
	if o.metrics != nil {
		engine.Use(middleware.Metrics(o.metrics))
	}
	if newCfg.EnableCORS {
		engine.Use(middleware.CORS(newCfg.CORS))
	}

	return &Server{
		engine: engine,
		config: newCfg,
		logger: l.Named("web.server"),
	}, nil
}

// Router 返回 Gin 引擎，用于注册路由
func (s *Server) Router() *gin.Engine {
	return s.engine
}

// Handler 返回 http.Handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start 在后台监听，立即返回
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return ErrServerAlreadyStarted
	}

	srv := &http.Server{
		Addr:           s.config.Addr,
		Handler:        s.engine,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
	s.server = srv

	conc.Go(func() (struct{}, error) {
		var err error
		if s.config.EnableTLS {
			s.logger.Info("starting https server", "addr", srv.Addr)
			err = srv.ListenAndServeTLS(s.config.CertFile, s.config.KeyFile)
		} else {
			s.logger.Info("starting http server", "addr", srv.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server startup failed", "error", err)
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	return nil
}

// Stop 优雅关闭
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.mu.Unlock()

	if srv == nil {
		return ErrServerNotStarted
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server exited")
	return nil
}

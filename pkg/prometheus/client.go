package prometheus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/lk2023060901/xdooria-gacha/pkg/config"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/lk2023060901/xdooria-gacha/pkg/util/conc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector 采集器，由业务指标模块实现
type Collector interface {
	Register(registerer prometheus.Registerer) error
}

// Client Prometheus 客户端，持有独立 Registry 并可选暴露 HTTP 端口
type Client struct {
	config     *Config
	registry   *prometheus.Registry
	httpServer *http.Server
	logger     logger.Logger
	closed     atomic.Bool
}

// New 创建客户端
func New(cfg *Config, l logger.Logger) (*Client, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:   merged,
		registry: prometheus.NewRegistry(),
		logger:   l.Named("prometheus"),
	}
	if merged.EnableGoCollector {
		c.registry.MustRegister(collectors.NewGoCollector())
	}
	if merged.EnableProcessCollector {
		c.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return c, nil
}

// Registry 底层 Registry
func (c *Client) Registry() *prometheus.Registry {
	return c.registry
}

// Register 注册业务采集器
func (c *Client) Register(collectors ...Collector) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	for _, col := range collectors {
		if err := col.Register(c.registry); err != nil {
			return err
		}
	}
	return nil
}

// Handler 指标 HTTP Handler
func (c *Client) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Start 启动独立指标端口（未启用时为空操作）
func (c *Client) Start() error {
	if !c.config.HTTPServer.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(c.config.HTTPServer.Path, c.Handler())
	c.httpServer = &http.Server{
		Addr:         c.config.HTTPServer.Addr,
		Handler:      mux,
		ReadTimeout:  c.config.HTTPServer.Timeout,
		WriteTimeout: c.config.HTTPServer.Timeout,
	}

	srv := c.httpServer
	conc.Go(func() (struct{}, error) {
		c.logger.Info("metrics server listening", "addr", srv.Addr, "path", c.config.HTTPServer.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("metrics server stopped unexpectedly", "error", err)
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	return nil
}

// Stop 关闭指标端口
func (c *Client) Stop() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.httpServer.Shutdown(ctx)
}

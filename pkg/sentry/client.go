package sentry

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/lk2023060901/xdooria-gacha/pkg/config"
)

// Level 事件级别
type Level = sentry.Level

const (
	LevelInfo    = sentry.LevelInfo
	LevelWarning = sentry.LevelWarning
	LevelError   = sentry.LevelError
	LevelFatal   = sentry.LevelFatal
)

// Stats 统计信息
type Stats struct {
	EventsTotal    uint64
	EventsCaptured uint64
	EventsDropped  uint64
}

// Client Sentry 客户端，持有独立 Hub
// DSN 为空时 SDK 不会发送任何事件，调用方无需判断是否启用
type Client struct {
	hub    *sentry.Hub
	config *Config
	closed atomic.Bool

	stats struct {
		eventsTotal    atomic.Uint64
		eventsCaptured atomic.Uint64
		eventsDropped  atomic.Uint64
	}
}

// New 创建 Sentry 客户端
func New(cfg *Config) (*Client, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		merged.transport = cfg.transport
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	client, err := sentry.NewClient(merged.toClientOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create sentry client: %w", err)
	}

	hub := sentry.NewHub(client, sentry.NewScope())
	hub.ConfigureScope(func(scope *sentry.Scope) {
		for key, value := range merged.Tags {
			scope.SetTag(key, value)
		}
	})

	return &Client{hub: hub, config: merged}, nil
}

// Enabled 是否配置了 DSN
func (c *Client) Enabled() bool {
	return c.config.DSN != ""
}

// CaptureError 携带标签上报错误
func (c *Client) CaptureError(err error, tags map[string]string) *sentry.EventID {
	if err == nil || c.closed.Load() {
		return nil
	}

	var eventID *sentry.EventID
	c.hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		eventID = c.hub.CaptureException(err)
	})
	c.count(eventID)
	return eventID
}

// CaptureMessage 上报消息
func (c *Client) CaptureMessage(message string, level Level, tags map[string]string) *sentry.EventID {
	if c.closed.Load() {
		return nil
	}

	var eventID *sentry.EventID
	c.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		eventID = c.hub.CaptureMessage(message)
	})
	c.count(eventID)
	return eventID
}

// RecoverWithContext 上报 panic（不重新抛出）
func (c *Client) RecoverWithContext(ctx context.Context, recovered interface{}) *sentry.EventID {
	if c.closed.Load() {
		return nil
	}
	eventID := c.hub.RecoverWithContext(ctx, recovered)
	c.count(eventID)
	return eventID
}

func (c *Client) count(eventID *sentry.EventID) {
	c.stats.eventsTotal.Add(1)
	if eventID != nil && *eventID != "" {
		c.stats.eventsCaptured.Add(1)
	} else {
		c.stats.eventsDropped.Add(1)
	}
}

// Hub 底层 Hub
func (c *Client) Hub() *sentry.Hub {
	return c.hub
}

// Flush 等待事件上报完成
func (c *Client) Flush(timeout time.Duration) bool {
	return c.hub.Flush(timeout)
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return ErrClientClosed
	}
	c.hub.Flush(c.config.ShutdownTimeout)
	return nil
}

// Stats 统计信息
func (c *Client) Stats() Stats {
	return Stats{
		EventsTotal:    c.stats.eventsTotal.Load(),
		EventsCaptured: c.stats.eventsCaptured.Load(),
		EventsDropped:  c.stats.eventsDropped.Load(),
	}
}

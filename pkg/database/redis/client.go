package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Client Redis 客户端，单机与集群共用 UniversalClient
type Client struct {
	rdb goredis.UniversalClient
	cfg *Config
}

// New 创建客户端并 PING 检查连通性
func New(cfg *Config) (*Client, error) {
	merged, err := mergeConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	opts := &goredis.UniversalOptions{
		Addrs:           merged.Addrs,
		Password:        merged.Password,
		PoolSize:        merged.Pool.PoolSize,
		MinIdleConns:    merged.Pool.MinIdleConns,
		ConnMaxIdleTime: merged.Pool.ConnMaxIdleTime,
		DialTimeout:     merged.Pool.DialTimeout,
		ReadTimeout:     merged.Pool.ReadTimeout,
		WriteTimeout:    merged.Pool.WriteTimeout,
		PoolTimeout:     merged.Pool.PoolTimeout,
	}
	if !merged.IsCluster() {
		opts.DB = merged.DB
	}

	c := &Client{rdb: goredis.NewUniversalClient(opts), cfg: merged}

	ctx, cancel := context.WithTimeout(context.Background(), merged.Pool.DialTimeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		_ = c.rdb.Close()
		return nil, err
	}
	return c, nil
}

// NewFromUniversal 包装已有的 go-redis 客户端
func NewFromUniversal(rdb goredis.UniversalClient, cfg *Config) *Client {
	merged, _ := mergeConfig(cfg)
	return &Client{rdb: rdb, cfg: merged}
}

// Raw 底层 go-redis 客户端
func (c *Client) Raw() goredis.UniversalClient {
	return c.rdb
}

// Key 拼接统一前缀
func (c *Client) Key(key string) string {
	return c.cfg.KeyPrefix + key
}

// Ping 检查连接
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Get 读取字符串值，键不存在返回 ErrNil
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.rdb.Get(ctx, c.Key(key)).Bytes()
	if err != nil {
		return nil, wrapErr(err)
	}
	return b, nil
}

// Set 写入值，ttl 为 0 表示不过期
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return wrapErr(c.rdb.Set(ctx, c.Key(key), value, ttl).Err())
}

// Del 删除键
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.Key(k)
	}
	n, err := c.rdb.Del(ctx, full...).Result()
	return n, wrapErr(err)
}

// Close 关闭客户端
func (c *Client) Close() error {
	return c.rdb.Close()
}

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, goredis.Nil) {
		return ErrNil
	}
	return err
}

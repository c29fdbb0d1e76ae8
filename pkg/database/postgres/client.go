package postgres

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier pgxpool.Pool、pgx.Tx 与 pgx.Conn 共有的查询接口
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ Querier = (*pgxpool.Pool)(nil)
	_ Querier = (pgx.Tx)(nil)
)

// Client PostgreSQL 客户端
type Client struct {
	primary  *pgxpool.Pool
	replicas []*pgxpool.Pool
	cfg      *Config

	replicaIndex atomic.Uint64
}

// New 创建客户端并检查主库连通性；从库连接失败时跳过该从库
func New(cfg *Config) (*Client, error) {
	merged, err := MergeConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	primary, err := createPool(merged, &merged.Primary)
	if err != nil {
		return nil, fmt.Errorf("failed to create primary pool: %w", err)
	}

	c := &Client{primary: primary, cfg: merged}
	for i := range merged.Replicas {
		pool, err := createPool(merged, &merged.Replicas[i])
		if err != nil {
			continue
		}
		c.replicas = append(c.replicas, pool)
	}
	return c, nil
}

// Config 生效配置
func (c *Client) Config() *Config {
	return c.cfg
}

// Primary 主库连接池
func (c *Client) Primary() *pgxpool.Pool {
	return c.primary
}

// Replica 只读连接池
func (c *Client) Replica() *pgxpool.Pool {
	if len(c.replicas) == 0 {
		return c.primary
	}
	if c.cfg.ReplicaLoadBalance == "random" {
		return c.replicas[rand.IntN(len(c.replicas))]
	}
	idx := c.replicaIndex.Add(1)
	return c.replicas[idx%uint64(len(c.replicas))]
}

// Ping 检查主库连接
func (c *Client) Ping(ctx context.Context) error {
	if err := c.primary.Ping(ctx); err != nil {
		return fmt.Errorf("primary ping failed: %w", err)
	}
	return nil
}

// Close 关闭所有连接池
func (c *Client) Close() error {
	c.primary.Close()
	for _, r := range c.replicas {
		r.Close()
	}
	return nil
}

// Stats 主库连接池状态
func (c *Client) Stats() *PoolStats {
	s := c.primary.Stat()
	return &PoolStats{
		AcquireCount:         s.AcquireCount(),
		AcquireDuration:      s.AcquireDuration(),
		AcquiredConns:        s.AcquiredConns(),
		CanceledAcquireCount: s.CanceledAcquireCount(),
		IdleConns:            s.IdleConns(),
		MaxConns:             s.MaxConns(),
		TotalConns:           s.TotalConns(),
	}
}

// WithQueryTimeout 按配置为 ctx 附加查询超时
func (c *Client) WithQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.QueryTimeout > 0 {
		return context.WithTimeout(ctx, c.cfg.QueryTimeout)
	}
	return ctx, func() {}
}

func createPool(cfg *Config, dbCfg *DBConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dbCfg.ConnString(cfg.ConnectTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool config: %w", err)
	}
	poolConfig.MaxConns = cfg.Pool.MaxConns
	poolConfig.MinConns = cfg.Pool.MinConns
	poolConfig.MaxConnLifetime = cfg.Pool.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Pool.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.Pool.HealthCheckPeriod

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

package postgres

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lk2023060901/xdooria-gacha/pkg/config"
)

// DBConfig 单个数据库实例配置
type DBConfig struct {
	Host     string `mapstructure:"host" json:"host" yaml:"host"`
	Port     int    `mapstructure:"port" json:"port" yaml:"port"`
	User     string `mapstructure:"user" json:"user" yaml:"user"`
	Password string `mapstructure:"password" json:"password" yaml:"password"`
	DBName   string `mapstructure:"db_name" json:"db_name" yaml:"db_name"`
	SSLMode  string `mapstructure:"ssl_mode" json:"ssl_mode" yaml:"ssl_mode"` // disable, require, verify-ca, verify-full
}

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxConns          int32         `mapstructure:"max_conns" json:"max_conns" yaml:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns" json:"min_conns" yaml:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime" json:"max_conn_lifetime" yaml:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time" json:"max_conn_idle_time" yaml:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period" json:"health_check_period" yaml:"health_check_period"`
}

// Config PostgreSQL 配置
// 写操作与事务走 Primary；只读查询按 ReplicaLoadBalance 分发到 Replicas，未配置时回落到 Primary
type Config struct {
	Primary  DBConfig   `mapstructure:"primary" json:"primary" yaml:"primary"`
	Replicas []DBConfig `mapstructure:"replicas" json:"replicas,omitempty" yaml:"replicas,omitempty"`

	Pool PoolConfig `mapstructure:"pool" json:"pool" yaml:"pool"`

	ConnectTimeout time.Duration `mapstructure:"connect_timeout" json:"connect_timeout" yaml:"connect_timeout"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout" json:"query_timeout" yaml:"query_timeout"`

	ReplicaLoadBalance string `mapstructure:"replica_load_balance" json:"replica_load_balance,omitempty" yaml:"replica_load_balance,omitempty"` // random, round_robin
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Primary: DBConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			DBName:  "gacha",
			SSLMode: "disable",
		},
		Pool: PoolConfig{
			MaxConns:          25,
			MinConns:          2,
			MaxConnLifetime:   time.Hour,
			MaxConnIdleTime:   30 * time.Minute,
			HealthCheckPeriod: time.Minute,
		},
		ConnectTimeout:     10 * time.Second,
		QueryTimeout:       5 * time.Second,
		ReplicaLoadBalance: "round_robin",
	}
}

// MergeConfig 以默认值补全 cfg
func MergeConfig(cfg *Config) (*Config, error) {
	return config.MergeConfig(DefaultConfig(), cfg)
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if err := c.Primary.validate(); err != nil {
		return fmt.Errorf("invalid primary config: %w", err)
	}
	for i := range c.Replicas {
		if err := c.Replicas[i].validate(); err != nil {
			return fmt.Errorf("invalid replica %d config: %w", i, err)
		}
	}
	if c.Pool.MaxConns <= 0 {
		return fmt.Errorf("%w: max_conns must be positive", ErrInvalidConfig)
	}
	if c.Pool.MinConns < 0 || c.Pool.MinConns > c.Pool.MaxConns {
		return fmt.Errorf("%w: min_conns must be within [0, max_conns]", ErrInvalidConfig)
	}
	switch c.ReplicaLoadBalance {
	case "", "random", "round_robin":
	default:
		return fmt.Errorf("%w: unknown replica_load_balance %q", ErrInvalidConfig, c.ReplicaLoadBalance)
	}
	return nil
}

func (c *DBConfig) validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host is empty", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port %d", ErrInvalidConfig, c.Port)
	}
	if c.User == "" {
		return fmt.Errorf("%w: user is empty", ErrInvalidConfig)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: db_name is empty", ErrInvalidConfig)
	}
	return nil
}

// ConnString keyword/value 形式的连接串
func (c *DBConfig) ConnString(connectTimeout time.Duration) string {
	parts := []string{
		"host=" + quoteValue(c.Host),
		"port=" + strconv.Itoa(c.Port),
		"user=" + quoteValue(c.User),
		"dbname=" + quoteValue(c.DBName),
	}
	if c.Password != "" {
		parts = append(parts, "password="+quoteValue(c.Password))
	}
	if c.SSLMode != "" {
		parts = append(parts, "sslmode="+c.SSLMode)
	}
	if connectTimeout > 0 {
		parts = append(parts, "connect_timeout="+strconv.Itoa(int(connectTimeout.Seconds())))
	}
	return strings.Join(parts, " ")
}

// URL postgres:// 形式的连接串（供迁移工具使用）
func (c *DBConfig) URL() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.DBName,
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else {
		u.User = url.User(c.User)
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{c.SSLMode}}.Encode()
	}
	return u.String()
}

func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

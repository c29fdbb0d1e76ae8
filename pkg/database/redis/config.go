package redis

import (
	"time"

	"github.com/lk2023060901/xdooria-gacha/pkg/config"
)

// Config Redis 配置
// Addrs 只有一个地址时为单机模式，多个地址时为集群模式
type Config struct {
	Addrs    []string `mapstructure:"addrs" json:"addrs" yaml:"addrs"`
	Password string   `mapstructure:"password" json:"password" yaml:"password"`
	DB       int      `mapstructure:"db" json:"db" yaml:"db"` // 仅单机模式有效

	Pool PoolConfig `mapstructure:"pool" json:"pool" yaml:"pool"`

	// KeyPrefix 所有键的统一前缀
	KeyPrefix string `mapstructure:"key_prefix" json:"key_prefix" yaml:"key_prefix"`
}

// PoolConfig 连接池配置
type PoolConfig struct {
	PoolSize        int           `mapstructure:"pool_size" json:"pool_size" yaml:"pool_size"`
	MinIdleConns    int           `mapstructure:"min_idle_conns" json:"min_idle_conns" yaml:"min_idle_conns"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" json:"conn_max_idle_time" yaml:"conn_max_idle_time"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout" json:"dial_timeout" yaml:"dial_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" json:"write_timeout" yaml:"write_timeout"`
	PoolTimeout     time.Duration `mapstructure:"pool_timeout" json:"pool_timeout" yaml:"pool_timeout"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Addrs: []string{"localhost:6379"},
		Pool: PoolConfig{
			PoolSize:        20,
			MinIdleConns:    2,
			ConnMaxIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
			PoolTimeout:     2 * time.Second,
		},
		KeyPrefix: "gacha:",
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if len(c.Addrs) == 0 {
		return ErrInvalidConfig
	}
	for _, addr := range c.Addrs {
		if addr == "" {
			return ErrInvalidConfig
		}
	}
	if c.DB < 0 || c.DB > 15 {
		return ErrInvalidConfig
	}
	return nil
}

// IsCluster 是否为集群模式
func (c *Config) IsCluster() bool {
	return len(c.Addrs) > 1
}

func mergeConfig(cfg *Config) (*Config, error) {
	return config.MergeConfig(DefaultConfig(), cfg)
}

package gacha

import (
	"time"

	"github.com/lk2023060901/xdooria-gacha/pkg/config"
)

// Config 抽卡引擎配置
type Config struct {
	Pity PityRules  `mapstructure:"pity"`
	Draw DrawConfig `mapstructure:"draw"`
}

// DrawConfig 抽卡执行配置
type DrawConfig struct {
	// MaxConflictRetries 并发冲突最多重试次数（不含首次执行）
	// 0 视为未配置取默认值，关闭重试需配置为 -1
	MaxConflictRetries int `mapstructure:"max_conflict_retries" validate:"gte=-1,lte=10"`
	// RetryBackoff 第 n 次重试前等待 n*RetryBackoff
	// 0 视为未配置取默认值，负数表示不等待立即重试
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	// MaxBatchSize 单次连抽上限
	MaxBatchSize int `mapstructure:"max_batch_size" validate:"gte=10"`
	// RNGSeed 随机种子，0 表示使用系统熵
	RNGSeed uint64 `mapstructure:"rng_seed"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Pity: DefaultPityRules(),
		Draw: DrawConfig{
			MaxConflictRetries: 3,
			RetryBackoff:       20 * time.Millisecond,
			MaxBatchSize:       100,
		},
	}
}

// conflictRetries 生效的重试次数
func (c DrawConfig) conflictRetries() int {
	return max(c.MaxConflictRetries, 0)
}

// retryBackoff 第 attempt 次重试前的等待时间
func (c DrawConfig) retryBackoff(attempt int) time.Duration {
	if c.RetryBackoff <= 0 {
		return 0
	}
	return c.RetryBackoff * time.Duration(attempt)
}

// Validate 验证配置
func (c *Config) Validate() error {
	return config.NewValidator().Validate(c)
}

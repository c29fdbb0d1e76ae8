package web

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-gacha/pkg/web/middleware"
)

// Config Web 服务配置
type Config struct {
	Addr            string                `mapstructure:"addr"`
	Mode            string                `mapstructure:"mode"` // debug, release, test
	ReadTimeout     time.Duration         `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration         `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration         `mapstructure:"shutdown_timeout"`
	EnableCORS      bool                  `mapstructure:"enable_cors"`
	CORS            middleware.CORSConfig `mapstructure:"cors"`
	EnableTLS       bool                  `mapstructure:"enable_tls"`
	CertFile        string                `mapstructure:"cert_file"`
	KeyFile         string                `mapstructure:"key_file"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Addr:            ":8080",
		Mode:            gin.ReleaseMode,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Addr == "" {
		return ErrInvalidConfig
	}
	if c.EnableTLS && (c.CertFile == "" || c.KeyFile == "") {
		return ErrInvalidConfig
	}
	if c.EnableCORS {
		if err := c.CORS.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

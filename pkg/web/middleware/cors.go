package middleware

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var defaultCORSHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}

// CORSConfig 跨域配置
type CORSConfig struct {
	// AllowOrigins 允许的来源，为空或包含 "*" 时放行所有来源
	// 支持单个通配符，如 https://*.example.com
	AllowOrigins []string `mapstructure:"allow_origins"`
	// AllowHeaders 在默认请求头之外额外允许的请求头
	AllowHeaders []string      `mapstructure:"allow_headers"`
	MaxAge       time.Duration `mapstructure:"max_age"`
}

// Validate 校验来源格式
func (c CORSConfig) Validate() error {
	for _, o := range c.AllowOrigins {
		if strings.Count(o, "*") > 1 {
			return fmt.Errorf("cors: origin %q has more than one wildcard", o)
		}
	}
	if err := c.options().Validate(); err != nil {
		return errors.Join(errors.New("cors: invalid config"), err)
	}
	return nil
}

func (c CORSConfig) options() cors.Config {
	opts := cors.Config{
		AllowMethods:  []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowHeaders:  append(slices.Clone(defaultCORSHeaders), c.AllowHeaders...),
		ExposeHeaders: []string{"Content-Length"},
		AllowWildcard: true,
		MaxAge:        c.MaxAge,
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 12 * time.Hour
	}
	// 任意来源时不带凭证，浏览器拒绝 "*" 与凭证同时出现
	if len(c.AllowOrigins) == 0 || slices.Contains(c.AllowOrigins, "*") {
		opts.AllowAllOrigins = true
		return opts
	}
	opts.AllowOrigins = slices.Clone(c.AllowOrigins)
	opts.AllowCredentials = true
	return opts
}

// CORS 跨域中间件，配置需先经过 Validate
func CORS(c CORSConfig) gin.HandlerFunc {
	return cors.New(c.options())
}

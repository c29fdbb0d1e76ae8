package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-gacha/pkg/security"
	weberrors "github.com/lk2023060901/xdooria-gacha/pkg/web/errors"
)

const (
	// ClaimsKey Context 中存储 Claims 的 key
	ClaimsKey = "jwt_claims"
	// UserIDKey Context 中存储玩家 ID 的 key
	UserIDKey = "user_id"
)

// AuthConfig 认证配置
type AuthConfig struct {
	JWTManager *security.JWTManager
	// SkipPaths 精确匹配
	SkipPaths []string
	// SkipPrefixes 前缀匹配
	SkipPrefixes []string
}

// Auth JWT 认证中间件，校验通过后写入 Claims 与玩家 ID
func Auth(cfg *AuthConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}
	header := cfg.JWTManager.Config().HeaderName

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, ok := skip[path]; ok {
			c.Next()
			return
		}
		for _, prefix := range cfg.SkipPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		token := c.GetHeader(header)
		if token == "" {
			abortUnauthorized(c, security.ErrTokenMissing)
			return
		}

		claims, err := cfg.JWTManager.ValidateToken(token)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		uid, err := claims.UserID()
		if err != nil {
			abortUnauthorized(c, err)
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(UserIDKey, uid)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    weberrors.CodeUnAuthorized,
		"message": err.Error(),
		"data":    nil,
	})
}

// GetClaims 从 Context 获取 Claims
func GetClaims(c *gin.Context) (*security.Claims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*security.Claims)
	return claims, ok
}

// GetUserID 从 Context 获取已认证的玩家 ID
func GetUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	uid, ok := v.(int64)
	return uid, ok
}

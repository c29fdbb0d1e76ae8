package security

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lk2023060901/xdooria-gacha/pkg/config"
)

// UserIDKey Payload 中用户 ID 的 key
const UserIDKey = "uid"

// JWTConfig JWT 配置
type JWTConfig struct {
	// 对称算法密钥
	SecretKey string `mapstructure:"secret_key" json:"secret_key"`

	// 非对称算法密钥文件
	PublicKeyFile  string `mapstructure:"public_key_file" json:"public_key_file"`
	PrivateKeyFile string `mapstructure:"private_key_file" json:"private_key_file"`

	// 支持 HS256/384/512, RS256/384/512, ES256/384/512
	Algorithm string `mapstructure:"algorithm" json:"algorithm"`

	ExpiresIn   time.Duration `mapstructure:"expires_in" json:"expires_in"`
	Issuer      string        `mapstructure:"issuer" json:"issuer"`
	TokenPrefix string        `mapstructure:"token_prefix" json:"token_prefix"`
	HeaderName  string        `mapstructure:"header_name" json:"header_name"`
}

// DefaultJWTConfig 默认配置
func DefaultJWTConfig() *JWTConfig {
	return &JWTConfig{
		Algorithm:   "HS256",
		ExpiresIn:   24 * time.Hour,
		TokenPrefix: "Bearer ",
		HeaderName:  "Authorization",
	}
}

// Claims JWT Claims，业务字段放在 Payload
type Claims struct {
	jwt.RegisteredClaims

	Payload map[string]any `json:"payload,omitempty"`
}

// JWTManager 签发与校验 Token
type JWTManager struct {
	config    *JWTConfig
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
}

// NewJWTManager 创建 JWT 管理器
func NewJWTManager(cfg *JWTConfig) (*JWTManager, error) {
	newCfg, err := config.MergeConfig(DefaultJWTConfig(), cfg)
	if err != nil {
		return nil, err
	}

	method := jwt.GetSigningMethod(strings.ToUpper(newCfg.Algorithm))
	if method == nil || method == jwt.SigningMethodNone {
		return nil, fmt.Errorf("%w: %s", ErrAlgorithmInvalid, newCfg.Algorithm)
	}

	m := &JWTManager{config: newCfg, method: method}
	if err := m.loadKeys(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *JWTManager) loadKeys() error {
	alg := m.method.Alg()
	if strings.HasPrefix(alg, "HS") {
		if m.config.SecretKey == "" {
			return ErrSecretKeyEmpty
		}
		m.signKey = []byte(m.config.SecretKey)
		m.verifyKey = m.signKey
		return nil
	}

	if m.config.PublicKeyFile != "" {
		data, err := os.ReadFile(m.config.PublicKeyFile)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPublicKeyLoad, err)
		}
		if strings.HasPrefix(alg, "RS") {
			m.verifyKey, err = jwt.ParseRSAPublicKeyFromPEM(data)
		} else {
			m.verifyKey, err = jwt.ParseECPublicKeyFromPEM(data)
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPublicKeyLoad, err)
		}
	}

	if m.config.PrivateKeyFile != "" {
		data, err := os.ReadFile(m.config.PrivateKeyFile)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPrivateKeyLoad, err)
		}
		if strings.HasPrefix(alg, "RS") {
			m.signKey, err = jwt.ParseRSAPrivateKeyFromPEM(data)
		} else {
			m.signKey, err = jwt.ParseECPrivateKeyFromPEM(data)
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPrivateKeyLoad, err)
		}
	}
	return nil
}

// GenerateToken 签发 Token
func (m *JWTManager) GenerateToken(claims *Claims) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.NotBefore = jwt.NewNumericDate(now)
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.config.ExpiresIn))
	}
	if claims.Issuer == "" {
		claims.Issuer = m.config.Issuer
	}
	return jwt.NewWithClaims(m.method, claims).SignedString(m.signKey)
}

// GenerateUserToken 为指定玩家签发 Token
func (m *JWTManager) GenerateUserToken(userID int64) (string, error) {
	return m.GenerateToken(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: strconv.FormatInt(userID, 10)},
		Payload:          map[string]any{UserIDKey: strconv.FormatInt(userID, 10)},
	})
}

// ValidateToken 校验 Token，自动去除前缀
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	tokenString = strings.TrimPrefix(tokenString, m.config.TokenPrefix)

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != m.method.Alg() {
			return nil, ErrAlgorithmMismatch
		}
		return m.verifyKey, nil
	})
	if err != nil {
		return nil, wrapError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Config 获取配置
func (m *JWTManager) Config() *JWTConfig {
	return m.config
}

func wrapError(err error) error {
	switch {
	case errors.Is(err, ErrAlgorithmMismatch):
		return ErrAlgorithmMismatch
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrTokenNotValidYet
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrSignatureInvalid
	default:
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
}

// Get 获取 Payload 中的值，支持 "a.b.c" 嵌套 key
func (c *Claims) Get(key string) any {
	var current any = c.Payload
	for _, k := range strings.Split(key, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[k]
	}
	return current
}

// UnmarshalKey 将指定 key 的值解码到 v
func (c *Claims) UnmarshalKey(key string, v any) error {
	val := c.Get(key)
	if val == nil {
		return nil
	}
	return mapstructure.WeakDecode(val, v)
}

// UserID 解析 Payload 中的玩家 ID，兼容字符串与数字
func (c *Claims) UserID() (int64, error) {
	var id int64
	if c.Get(UserIDKey) == nil {
		return 0, ErrSubjectMissing
	}
	if err := c.UnmarshalKey(UserIDKey, &id); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if id <= 0 {
		return 0, ErrSubjectMissing
	}
	return id, nil
}

package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/lk2023060901/xdooria-gacha/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthEngine(t *testing.T) (*gin.Engine, *security.JWTManager) {
	t.Helper()
	jm, err := security.NewJWTManager(&security.JWTConfig{SecretKey: "middleware-test"})
	require.NoError(t, err)

	r := gin.New()
	r.Use(Auth(&AuthConfig{JWTManager: jm, SkipPaths: []string{"/healthz"}}))
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/me", func(c *gin.Context) {
		uid, ok := GetUserID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"uid": uid})
	})
	return r, jm
}

func TestAuth(t *testing.T) {
	r, jm := newAuthEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	token, err := jm.GenerateUserToken(1001)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		UID int64 `json:"uid"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(1001), body.UID)
}

func TestRecovery_ReportsPanic(t *testing.T) {
	var reported any
	r := gin.New()
	r.Use(Recovery(logger.NewNoop(), func(_ context.Context, v any) { reported = v }))
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "boom", reported)
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		status  int
		allow   string
	}{
		{"any origin by default", nil, "https://player.example.com", http.StatusOK, "*"},
		{"explicit origin", []string{"https://app.example.com"}, "https://app.example.com", http.StatusOK, "https://app.example.com"},
		{"wildcard origin", []string{"https://*.example.org"}, "https://cdn.example.org", http.StatusOK, "https://cdn.example.org"},
		{"unknown origin rejected", []string{"https://app.example.com"}, "https://evil.test", http.StatusForbidden, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := CORSConfig{AllowOrigins: tt.origins}
			require.NoError(t, cfg.Validate())

			r := gin.New()
			r.Use(CORS(cfg))
			r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.allow, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORSConfig_Validate(t *testing.T) {
	assert.NoError(t, CORSConfig{}.Validate())
	assert.NoError(t, CORSConfig{AllowOrigins: []string{"*"}}.Validate())
	assert.Error(t, CORSConfig{AllowOrigins: []string{"app.example.com"}}.Validate())
	assert.Error(t, CORSConfig{AllowOrigins: []string{"https://*.*.example.com"}}.Validate())
}

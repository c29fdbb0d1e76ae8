package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/catalog"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/gacha"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/repository"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/service"
	"github.com/lk2023060901/xdooria-gacha/pkg/cache/lru"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/lk2023060901/xdooria-gacha/pkg/security"
	weberrors "github.com/lk2023060901/xdooria-gacha/pkg/web/errors"
	"github.com/lk2023060901/xdooria-gacha/pkg/web/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	router *gin.Engine
	jwt    *security.JWTManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	l := logger.NewNoop()

	draws := repository.NewMemoryDrawRepository(nil, l)
	cat := repository.NewCatalogRepository(
		catalog.NewStatic(catalog.Default()), nil,
		&lru.Config{MaxSize: 64, DefaultTTL: time.Minute}, l, nil,
	)
	t.Cleanup(func() { _ = cat.Close() })
	engine, err := gacha.NewEngine(draws, gacha.NewRandomSource(7), nil, l)
	require.NoError(t, err)

	jwtMgr, err := security.NewJWTManager(&security.JWTConfig{SecretKey: "handler-test"})
	require.NoError(t, err)

	r := gin.New()
	h := NewGachaHandler(service.NewGachaService(engine, draws, cat, nil, l), "test", l)
	h.Register(r, middleware.Auth(&middleware.AuthConfig{JWTManager: jwtMgr}))
	return &testServer{router: r, jwt: jwtMgr}
}

func (s *testServer) do(t *testing.T, method, path string, uid int64) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if uid > 0 {
		token, err := s.jwt.GenerateUserToken(uid)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w.Code, env
}

func TestHandler_Public(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodGet, "/", 0)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), ServiceName)

	code, _ = s.do(t, http.MethodGet, "/healthz", 0)
	assert.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodGet, "/api/v1/banners", 0)
	require.Equal(t, http.StatusOK, code)
	var banners []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &banners))
	assert.Len(t, banners, 2)

	code, env = s.do(t, http.MethodGet, "/api/v1/banners/1", 0)
	require.Equal(t, http.StatusOK, code)
	var detail struct {
		Name  string           `json:"name"`
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, "Spring Blossom", detail.Name)
	assert.Len(t, detail.Items, 11)

	code, env = s.do(t, http.MethodGet, "/api/v1/banners/99", 0)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, weberrors.CodeNotFound, env.Code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/banners/abc", 0)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHandler_RequiresAuth(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/v1/inventory", "/api/v1/history", "/api/v1/stats"} {
		code, _ := s.do(t, http.MethodGet, path, 0)
		assert.Equal(t, http.StatusUnauthorized, code, path)
	}
	code, _ := s.do(t, http.MethodPost, "/api/v1/banners/1/pull", 0)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestHandler_PullFlow(t *testing.T) {
	s := newTestServer(t)
	const uid = 1001

	code, env := s.do(t, http.MethodPost, "/api/v1/banners/1/pull", uid)
	require.Equal(t, http.StatusOK, code)
	var single service.PullResult
	require.NoError(t, json.Unmarshal(env.Data, &single))
	assert.Equal(t, int64(1), single.PullNumber)
	assert.NotEmpty(t, single.ItemName)

	code, env = s.do(t, http.MethodPost, "/api/v1/banners/2/pull/ten", uid)
	require.Equal(t, http.StatusOK, code)
	var ten service.BatchPullResult
	require.NoError(t, json.Unmarshal(env.Data, &ten))
	assert.Len(t, ten.Results, 10)
	assert.Equal(t, int64(11), ten.TotalPulls)

	code, env = s.do(t, http.MethodPost, "/api/v1/banners/1/pull/batch?count=5", uid)
	require.Equal(t, http.StatusOK, code)
	var batch service.BatchPullResult
	require.NoError(t, json.Unmarshal(env.Data, &batch))
	assert.Equal(t, int64(16), batch.TotalPulls)

	code, env = s.do(t, http.MethodGet, "/api/v1/history?limit=3", uid)
	require.Equal(t, http.StatusOK, code)
	var history []service.HistoryEntry
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 3)
	assert.Equal(t, int64(16), history[0].PullNumber)
	assert.Equal(t, "Spring Blossom", history[0].BannerName)

	code, env = s.do(t, http.MethodGet, "/api/v1/inventory", uid)
	require.Equal(t, http.StatusOK, code)
	var inv []service.InventoryEntry
	require.NoError(t, json.Unmarshal(env.Data, &inv))
	var total int64
	for _, e := range inv {
		total += e.Quantity
	}
	assert.Equal(t, int64(16), total)

	code, env = s.do(t, http.MethodGet, "/api/v1/stats", uid)
	require.Equal(t, http.StatusOK, code)
	var stats service.Stats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, int64(16), stats.TotalPulls)
	assert.NotEmpty(t, stats.LuckRating)
}

func TestHandler_PullErrors(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/banners/42/pull", 7)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "banner not found or inactive", env.Message)

	code, env = s.do(t, http.MethodPost, "/api/v1/banners/1/pull/batch?count=0", 7)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, weberrors.CodeInvalidParams, env.Code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/banners/1/pull/batch?count=1000", 7)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/banners/1/pull/batch?count=ten", 7)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/history?limit=x", 7)
	assert.Equal(t, http.StatusBadRequest, code)
}

package sim

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/catalog"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/gacha"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/handler"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/repository"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/service"
	"github.com/lk2023060901/xdooria-gacha/pkg/cache/lru"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/lk2023060901/xdooria-gacha/pkg/security"
	"github.com/lk2023060901/xdooria-gacha/pkg/web/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "robot-test"

func TestRunOffline(t *testing.T) {
	report, err := RunOffline(context.Background(), &OfflineConfig{
		Users:        20,
		PullsPerUser: 200,
		BatchSize:    10,
		BannerID:     1,
		Workers:      8,
		Seed:         99,
	}, logger.NewNoop())
	require.NoError(t, err)

	assert.Equal(t, int64(20), report.Users.Load())
	assert.Equal(t, int64(4000), report.Draws.Load())
	assert.Zero(t, report.Drift.Load())

	var sum int64
	for _, r := range model.Rarities {
		sum += report.Count(r)
	}
	assert.Equal(t, report.Draws.Load(), sum)

	// 每个十连至少一个 Rare 及以上
	assert.Less(t, report.Frequency(model.RarityCommon), 0.9)
	assert.Greater(t, report.Count(model.RarityLegendary), int64(0))
}

func TestRunOffline_InvalidConfig(t *testing.T) {
	_, err := RunOffline(context.Background(), &OfflineConfig{Users: 0, PullsPerUser: 1, BannerID: 1, Workers: 1}, logger.NewNoop())
	assert.Error(t, err)

	_, err = RunOffline(context.Background(), &OfflineConfig{Users: 1, PullsPerUser: 1, BannerID: 404, Workers: 1}, logger.NewNoop())
	assert.Error(t, err)
}

func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	l := logger.NewNoop()

	draws := repository.NewMemoryDrawRepository(nil, l)
	cat := repository.NewCatalogRepository(catalog.NewStatic(catalog.Default()), nil,
		&lru.Config{MaxSize: 64, DefaultTTL: time.Minute}, l, nil)
	engine, err := gacha.NewEngine(draws, gacha.NewRandomSource(1), nil, l)
	require.NoError(t, err)
	jwtManager, err := security.NewJWTManager(&security.JWTConfig{SecretKey: testSecret})
	require.NoError(t, err)

	r := gin.New()
	handler.NewGachaHandler(service.NewGachaService(engine, draws, cat, nil, l), "test", l).
		Register(r, middleware.Auth(&middleware.AuthConfig{JWTManager: jwtManager}))

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		_ = cat.Close()
	})
	return srv
}

func TestRunOnline(t *testing.T) {
	srv := newTestAPI(t)
	cfg := &OnlineConfig{
		BaseURL:      srv.URL,
		JWTSecret:    testSecret,
		Users:        6,
		FirstUserID:  100,
		PullsPerUser: 37,
		BatchSize:    8,
		BannerID:     2,
		Workers:      3,
	}

	report, err := RunOnline(context.Background(), cfg, logger.NewNoop())
	require.NoError(t, err)
	assert.Equal(t, int64(6), report.Users.Load())
	assert.Equal(t, int64(6*37), report.Draws.Load())
	assert.Zero(t, report.Gaps.Load())

	// 再跑一轮，PullNumber 从上一轮末尾继续
	report, err = RunOnline(context.Background(), cfg, logger.NewNoop())
	require.NoError(t, err)
	assert.Zero(t, report.Gaps.Load())
	assert.Zero(t, report.FailedUsers.Load())
}

func TestRunOnline_WrongSecret(t *testing.T) {
	srv := newTestAPI(t)
	report, err := RunOnline(context.Background(), &OnlineConfig{
		BaseURL:      srv.URL,
		JWTSecret:    "not-the-secret",
		Users:        2,
		FirstUserID:  1,
		PullsPerUser: 1,
		BannerID:     1,
		Workers:      2,
	}, logger.NewNoop())
	require.Error(t, err)
	assert.Equal(t, int64(2), report.FailedUsers.Load())
}

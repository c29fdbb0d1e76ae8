package handler

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/gacha"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/service"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/lk2023060901/xdooria-gacha/pkg/web"
	weberrors "github.com/lk2023060901/xdooria-gacha/pkg/web/errors"
	"github.com/lk2023060901/xdooria-gacha/pkg/web/middleware"
)

// ServiceName 对外展示的服务名
const ServiceName = "Sakura Gacha API"

// GachaHandler 抽卡 HTTP 接口
type GachaHandler struct {
	svc     *service.GachaService
	version string
	logger  logger.Logger
}

// NewGachaHandler 创建抽卡处理器
func NewGachaHandler(svc *service.GachaService, version string, l logger.Logger) *GachaHandler {
	return &GachaHandler{
		svc:     svc,
		version: version,
		logger:  l.Named("handler.gacha"),
	}
}

// Register 注册路由，auth 保护抽卡与玩家数据接口
func (h *GachaHandler) Register(r gin.IRouter, auth gin.HandlerFunc) {
	r.GET("/", h.Info)
	r.GET("/healthz", h.Health)

	api := r.Group("/api/v1")
	{
		api.GET("/banners", h.ListBanners)
		api.GET("/banners/:id", h.GetBanner)
	}

	player := api.Group("", auth)
	{
		player.POST("/banners/:id/pull", h.Pull)
		player.POST("/banners/:id/pull/ten", h.PullTen)
		player.POST("/banners/:id/pull/batch", h.PullBatch)
		player.GET("/inventory", h.Inventory)
		player.GET("/history", h.History)
		player.GET("/stats", h.Stats)
	}
}

// Info 服务信息
func (h *GachaHandler) Info(c *gin.Context) {
	web.Success(c, gin.H{"name": ServiceName, "version": h.version})
}

// Health 存活检查
func (h *GachaHandler) Health(c *gin.Context) {
	web.Success(c, gin.H{"status": "ok"})
}

// userID 已认证玩家 ID，缺失时写入 401
func userID(c *gin.Context) (int64, bool) {
	uid, ok := middleware.GetUserID(c)
	if !ok {
		web.Fail(c, weberrors.CodeUnAuthorized, "unauthorized")
		return 0, false
	}
	return uid, true
}

// fail 按错误类型写入响应
func (h *GachaHandler) fail(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, gacha.ErrBannerNotFound):
		web.Fail(c, weberrors.CodeNotFound, "banner not found or inactive")
	case errors.Is(err, gacha.ErrEmptyPool):
		web.Fail(c, weberrors.CodeNotFound, "banner has no drawable items")
	case errors.Is(err, gacha.ErrInvalidBatchSize):
		web.Fail(c, weberrors.CodeInvalidParams, err.Error())
	case gacha.IsConflict(err), errors.Is(err, context.DeadlineExceeded):
		h.logger.WarnContext(c.Request.Context(), "request unavailable", "op", op, "error", err)
		web.Fail(c, weberrors.CodeUnavailable, "service busy, please retry")
	case errors.Is(err, context.Canceled):
		c.Status(499)
	default:
		h.logger.ErrorContext(c.Request.Context(), "request failed", "op", op, "error", err)
		web.Error(c, http.StatusInternalServerError, weberrors.CodeInternalError, "internal error")
	}
}

package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/service"
	"github.com/lk2023060901/xdooria-gacha/pkg/web"
)

// Inventory 玩家背包
// @Summary 背包
// @Tags player
// @Produce json
// @Security Bearer
// @Success 200 {object} web.Response{data=[]service.InventoryEntry}
// @Router /api/v1/inventory [get]
func (h *GachaHandler) Inventory(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	inv, err := h.svc.Inventory(c.Request.Context(), uid)
	if err != nil {
		h.fail(c, "inventory", err)
		return
	}
	web.Success(c, inv)
}

// History 抽卡历史，最新在前
// @Summary 抽卡历史
// @Tags player
// @Produce json
// @Security Bearer
// @Param limit query int false "条数，1-200"
// @Success 200 {object} web.Response{data=[]service.HistoryEntry}
// @Router /api/v1/history [get]
func (h *GachaHandler) History(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	limit, ok := web.QueryInt(c, "limit", service.DefaultHistoryLimit)
	if !ok {
		return
	}
	if limit < 1 {
		limit = 1
	}
	history, err := h.svc.History(c.Request.Context(), uid, limit)
	if err != nil {
		h.fail(c, "history", err)
		return
	}
	web.Success(c, history)
}

// Stats 抽卡统计
// @Summary 抽卡统计与运势
// @Tags player
// @Produce json
// @Security Bearer
// @Success 200 {object} web.Response{data=service.Stats}
// @Router /api/v1/stats [get]
func (h *GachaHandler) Stats(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	stats, err := h.svc.Stats(c.Request.Context(), uid)
	if err != nil {
		h.fail(c, "stats", err)
		return
	}
	web.Success(c, stats)
}

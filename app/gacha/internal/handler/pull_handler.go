package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-gacha/pkg/web"
)

// Pull 单抽
// @Summary 单抽
// @Tags pull
// @Produce json
// @Security Bearer
// @Param id path int true "卡池 ID"
// @Success 200 {object} web.Response{data=service.PullResult}
// @Failure 404 {object} web.Response
// @Failure 503 {object} web.Response
// @Router /api/v1/banners/{id}/pull [post]
func (h *GachaHandler) Pull(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	bannerID, ok := web.ParamInt64(c, "id")
	if !ok {
		return
	}

	res, err := h.svc.Pull(c.Request.Context(), uid, bannerID)
	if err != nil {
		h.fail(c, "pull", err)
		return
	}
	web.Success(c, res)
}

// PullTen 十连
// @Summary 十连，无 Rare 及以上时最后一抽保底为 Rare
// @Tags pull
// @Produce json
// @Security Bearer
// @Param id path int true "卡池 ID"
// @Success 200 {object} web.Response{data=service.BatchPullResult}
// @Router /api/v1/banners/{id}/pull/ten [post]
func (h *GachaHandler) PullTen(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	bannerID, ok := web.ParamInt64(c, "id")
	if !ok {
		return
	}

	res, err := h.svc.PullTen(c.Request.Context(), uid, bannerID)
	if err != nil {
		h.fail(c, "pull_ten", err)
		return
	}
	web.Success(c, res)
}

// PullBatch 连抽
// @Summary 连抽 count 次
// @Tags pull
// @Produce json
// @Security Bearer
// @Param id path int true "卡池 ID"
// @Param count query int true "次数"
// @Success 200 {object} web.Response{data=service.BatchPullResult}
// @Failure 400 {object} web.Response
// @Router /api/v1/banners/{id}/pull/batch [post]
func (h *GachaHandler) PullBatch(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	bannerID, ok := web.ParamInt64(c, "id")
	if !ok {
		return
	}
	count, ok := web.QueryInt(c, "count", 1)
	if !ok {
		return
	}

	res, err := h.svc.PullBatch(c.Request.Context(), uid, bannerID, count)
	if err != nil {
		h.fail(c, "pull_batch", err)
		return
	}
	web.Success(c, res)
}

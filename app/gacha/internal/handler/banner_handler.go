package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-gacha/pkg/web"
)

// ListBanners 开放中的卡池
// @Summary 卡池列表
// @Tags banner
// @Produce json
// @Success 200 {object} web.Response{data=[]model.Banner}
// @Router /api/v1/banners [get]
func (h *GachaHandler) ListBanners(c *gin.Context) {
	banners, err := h.svc.ListBanners(c.Request.Context())
	if err != nil {
		h.fail(c, "list_banners", err)
		return
	}
	web.Success(c, banners)
}

// GetBanner 卡池详情
// @Summary 卡池详情及物品
// @Tags banner
// @Produce json
// @Param id path int true "卡池 ID"
// @Success 200 {object} web.Response{data=model.BannerDetail}
// @Failure 404 {object} web.Response
// @Router /api/v1/banners/{id} [get]
func (h *GachaHandler) GetBanner(c *gin.Context) {
	id, ok := web.ParamInt64(c, "id")
	if !ok {
		return
	}
	detail, err := h.svc.GetBanner(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get_banner", err)
		return
	}
	web.Success(c, detail)
}

package web

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/lk2023060901/xdooria-gacha/pkg/web/errors"
)

// BindAndValidate 绑定请求参数并校验，失败时已写入 400 响应
func BindAndValidate(c *gin.Context, obj any) bool {
	if err := c.ShouldBind(obj); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			Fail(c, errors.CodeInvalidParams, errs.Error())
			return false
		}
		Fail(c, errors.CodeInvalidParams, "invalid request parameters: "+err.Error())
		return false
	}
	return true
}

// QueryInt 读取整型查询参数，缺省返回 def，非法返回 false 并写入 400 响应
func QueryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		Fail(c, errors.CodeInvalidParams, "invalid query parameter: "+key)
		return 0, false
	}
	return v, true
}

// ParamInt64 读取路径参数
func ParamInt64(c *gin.Context, key string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(key), 10, 64)
	if err != nil || v <= 0 {
		Fail(c, errors.CodeInvalidParams, "invalid path parameter: "+key)
		return 0, false
	}
	return v, true
}

package controller

import (
	"skillplan_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// currentUserID 未认证时已写出 401
func currentUserID(ctx *gin.Context) (uint, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return 0, false
	}
	return claims.UserID, true
}

// pathID 解析路径中的数字 ID，非法时已写出 400
func pathID(ctx *gin.Context, name string) (uint, bool) {
	id := util.MustParseUint(ctx.Param(name))
	if id == 0 {
		util.BadRequest(ctx, "无效的"+name)
		return 0, false
	}
	return id, true
}

package controller

import (
	"skillplan_backend/internal/service"
	"skillplan_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AiHistoryController struct {
	HistoryService *service.AiHistoryService
}

func NewAiHistoryController(historyService *service.AiHistoryService) *AiHistoryController {
	return &AiHistoryController{HistoryService: historyService}
}

// ListHistory godoc
// @Summary AI 生成记录
// @Tags AI记录
// @Produce  json
// @Security ApiKeyAuth
// @Param   planId query int false "计划ID"
// @Success 200 {object} util.Response{data=[]model.AiHistory}
// @Router /api/ai-history [get]
func (c *AiHistoryController) ListHistory(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var planID uint
	if raw := ctx.Query("planId"); raw != "" {
		planID = util.MustParseUint(raw)
		if planID == 0 {
			util.BadRequest(ctx, "无效的planId")
			return
		}
	}
	history, err := c.HistoryService.List(userID, planID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, history)
}

// DeleteHistory godoc
// @Summary 删除某计划的 AI 生成记录
// @Tags AI记录
// @Produce  json
// @Security ApiKeyAuth
// @Param   planId path int true "计划ID"
// @Success 200 {object} util.Response{data=object}
// @Router /api/ai-history/{planId} [delete]
func (c *AiHistoryController) DeleteHistory(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	planID, ok := pathID(ctx, "planId")
	if !ok {
		return
	}
	deleted, err := c.HistoryService.DeleteForPlan(userID, planID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": deleted})
}

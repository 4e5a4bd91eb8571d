package controller

import (
	"skillplan_backend/internal/service"
	"skillplan_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SkillPlanController struct {
	PlanService *service.SkillPlanService
}

func NewSkillPlanController(planService *service.SkillPlanService) *SkillPlanController {
	return &SkillPlanController{PlanService: planService}
}

// CreatePlan godoc
// @Summary 为技能创建学习计划
// @Tags 学习计划
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "技能ID"
// @Param   body body service.CreatePlanRequest false "目标等级与天数"
// @Success 201 {object} util.Response{data=service.PlanSnapshot}
// @Failure 409 {object} util.Response "计划已存在"
// @Router /api/skills/{id}/plans [post]
func (c *SkillPlanController) CreatePlan(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	skillID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req service.CreatePlanRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	plan, err := c.PlanService.CreatePlan(userID, skillID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, plan)
}

// ListPlans godoc
// @Summary 我的学习计划
// @Tags 学习计划
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.PlanSnapshot}
// @Router /api/plans [get]
func (c *SkillPlanController) ListPlans(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	plans, err := c.PlanService.ListPlans(userID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, plans)
}

// GetPlan godoc
// @Summary 学习计划详情
// @Tags 学习计划
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "计划ID"
// @Success 200 {object} util.Response{data=service.PlanSnapshot}
// @Router /api/plans/{id} [get]
func (c *SkillPlanController) GetPlan(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	planID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	plan, err := c.PlanService.GetPlan(planID, userID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, plan)
}

// CompleteDay godoc
// @Summary 完成当天学习
// @Description 推进计划、更新连续天数并生成通知，全部在一个事务内完成
// @Tags 学习计划
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "计划ID"
// @Success 200 {object} util.Response{data=service.DayCompletion}
// @Failure 403 {object} util.Response "不是计划所有者"
// @Failure 409 {object} util.Response "当天已完成或计划已结束"
// @Router /api/plans/{id}/complete [patch]
func (c *SkillPlanController) CompleteDay(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	planID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	result, err := c.PlanService.CompleteDay(ctx.Request.Context(), planID, userID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

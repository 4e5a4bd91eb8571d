package controller

import (
	"skillplan_backend/internal/service"
	"skillplan_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SkillController struct {
	SkillService *service.SkillService
}

func NewSkillController(skillService *service.SkillService) *SkillController {
	return &SkillController{SkillService: skillService}
}

// CreateSkill godoc
// @Summary 创建技能
// @Description 未填写描述时由 AI 生成简介
// @Tags 技能
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.CreateSkillRequest true "技能信息"
// @Success 201 {object} util.Response{data=model.Skill}
// @Failure 429 {object} util.Response "生成额度已用完"
// @Router /api/skills [post]
func (c *SkillController) CreateSkill(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req service.CreateSkillRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	skill, err := c.SkillService.CreateSkill(ctx.Request.Context(), userID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, skill)
}

// ListSkills godoc
// @Summary 技能列表
// @Tags 技能
// @Produce  json
// @Security ApiKeyAuth
// @Param   category query string false "分类"
// @Success 200 {object} util.Response{data=[]model.Skill}
// @Router /api/skills [get]
func (c *SkillController) ListSkills(ctx *gin.Context) {
	skills, err := c.SkillService.ListSkills(ctx.Query("category"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, skills)
}

// GetSkill godoc
// @Summary 技能详情
// @Tags 技能
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "技能ID"
// @Success 200 {object} util.Response{data=model.Skill}
// @Router /api/skills/{id} [get]
func (c *SkillController) GetSkill(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	skill, err := c.SkillService.GetSkill(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, skill)
}

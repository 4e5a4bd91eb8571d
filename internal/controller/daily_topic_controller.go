package controller

import (
	"skillplan_backend/internal/service"
	"skillplan_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type DailyTopicController struct {
	TopicService *service.DailyTopicService
}

func NewDailyTopicController(topicService *service.DailyTopicService) *DailyTopicController {
	return &DailyTopicController{TopicService: topicService}
}

// EnsureToday godoc
// @Summary 获取或生成今天的课程
// @Tags 每日课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "计划ID"
// @Success 200 {object} util.Response{data=model.DailyTopic}
// @Failure 429 {object} util.Response "生成额度已用完"
// @Failure 503 {object} util.Response "生成失败，请重试"
// @Router /api/plans/{id}/topics/today [post]
func (c *DailyTopicController) EnsureToday(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	planID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	topic, err := c.TopicService.EnsureLesson(ctx.Request.Context(), planID, userID, 0)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, topic)
}

// Regenerate godoc
// @Summary 重新生成今天的课程
// @Description 新课程标题不会与已学主题重复
// @Tags 每日课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "计划ID"
// @Success 200 {object} util.Response{data=model.DailyTopic}
// @Failure 422 {object} util.Response "多次生成仍与已学内容重复"
// @Router /api/plans/{id}/topics/regenerate [post]
func (c *DailyTopicController) Regenerate(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	planID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	topic, err := c.TopicService.RegenerateLesson(ctx.Request.Context(), planID, userID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, topic)
}

// ListTopics godoc
// @Summary 计划下的全部课程
// @Tags 每日课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "计划ID"
// @Success 200 {object} util.Response{data=[]model.DailyTopic}
// @Router /api/plans/{id}/topics [get]
func (c *DailyTopicController) ListTopics(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	planID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	topics, err := c.TopicService.ListTopics(planID, userID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, topics)
}

// GetTopicByDay godoc
// @Summary 按天获取课程
// @Tags 每日课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "计划ID"
// @Param   day path int true "第几天"
// @Success 200 {object} util.Response{data=model.DailyTopic}
// @Router /api/plans/{id}/topics/{day} [get]
func (c *DailyTopicController) GetTopicByDay(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	planID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	day, valid := util.ParsePositiveInt(ctx.Param("day"))
	if !valid {
		util.BadRequest(ctx, "无效的day")
		return
	}
	topic, err := c.TopicService.GetTopicByDay(planID, userID, day)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, topic)
}

// LearnedTopics godoc
// @Summary 已学主题
// @Tags 每日课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "计划ID"
// @Success 200 {object} util.Response{data=[]model.CompletedSubtopic}
// @Router /api/plans/{id}/learned [get]
func (c *DailyTopicController) LearnedTopics(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	planID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	learned, err := c.TopicService.LearnedTopics(planID, userID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, learned)
}

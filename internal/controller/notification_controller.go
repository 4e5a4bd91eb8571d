package controller

import (
	"skillplan_backend/internal/service"
	"skillplan_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type NotificationController struct {
	NotificationService *service.NotificationService
}

func NewNotificationController(notificationService *service.NotificationService) *NotificationController {
	return &NotificationController{NotificationService: notificationService}
}

// ListNotifications godoc
// @Summary 通知列表
// @Tags 通知
// @Produce  json
// @Security ApiKeyAuth
// @Param   filter query string false "all / unread / today"
// @Success 200 {object} util.Response{data=[]model.Notification}
// @Router /api/notifications [get]
func (c *NotificationController) ListNotifications(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	notifications, err := c.NotificationService.List(userID, ctx.Query("filter"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, notifications)
}

// GetNotification godoc
// @Summary 通知详情
// @Tags 通知
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "通知ID"
// @Success 200 {object} util.Response{data=model.Notification}
// @Router /api/notifications/{id} [get]
func (c *NotificationController) GetNotification(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	n, err := c.NotificationService.Get(userID, ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, n)
}

// MarkRead godoc
// @Summary 标记为已读
// @Tags 通知
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "通知ID"
// @Success 200 {object} util.Response{data=model.Notification}
// @Router /api/notifications/{id}/read [patch]
func (c *NotificationController) MarkRead(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	n, err := c.NotificationService.MarkRead(userID, ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, n)
}

// MarkAllRead godoc
// @Summary 全部标记为已读
// @Tags 通知
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/notifications/read-all [patch]
func (c *NotificationController) MarkAllRead(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	updated, err := c.NotificationService.MarkAllRead(userID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"updated": updated})
}

// DeleteNotification godoc
// @Summary 删除通知
// @Tags 通知
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "通知ID"
// @Success 200 {object} util.Response
// @Router /api/notifications/{id} [delete]
func (c *NotificationController) DeleteNotification(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	if err := c.NotificationService.Delete(userID, ctx.Param("id")); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

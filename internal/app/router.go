package app

import (
	"skillplan_backend/internal/config"
	"skillplan_backend/internal/middleware"
	"skillplan_backend/pkg/monitoring"
	"skillplan_backend/pkg/security"
	"time"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		// 生成类接口按用户限流
		generation := security.RateLimiter(cfg.RateLimit.GenerationPerHour, time.Hour, middleware.UserKey)
		a.registerLearnerRoutes(authGroup, c, generation)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
		public.GET("/health", c.health.HealthCheck)
	}
}

func (a *App) registerLearnerRoutes(group *gin.RouterGroup, c *controllers, generation gin.HandlerFunc) {
	group.GET("/profile", c.auth.GetProfile)
	group.PUT("/profile/preferences", c.auth.UpdatePreferences)

	// 技能
	group.POST("/skills", generation, c.skill.CreateSkill)
	group.GET("/skills", c.skill.ListSkills)
	group.GET("/skills/:id", c.skill.GetSkill)
	group.POST("/skills/:id/plans", c.plan.CreatePlan)

	// 学习计划
	group.GET("/plans", c.plan.ListPlans)
	group.GET("/plans/:id", c.plan.GetPlan)
	group.PATCH("/plans/:id/complete", c.plan.CompleteDay)

	// 每日课程
	group.POST("/plans/:id/topics/today", generation, c.topic.EnsureToday)
	group.POST("/plans/:id/topics/regenerate", generation, c.topic.Regenerate)
	group.GET("/plans/:id/topics", c.topic.ListTopics)
	group.GET("/plans/:id/topics/:day", c.topic.GetTopicByDay)
	group.GET("/plans/:id/learned", c.topic.LearnedTopics)

	// 笔记
	group.POST("/plans/:id/notes", c.note.CreateNote)
	group.GET("/plans/:id/notes", c.note.ListNotes)
	group.GET("/plans/:id/notes/:day", c.note.GetNote)
	group.PUT("/plans/:id/notes/:day", c.note.UpdateNote)
	group.DELETE("/plans/:id/notes/:day", c.note.DeleteNote)

	// 通知
	group.GET("/notifications", c.notification.ListNotifications)
	group.PATCH("/notifications/read-all", c.notification.MarkAllRead)
	group.GET("/notifications/:id", c.notification.GetNotification)
	group.PATCH("/notifications/:id/read", c.notification.MarkRead)
	group.DELETE("/notifications/:id", c.notification.DeleteNotification)

	// AI 生成记录
	group.GET("/ai-history", c.history.ListHistory)
	group.DELETE("/ai-history/:planId", c.history.DeleteHistory)
}

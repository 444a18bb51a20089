package app

import (
	"photoquest_backend/docs"
	"photoquest_backend/internal/config"
	"photoquest_backend/internal/middleware"
	"photoquest_backend/internal/model"
	"photoquest_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)

		public.GET("/quests", c.quest.List)
		public.GET("/quests/nearby", c.quest.Nearby)
		public.GET("/quests/:id", c.quest.Get)

		public.GET("/achievements", c.progression.ListAchievementDefs)
		public.GET("/tags", c.progression.ListTags)
		public.GET("/leaderboard", c.progression.Leaderboard)
	}

	// 玩家授权路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware())
	{
		authGroup.GET("/quests/:id/eligibility", c.quest.CheckEligibility)

		authGroup.POST("/attempts", c.attempt.Start)
		authGroup.GET("/attempts", c.attempt.List)
		authGroup.GET("/attempts/:id", c.attempt.Get)
		authGroup.POST("/attempts/:id/cancel", c.attempt.Cancel)
		authGroup.POST("/attempts/:id/submit", c.attempt.Submit)

		authGroup.GET("/submissions/:id", c.submission.Get)
		authGroup.POST("/submissions/:id/vote", c.submission.Vote)

		authGroup.GET("/me", c.user.Profile)
		authGroup.PUT("/me/name", c.user.UpdateName)
		authGroup.POST("/me/avatar", c.user.UploadAvatar)
		authGroup.GET("/me/achievements", c.progression.MyAchievements)
		authGroup.GET("/me/tags", c.progression.MyTags)
		authGroup.GET("/me/tags/history", c.progression.TagHistory)
	}

	// 审核员路由
	moderation := router.Group("/api/moderation")
	moderation.Use(middleware.AuthMiddleware(), middleware.RoleMiddleware(model.Moderator))
	{
		moderation.GET("/queue", c.review.Queue)
		moderation.POST("/:id/resolve", c.review.Resolve)
		moderation.GET("/:id/audit", c.review.AuditTrail)
	}

	// 管理员路由
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RoleMiddleware(model.Admin))
	{
		admin.POST("/quests", c.quest.Create)
		admin.PUT("/quests/:id", c.quest.Update)
		admin.DELETE("/quests/:id", c.quest.Archive)
		admin.GET("/quests/:id/analytics", c.quest.Analytics)
	}
}

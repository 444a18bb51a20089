package controller

import (
	"strconv"

	"photoquest_backend/internal/service"
	"photoquest_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressionController struct {
	UserService        *service.UserService
	AchievementService *service.AchievementService
	TagService         *service.TagService
}

func NewProgressionController(userService *service.UserService, achievementService *service.AchievementService, tagService *service.TagService) *ProgressionController {
	return &ProgressionController{
		UserService:        userService,
		AchievementService: achievementService,
		TagService:         tagService,
	}
}

// ListAchievementDefs godoc
// @Summary 成就目录
// @Tags 进度
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.AchievementDef} "成功"
// @Router /api/achievements [get]
func (c *ProgressionController) ListAchievementDefs(ctx *gin.Context) {
	defs, err := c.AchievementService.ListDefs()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, defs)
}

// MyAchievements godoc
// @Summary 我的成就
// @Tags 进度
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.UserAchievement} "成功"
// @Router /api/me/achievements [get]
func (c *ProgressionController) MyAchievements(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	earned, err := c.AchievementService.ListByUser(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, earned)
}

// ListTags godoc
// @Summary 标签目录
// @Tags 进度
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.Tag} "成功"
// @Router /api/tags [get]
func (c *ProgressionController) ListTags(ctx *gin.Context) {
	tags, err := c.TagService.ListActive()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, tags)
}

// MyTags godoc
// @Summary 我的标签
// @Tags 进度
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.UserTag} "成功"
// @Router /api/me/tags [get]
func (c *ProgressionController) MyTags(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	tags, err := c.TagService.ListByUser(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, tags)
}

// TagHistory godoc
// @Summary 标签解锁历史
// @Tags 进度
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.TagUnlockHistory} "成功"
// @Router /api/me/tags/history [get]
func (c *ProgressionController) TagHistory(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	history, err := c.TagService.History(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, history)
}

// Leaderboard godoc
// @Summary 排行榜
// @Description 按累计XP降序，短暂缓存
// @Tags 进度
// @Produce  json
// @Param   limit query int false "数量" default(20)
// @Success 200 {object} util.Response{data=[]service.LeaderboardEntry} "成功"
// @Router /api/leaderboard [get]
func (c *ProgressionController) Leaderboard(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	entries, err := c.UserService.Leaderboard(ctx.Request.Context(), limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}

package controller

import (
	"strconv"

	"photoquest_backend/internal/geo"
	"photoquest_backend/internal/model"
	"photoquest_backend/internal/repository"
	"photoquest_backend/internal/service"
	"photoquest_backend/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

type QuestController struct {
	QuestService       *service.QuestService
	EligibilityService *service.EligibilityService
}

func NewQuestController(questService *service.QuestService, eligibilityService *service.EligibilityService) *QuestController {
	return &QuestController{
		QuestService:       questService,
		EligibilityService: eligibilityService,
	}
}

// List godoc
// @Summary 任务列表
// @Description 分页获取未下架任务，支持按分类、难度、等级筛选
// @Tags 任务
// @Produce  json
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页数量" default(20)
// @Param   category query string false "分类"
// @Param   difficulty query string false "难度"
// @Param   maxLevel query int false "最低等级上限"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/quests [get]
func (c *QuestController) List(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	maxLevel, _ := strconv.Atoi(ctx.DefaultQuery("maxLevel", "0"))
	filter := repository.QuestFilter{
		Category:   ctx.Query("category"),
		Difficulty: model.QuestDifficulty(ctx.Query("difficulty")),
		MaxLevel:   maxLevel,
	}

	quests, total, err := c.QuestService.List(page, limit, filter)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{List: quests, Total: total, Page: page, Limit: limit})
}

// Get godoc
// @Summary 任务详情
// @Tags 任务
// @Produce  json
// @Param   id path int true "任务ID"
// @Success 200 {object} util.Response{data=model.Quest} "成功"
// @Failure 404 {object} util.Response "任务不存在"
// @Router /api/quests/{id} [get]
func (c *QuestController) Get(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid quest id")
		return
	}

	quest, err := c.QuestService.Get(uint(id))
	if err != nil {
		util.RespondAppError(ctx, err)
		return
	}
	util.Success(ctx, quest)
}

// Nearby godoc
// @Summary 附近任务
// @Description 按距离升序返回指定坐标附近的任务
// @Tags 任务
// @Produce  json
// @Param   lat query number true "纬度"
// @Param   lon query number true "经度"
// @Param   radius query number false "搜索半径(米)" default(5000)
// @Success 200 {object} util.Response{data=[]service.NearbyQuest} "成功"
// @Failure 422 {object} util.Response "坐标非法"
// @Router /api/quests/nearby [get]
func (c *QuestController) Nearby(ctx *gin.Context) {
	lat, latErr := strconv.ParseFloat(ctx.Query("lat"), 64)
	lon, lonErr := strconv.ParseFloat(ctx.Query("lon"), 64)
	if latErr != nil || lonErr != nil {
		util.BadRequest(ctx, "lat and lon are required")
		return
	}
	radius, _ := strconv.ParseFloat(ctx.DefaultQuery("radius", "5000"), 64)

	nearby, err := c.QuestService.Nearby(geo.Point{Latitude: lat, Longitude: lon}, radius)
	if err != nil {
		util.RespondAppError(ctx, err)
		return
	}
	util.Success(ctx, nearby)
}

// CheckEligibility godoc
// @Summary 检查任务资格
// @Description 客户端预检，开始任务时服务端会再次校验
// @Tags 任务
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "任务ID"
// @Success 200 {object} util.Response{data=service.EligibilityResult} "成功"
// @Failure 404 {object} util.Response "任务不存在"
// @Router /api/quests/{id}/eligibility [get]
func (c *QuestController) CheckEligibility(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid quest id")
		return
	}

	result, _, _, err := c.EligibilityService.Check(claims.UserID, uint(id))
	if err != nil {
		util.RespondAppError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// swagger:model QuestRequest
type QuestRequest struct {
	Title             string                  `json:"title" binding:"required"`
	Description       string                  `json:"description"`
	Category          string                  `json:"category"`
	Difficulty        string                  `json:"difficulty" binding:"omitempty,oneof=beginner intermediate advanced expert"`
	Latitude          float64                 `json:"latitude" binding:"required"`
	Longitude         float64                 `json:"longitude" binding:"required"`
	RadiusMeters      float64                 `json:"radiusMeters"`
	MinLevel          int                     `json:"minLevel"`
	MaxAttempts       int                     `json:"maxAttempts"`
	AvailableFrom     *float64                `json:"availableFrom"`
	AvailableTo       *float64                `json:"availableTo"`
	BaseXP            int                     `json:"baseXp"`
	FirstTimeBonus    int                     `json:"firstTimeBonus"`
	SpeedBonus        int                     `json:"speedBonus"`
	QualityBonus      int                     `json:"qualityBonus"`
	PhotoRequirements model.PhotoRequirements `json:"photoRequirements"`
}

func (req *QuestRequest) toModel() *model.Quest {
	quest := &model.Quest{
		Title:             req.Title,
		Description:       req.Description,
		Category:          req.Category,
		Difficulty:        model.QuestDifficulty(req.Difficulty),
		Latitude:          req.Latitude,
		Longitude:         req.Longitude,
		RadiusMeters:      req.RadiusMeters,
		MinLevel:          req.MinLevel,
		MaxAttempts:       req.MaxAttempts,
		AvailableFrom:     req.AvailableFrom,
		AvailableTo:       req.AvailableTo,
		BaseXP:            req.BaseXP,
		FirstTimeBonus:    req.FirstTimeBonus,
		SpeedBonus:        req.SpeedBonus,
		QualityBonus:      req.QualityBonus,
		PhotoRequirements: datatypes.NewJSONType(req.PhotoRequirements),
	}
	if quest.Difficulty == "" {
		quest.Difficulty = model.DifficultyBeginner
	}
	return quest
}

// Create godoc
// @Summary 创建任务
// @Tags 任务管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body QuestRequest true "任务信息"
// @Success 201 {object} util.Response{data=model.Quest} "创建成功"
// @Failure 422 {object} util.Response "坐标非法"
// @Router /api/admin/quests [post]
func (c *QuestController) Create(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req QuestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quest := req.toModel()
	quest.CreatorID = claims.UserID
	if err := c.QuestService.Create(quest); err != nil {
		util.RespondAppError(ctx, err)
		return
	}
	util.Created(ctx, quest)
}

// Update godoc
// @Summary 更新任务
// @Tags 任务管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "任务ID"
// @Param   body body QuestRequest true "任务信息"
// @Success 200 {object} util.Response{data=model.Quest} "成功"
// @Failure 404 {object} util.Response "任务不存在"
// @Router /api/admin/quests/{id} [put]
func (c *QuestController) Update(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid quest id")
		return
	}

	existing, err := c.QuestService.Get(uint(id))
	if err != nil {
		util.RespondAppError(ctx, err)
		return
	}

	var req QuestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quest := req.toModel()
	quest.ID = existing.ID
	quest.CreatedAt = existing.CreatedAt
	quest.CreatorID = existing.CreatorID
	if err := c.QuestService.Update(quest); err != nil {
		util.RespondAppError(ctx, err)
		return
	}
	util.Success(ctx, quest)
}

// Archive godoc
// @Summary 下架任务
// @Description 任务从列表和资格检查中消失，历史记录保留
// @Tags 任务管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "任务ID"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "任务不存在"
// @Router /api/admin/quests/{id} [delete]
func (c *QuestController) Archive(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid quest id")
		return
	}

	if err := c.QuestService.Archive(uint(id)); err != nil {
		util.RespondAppError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// Analytics godoc
// @Summary 任务统计
// @Tags 任务管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "任务ID"
// @Success 200 {object} util.Response{data=model.QuestAnalytics} "成功"
// @Failure 404 {object} util.Response "任务不存在"
// @Router /api/admin/quests/{id}/analytics [get]
func (c *QuestController) Analytics(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid quest id")
		return
	}

	analytics, err := c.QuestService.Analytics(uint(id))
	if err != nil {
		util.RespondAppError(ctx, err)
		return
	}
	util.Success(ctx, analytics)
}

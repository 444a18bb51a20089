package controller

import (
	"os"
	"path/filepath"
	"strconv"

	"photoquest_backend/internal/geo"
	"photoquest_backend/internal/model"
	"photoquest_backend/internal/service"
	"photoquest_backend/internal/util"
	"photoquest_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AttemptController struct {
	AttemptService *service.AttemptService
}

func NewAttemptController(attemptService *service.AttemptService) *AttemptController {
	return &AttemptController{AttemptService: attemptService}
}

// swagger:model StartAttemptRequest
type StartAttemptRequest struct {
	QuestID   uint     `json:"questId" binding:"required"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Start godoc
// @Summary 开始任务
// @Description 服务端重新校验资格后创建进行中的 attempt
// @Tags 任务挑战
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body StartAttemptRequest true "开始参数"
// @Success 201 {object} util.Response{data=model.QuestAttempt} "创建成功"
// @Failure 404 {object} util.Response "任务不存在"
// @Failure 422 {object} util.Response "不符合资格"
// @Router /api/attempts [post]
func (c *AttemptController) Start(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req StartAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	var coord *geo.Point
	if req.Latitude != nil && req.Longitude != nil {
		coord = &geo.Point{Latitude: *req.Latitude, Longitude: *req.Longitude}
	}

	attempt, err := c.AttemptService.Start(claims.UserID, req.QuestID, coord)
	if err != nil {
		util.RespondAppError(ctx, err)
		return
	}
	util.Created(ctx, attempt)
}

// Cancel godoc
// @Summary 取消任务挑战
// @Tags 任务挑战
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "Attempt ID"
// @Success 200 {object} util.Response{data=model.QuestAttempt} "成功"
// @Failure 404 {object} util.Response "不存在"
// @Failure 409 {object} util.Response "已结算"
// @Router /api/attempts/{id}/cancel [post]
func (c *AttemptController) Cancel(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	attempt, err := c.AttemptService.Cancel(claims.UserID, ctx.Param("id"))
	if err != nil {
		util.RespondAppError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

// Submit godoc
// @Summary 提交照片
// @Description 上传照片并结算：地理围栏校验、自动审核、发放奖励
// @Tags 任务挑战
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "Attempt ID"
// @Param   photo formData file true "照片文件"
// @Param   latitude formData number true "拍摄纬度"
// @Param   longitude formData number true "拍摄经度"
// @Success 200 {object} util.Response{data=service.SubmitResult} "成功"
// @Failure 409 {object} util.Response "已结算"
// @Failure 422 {object} util.Response "超出范围或照片被拒"
// @Router /api/attempts/{id}/submit [post]
func (c *AttemptController) Submit(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	lat, latErr := strconv.ParseFloat(ctx.PostForm("latitude"), 64)
	lon, lonErr := strconv.ParseFloat(ctx.PostForm("longitude"), 64)
	if latErr != nil || lonErr != nil {
		util.BadRequest(ctx, "latitude and longitude are required")
		return
	}

	fileHeader, err := ctx.FormFile("photo")
	if err != nil {
		util.BadRequest(ctx, "photo file is required")
		return
	}

	// 先落到临时文件以便探测分辨率
	tmpPath := filepath.Join(os.TempDir(), model.GenerateUUID()+filepath.Ext(fileHeader.Filename))
	if err := ctx.SaveUploadedFile(fileHeader, tmpPath); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer os.Remove(tmpPath)

	probe := service.PhotoProbe{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
	}
	if info, err := util.GetPhotoInfo(tmpPath); err == nil {
		probe.Width = info.Width
		probe.Height = info.Height
	} else {
		logger.Log.Warn("failed to probe photo resolution",
			zap.String("filename", fileHeader.Filename), zap.Error(err))
	}

	photo, err := os.Open(tmpPath)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer photo.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	result, err := c.AttemptService.Submit(ctx.Request.Context(), claims.UserID, ctx.Param("id"),
		geo.Point{Latitude: lat, Longitude: lon}, probe, photo, contentType)
	if err != nil {
		util.RespondAppError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Get godoc
// @Summary 查看自己的 attempt
// @Tags 任务挑战
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "Attempt ID"
// @Success 200 {object} util.Response{data=model.QuestAttempt} "成功"
// @Failure 404 {object} util.Response "不存在"
// @Router /api/attempts/{id} [get]
func (c *AttemptController) Get(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	attempt, err := c.AttemptService.Get(claims.UserID, ctx.Param("id"))
	if err != nil {
		util.RespondAppError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

// List godoc
// @Summary 我的挑战记录
// @Tags 任务挑战
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页数量" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/attempts [get]
func (c *AttemptController) List(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	attempts, total, err := c.AttemptService.ListByUser(claims.UserID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: attempts, Total: total, Page: page, Limit: limit})
}

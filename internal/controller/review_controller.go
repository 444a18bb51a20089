package controller

import (
	"strconv"

	"photoquest_backend/internal/service"
	"photoquest_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ReviewController struct {
	ReviewService *service.ReviewService
}

func NewReviewController(reviewService *service.ReviewService) *ReviewController {
	return &ReviewController{ReviewService: reviewService}
}

// Queue godoc
// @Summary 人工审核队列
// @Description 待审提交按提交时间升序
// @Tags 审核
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页数量" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/moderation/queue [get]
func (c *ReviewController) Queue(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	submissions, total, err := c.ReviewService.ListPending(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: submissions, Total: total, Page: page, Limit: limit})
}

// swagger:model ResolveRequest
type ResolveRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes"`
}

// Resolve godoc
// @Summary 裁决待审提交
// @Description 通过则补发奖励，拒绝则删除照片并零奖励结算
// @Tags 审核
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "Submission ID"
// @Param   body body ResolveRequest true "裁决"
// @Success 200 {object} util.Response{data=model.Submission} "成功"
// @Failure 404 {object} util.Response "不存在"
// @Failure 409 {object} util.Response "已裁决"
// @Router /api/moderation/{id}/resolve [post]
func (c *ReviewController) Resolve(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req ResolveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	submission, err := c.ReviewService.Resolve(ctx.Request.Context(), claims.UserID, ctx.Param("id"), req.Approve, req.Notes)
	if err != nil {
		util.RespondAppError(ctx, err)
		return
	}
	util.Success(ctx, submission)
}

// AuditTrail godoc
// @Summary 审核日志
// @Tags 审核
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "Submission ID"
// @Success 200 {object} util.Response{data=[]model.ModerationLog} "成功"
// @Router /api/moderation/{id}/audit [get]
func (c *ReviewController) AuditTrail(ctx *gin.Context) {
	entries, err := c.ReviewService.AuditTrail(ctx.Param("id"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}

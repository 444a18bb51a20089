package controller

import (
	"photoquest_backend/internal/service"
	"photoquest_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SubmissionController struct {
	SubmissionService *service.SubmissionService
}

func NewSubmissionController(submissionService *service.SubmissionService) *SubmissionController {
	return &SubmissionController{SubmissionService: submissionService}
}

// Get godoc
// @Summary 提交详情
// @Tags 提交
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "Submission ID"
// @Success 200 {object} util.Response{data=model.Submission} "成功"
// @Failure 404 {object} util.Response "不存在"
// @Router /api/submissions/{id} [get]
func (c *SubmissionController) Get(ctx *gin.Context) {
	submission, err := c.SubmissionService.Get(ctx.Param("id"))
	if err != nil {
		util.RespondAppError(ctx, err)
		return
	}
	util.Success(ctx, submission)
}

// Vote godoc
// @Summary 点赞提交
// @Description 每人对每个提交只能点赞一次，不能给自己点赞
// @Tags 提交
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "Submission ID"
// @Success 200 {object} util.Response{data=model.Submission} "成功"
// @Failure 409 {object} util.Response "已点赞"
// @Failure 422 {object} util.Response "不可点赞"
// @Router /api/submissions/{id}/vote [post]
func (c *SubmissionController) Vote(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	submission, err := c.SubmissionService.Vote(claims.UserID, ctx.Param("id"))
	if err != nil {
		util.RespondAppError(ctx, err)
		return
	}
	util.Success(ctx, submission)
}

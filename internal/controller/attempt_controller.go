package controller

import (
	"errors"
	"quiz_engine_backend/internal/service"
	"quiz_engine_backend/internal/session"
	"quiz_engine_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	Service *service.AttemptService
}

func NewAttemptController(svc *service.AttemptService) *AttemptController {
	return &AttemptController{Service: svc}
}

// @Summary Get my attempt on a quiz
// @Description data is omitted when the caller has not attempted the quiz.
// @Tags Attempt
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Quiz ID"
// @Success 200 {object} util.Response
// @Router /quizzes/{id}/attempts/me [get]
func (c *AttemptController) MyResult(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	attempt, err := c.Service.Result(ctx.Request.Context(), ctx.Param("id"), actor.ID)
	if errors.Is(err, util.ErrAttemptNotFound) {
		util.Success(ctx, nil)
		return
	}
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"attempt": attempt, "review": session.BuildReview(attempt, "")})
}

// @Summary Submit answers for grading
// @Tags Attempt
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Quiz ID"
// @Param body body SubmitAttemptReq true "Answers keyed by 0-based position"
// @Success 201 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /student/quizzes/{id}/attempts [post]
func (c *AttemptController) Submit(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	var req SubmitAttemptReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	attempt, err := c.Service.Submit(ctx.Request.Context(), ctx.Param("id"), actor.ID, req.Answers)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, attempt)
}

// @Summary Attempt analytics for a quiz
// @Tags Analytics
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Quiz ID"
// @Success 200 {object} util.Response
// @Router /teacher/quizzes/{id}/attempts [get]
func (c *AttemptController) Summary(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	summary, err := c.Service.Summary(ctx.Request.Context(), actor, ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}

package controller

import (
	"quiz_engine_backend/internal/session"
	"quiz_engine_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// TakingController exposes the learner's attempt-taking sessions.
type TakingController struct {
	Sessions *session.Manager
}

func NewTakingController(sessions *session.Manager) *TakingController {
	return &TakingController{Sessions: sessions}
}

func (c *TakingController) load(ctx *gin.Context) (*session.TakingSession, bool) {
	actor, ok := currentActor(ctx)
	if !ok {
		return nil, false
	}
	s, err := c.Sessions.Taking(ctx.Request.Context(), actor, ctx.Param("sid"))
	if err != nil {
		util.RespondError(ctx, err)
		return nil, false
	}
	return s, true
}

// @Summary Open a taking session
// @Description Goes straight to the result when the learner already has an attempt.
// @Tags Taking
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body OpenTakingReq true "quizId or subjectId"
// @Success 201 {object} util.Response
// @Router /student/taking [post]
func (c *TakingController) Open(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	var req OpenTakingReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if req.QuizID == "" && req.SubjectID == "" {
		util.BadRequest(ctx, "quizId or subjectId is required")
		return
	}

	s, err := c.Sessions.OpenTaking(ctx.Request.Context(), actor, session.QuizRef{QuizID: req.QuizID, SubjectID: req.SubjectID})
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, s.View())
}

// @Summary Get a taking session
// @Tags Taking
// @Produce json
// @Security ApiKeyAuth
// @Param sid path string true "Session ID"
// @Success 200 {object} util.Response
// @Router /student/taking/{sid} [get]
func (c *TakingController) Get(ctx *gin.Context) {
	if s, ok := c.load(ctx); ok {
		util.Success(ctx, s.View())
	}
}

// @Summary Begin answering
// @Tags Taking
// @Produce json
// @Security ApiKeyAuth
// @Param sid path string true "Session ID"
// @Success 200 {object} util.Response
// @Router /student/taking/{sid}/begin [post]
func (c *TakingController) Begin(ctx *gin.Context) {
	s, ok := c.load(ctx)
	if !ok {
		return
	}
	if err := s.Begin(ctx.Request.Context()); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, s.View())
}

// @Summary Answer a question
// @Description An empty answer clears the position.
// @Tags Taking
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param sid path string true "Session ID"
// @Param pos path int true "0-based position"
// @Param body body AnswerReq true "Answer"
// @Success 200 {object} util.Response
// @Router /student/taking/{sid}/answers/{pos} [put]
func (c *TakingController) Answer(ctx *gin.Context) {
	s, ok := c.load(ctx)
	if !ok {
		return
	}
	pos, ok := positionParam(ctx)
	if !ok {
		return
	}
	var req AnswerReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := s.Answer(ctx.Request.Context(), pos, req.Answer); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, s.View())
}

// @Summary Submit for grading
// @Tags Taking
// @Produce json
// @Security ApiKeyAuth
// @Param sid path string true "Session ID"
// @Success 200 {object} util.Response
// @Router /student/taking/{sid}/submit [post]
func (c *TakingController) Submit(ctx *gin.Context) {
	s, ok := c.load(ctx)
	if !ok {
		return
	}
	if _, err := s.Submit(ctx.Request.Context()); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, s.View())
}

// @Summary Watch a taking session
// @Description Upgrades to a websocket that receives the session view after every change. Pass the JWT as the token query parameter.
// @Tags Taking
// @Security ApiKeyAuth
// @Param sid path string true "Session ID"
// @Param token query string false "JWT for browsers"
// @Success 101
// @Router /student/taking/{sid}/ws [get]
func (c *TakingController) Watch(ctx *gin.Context) {
	s, ok := c.load(ctx)
	if !ok {
		return
	}
	c.Sessions.Hub.Watch(ctx.Writer, ctx.Request, s.Owner.ID, session.Event{
		Type:      session.EventTaking,
		SessionID: s.ID,
		Data:      s.View(),
	})
}

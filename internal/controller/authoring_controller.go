package controller

import (
	"quiz_engine_backend/internal/session"
	"quiz_engine_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// AuthoringController exposes the teacher's quiz editor sessions.
type AuthoringController struct {
	Sessions *session.Manager
}

func NewAuthoringController(sessions *session.Manager) *AuthoringController {
	return &AuthoringController{Sessions: sessions}
}

func (c *AuthoringController) load(ctx *gin.Context) (*session.AuthoringSession, bool) {
	actor, ok := currentActor(ctx)
	if !ok {
		return nil, false
	}
	s, err := c.Sessions.Authoring(ctx.Request.Context(), actor, ctx.Param("sid"))
	if err != nil {
		util.RespondError(ctx, err)
		return nil, false
	}
	return s, true
}

// reply sends the session view, or maps err.
func reply(ctx *gin.Context, s *session.AuthoringSession, err error) {
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, s.View())
}

// @Summary Open an authoring session for a subject
// @Description Loads the subject's quiz for review when one exists, otherwise starts in drafting.
// @Tags Authoring
// @Produce json
// @Security ApiKeyAuth
// @Param subjectId path string true "Subject ID"
// @Success 201 {object} util.Response
// @Router /teacher/subjects/{subjectId}/authoring [post]
func (c *AuthoringController) Open(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	s, err := c.Sessions.OpenAuthoring(ctx.Request.Context(), actor, ctx.Param("subjectId"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, s.View())
}

// @Summary Get an authoring session
// @Tags Authoring
// @Produce json
// @Security ApiKeyAuth
// @Param sid path string true "Session ID"
// @Success 200 {object} util.Response
// @Router /teacher/authoring/{sid} [get]
func (c *AuthoringController) Get(ctx *gin.Context) {
	if s, ok := c.load(ctx); ok {
		util.Success(ctx, s.View())
	}
}

// @Summary Replace the draft with generated questions
// @Tags Authoring
// @Produce json
// @Security ApiKeyAuth
// @Param sid path string true "Session ID"
// @Success 200 {object} util.Response
// @Failure 422 {object} util.Response
// @Router /teacher/authoring/{sid}/generate [post]
func (c *AuthoringController) Generate(ctx *gin.Context) {
	if s, ok := c.load(ctx); ok {
		reply(ctx, s, s.Generate(ctx.Request.Context()))
	}
}

// @Summary Start an empty draft
// @Tags Authoring
// @Produce json
// @Security ApiKeyAuth
// @Param sid path string true "Session ID"
// @Success 200 {object} util.Response
// @Router /teacher/authoring/{sid}/scratch [post]
func (c *AuthoringController) StartFromScratch(ctx *gin.Context) {
	if s, ok := c.load(ctx); ok {
		reply(ctx, s, s.StartFromScratch(ctx.Request.Context()))
	}
}

// @Summary Append a question
// @Description Sending only a kind appends a blank question of that kind.
// @Tags Authoring
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param sid path string true "Session ID"
// @Param body body QuestionReq true "Question"
// @Success 200 {object} util.Response
// @Router /teacher/authoring/{sid}/questions [post]
func (c *AuthoringController) AddQuestion(ctx *gin.Context) {
	s, ok := c.load(ctx)
	if !ok {
		return
	}
	var req QuestionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	reply(ctx, s, s.AddQuestion(ctx.Request.Context(), req.toModel()))
}

// @Summary Edit a question
// @Tags Authoring
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param sid path string true "Session ID"
// @Param pos path int true "0-based position"
// @Param body body QuestionReq true "Question"
// @Success 200 {object} util.Response
// @Router /teacher/authoring/{sid}/questions/{pos} [put]
func (c *AuthoringController) ReplaceQuestion(ctx *gin.Context) {
	s, ok := c.load(ctx)
	if !ok {
		return
	}
	pos, ok := positionParam(ctx)
	if !ok {
		return
	}
	var req QuestionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	q := toQuestions([]QuestionReq{req})[0]
	reply(ctx, s, s.ReplaceQuestion(ctx.Request.Context(), pos, q))
}

// @Summary Remove a question
// @Description Later questions shift down by one position.
// @Tags Authoring
// @Produce json
// @Security ApiKeyAuth
// @Param sid path string true "Session ID"
// @Param pos path int true "0-based position"
// @Success 200 {object} util.Response
// @Router /teacher/authoring/{sid}/questions/{pos} [delete]
func (c *AuthoringController) RemoveQuestion(ctx *gin.Context) {
	s, ok := c.load(ctx)
	if !ok {
		return
	}
	pos, ok := positionParam(ctx)
	if !ok {
		return
	}
	reply(ctx, s, s.RemoveQuestion(ctx.Request.Context(), pos))
}

// @Summary Edit title and description
// @Tags Authoring
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param sid path string true "Session ID"
// @Param body body MetaReq true "Metadata"
// @Success 200 {object} util.Response
// @Router /teacher/authoring/{sid}/meta [patch]
func (c *AuthoringController) SetMeta(ctx *gin.Context) {
	s, ok := c.load(ctx)
	if !ok {
		return
	}
	var req MetaReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	reply(ctx, s, s.SetMeta(ctx.Request.Context(), req.Title, req.Description))
}

// @Summary Validate and save the draft
// @Tags Authoring
// @Produce json
// @Security ApiKeyAuth
// @Param sid path string true "Session ID"
// @Success 200 {object} util.Response
// @Failure 422 {object} util.Response
// @Router /teacher/authoring/{sid}/save [post]
func (c *AuthoringController) Save(ctx *gin.Context) {
	s, ok := c.load(ctx)
	if !ok {
		return
	}
	quiz, err := s.Save(ctx.Request.Context())
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"quiz": quiz, "session": s.View()})
}

// @Summary Cancel the session
// @Description Discards unsaved edits. The stored quiz is untouched.
// @Tags Authoring
// @Produce json
// @Security ApiKeyAuth
// @Param sid path string true "Session ID"
// @Success 200 {object} util.Response
// @Router /teacher/authoring/{sid} [delete]
func (c *AuthoringController) Cancel(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	if err := c.Sessions.CloseAuthoring(ctx.Request.Context(), actor, ctx.Param("sid")); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary Watch an authoring session
// @Description Upgrades to a websocket that receives the session view after every change. Pass the JWT as the token query parameter.
// @Tags Authoring
// @Security ApiKeyAuth
// @Param sid path string true "Session ID"
// @Param token query string false "JWT for browsers"
// @Success 101
// @Router /teacher/authoring/{sid}/ws [get]
func (c *AuthoringController) Watch(ctx *gin.Context) {
	s, ok := c.load(ctx)
	if !ok {
		return
	}
	c.Sessions.Hub.Watch(ctx.Writer, ctx.Request, s.Owner.ID, session.Event{
		Type:      session.EventAuthoring,
		SessionID: s.ID,
		Data:      s.View(),
	})
}

package controller

import (
	"quiz_engine_backend/internal/model"
	"quiz_engine_backend/internal/service"
	"quiz_engine_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	Service   *service.QuizService
	Generator service.DraftGenerator
}

func NewQuizController(svc *service.QuizService, generator service.DraftGenerator) *QuizController {
	return &QuizController{Service: svc, Generator: generator}
}

// @Summary Check whether a subject has a quiz
// @Tags Quiz
// @Produce json
// @Security ApiKeyAuth
// @Param subjectId query string true "Subject ID"
// @Success 200 {object} util.Response
// @Router /quizzes/exists [get]
func (c *QuizController) Exists(ctx *gin.Context) {
	subjectID := ctx.Query("subjectId")
	if subjectID == "" {
		util.BadRequest(ctx, "subjectId is required")
		return
	}

	quizID, exists, err := c.Service.Exists(ctx.Request.Context(), subjectID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	resp := gin.H{"exists": exists}
	if exists {
		resp["quizId"] = quizID
	}
	util.Success(ctx, resp)
}

// @Summary Get a quiz
// @Description Teachers receive the full quiz, learners an answer-free view.
// @Tags Quiz
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Quiz ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /quizzes/{id} [get]
func (c *QuizController) Get(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	quiz, err := c.Service.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, present(actor, quiz))
}

// @Summary Get the quiz of a subject
// @Tags Quiz
// @Produce json
// @Security ApiKeyAuth
// @Param subjectId path string true "Subject ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /subjects/{subjectId}/quiz [get]
func (c *QuizController) GetBySubject(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	quiz, err := c.Service.GetBySubject(ctx.Request.Context(), ctx.Param("subjectId"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, present(actor, quiz))
}

// @Summary List the quizzes of a subject
// @Tags Quiz
// @Produce json
// @Security ApiKeyAuth
// @Param subjectId path string true "Subject ID"
// @Success 200 {object} util.Response
// @Router /subjects/{subjectId}/quizzes [get]
func (c *QuizController) ListBySubject(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	quizzes, err := c.Service.ListBySubject(ctx.Request.Context(), ctx.Param("subjectId"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	items := make([]interface{}, len(quizzes))
	for i := range quizzes {
		items[i] = present(actor, &quizzes[i])
	}
	util.Success(ctx, gin.H{"items": items, "total": len(items)})
}

// present hides correct answers from learners.
func present(actor model.Actor, quiz *model.Quiz) interface{} {
	if actor.Role == model.Teacher || actor.Role == model.Admin {
		return quiz
	}
	return quiz.LearnerView()
}

// @Summary Save a quiz
// @Description Creates the subject's quiz, or fully replaces it when an id is given or the subject already has one.
// @Tags Quiz
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body SaveQuizReq true "Quiz"
// @Success 200 {object} util.Response
// @Failure 422 {object} util.Response
// @Router /teacher/quizzes [post]
func (c *QuizController) Save(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	var req SaveQuizReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz := &model.Quiz{
		SubjectID:   req.SubjectID,
		Title:       req.Title,
		Description: req.Description,
		Questions:   toQuestions(req.Questions),
	}
	quiz.ID = req.ID

	saved, err := c.Service.Save(ctx.Request.Context(), actor, quiz)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, saved)
}

// @Summary Delete a quiz
// @Tags Quiz
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Quiz ID"
// @Success 200 {object} util.Response
// @Router /teacher/quizzes/{id} [delete]
func (c *QuizController) Delete(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	if err := c.Service.Delete(ctx.Request.Context(), actor, ctx.Param("id")); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary Draft questions from subject materials
// @Description Returns a fresh batch of questions. Nothing is saved.
// @Tags Quiz
// @Produce json
// @Security ApiKeyAuth
// @Param subjectId path string true "Subject ID"
// @Success 200 {object} util.Response
// @Failure 422 {object} util.Response
// @Failure 502 {object} util.Response
// @Router /teacher/subjects/{subjectId}/draft [post]
func (c *QuizController) GenerateDraft(ctx *gin.Context) {
	questions, err := c.Generator.Generate(ctx.Request.Context(), ctx.Param("subjectId"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"questions": questions})
}

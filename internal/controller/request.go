package controller

import (
	"quiz_engine_backend/internal/model"
	"quiz_engine_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type QuestionReq struct {
	Text          string   `json:"text"`
	Kind          string   `json:"kind" binding:"required,questionkind"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

// toModel converts a validated request. A request that names only a kind
// yields the blank starting question for that kind.
func (r QuestionReq) toModel() model.Question {
	kind, _ := model.ParseQuestionKind(r.Kind)
	if r.Text == "" && len(r.Options) == 0 && r.CorrectAnswer == "" {
		return model.BlankQuestion(kind)
	}
	return model.NewQuestion(r.Text, kind, r.Options, r.CorrectAnswer)
}

func toQuestions(reqs []QuestionReq) []model.Question {
	qs := make([]model.Question, len(reqs))
	for i, r := range reqs {
		kind, _ := model.ParseQuestionKind(r.Kind)
		qs[i] = model.NewQuestion(r.Text, kind, r.Options, r.CorrectAnswer)
	}
	return qs
}

type SaveQuizReq struct {
	ID          string        `json:"id"`
	SubjectID   string        `json:"subjectId" binding:"required"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Questions   []QuestionReq `json:"questions" binding:"dive"`
}

type MetaReq struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type SubmitAttemptReq struct {
	Answers model.Answers `json:"answers" binding:"required"`
}

type OpenTakingReq struct {
	QuizID    string `json:"quizId"`
	SubjectID string `json:"subjectId"`
}

type AnswerReq struct {
	Answer string `json:"answer"`
}

// RegisterValidators adds the custom binding tags to gin's validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("questionkind", func(fl validator.FieldLevel) bool {
		_, err := model.ParseQuestionKind(fl.Field().String())
		return err == nil
	})
}

// currentActor reads the authenticated caller; it aborts with 401 when absent.
func currentActor(ctx *gin.Context) (model.Actor, bool) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return model.Actor{}, false
	}
	return model.Actor{ID: user.UserID, Role: user.Role}, true
}

// positionParam reads a 0-based question position from the path.
func positionParam(ctx *gin.Context) (int, bool) {
	pos := util.ParsePosition(ctx.Param("pos"))
	if pos < 0 {
		util.BadRequest(ctx, "invalid question position")
		return 0, false
	}
	return pos, true
}

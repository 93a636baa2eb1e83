package model

import "gorm.io/datatypes"

// swagger:model Quiz
type Quiz struct {
	UUIDBase
	SubjectID   string                        `gorm:"size:64;index;not null" json:"subjectId"`
	TeacherID   string                        `gorm:"size:64;index" json:"teacherId"`
	Title       string                        `gorm:"size:255;not null" json:"title"`
	Description string                        `gorm:"type:text" json:"description"`
	Questions   datatypes.JSONSlice[Question] `gorm:"type:json" json:"questions"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

func (q *Quiz) Clone() *Quiz {
	c := *q
	c.Questions = CloneQuestions(q.Questions)
	return &c
}

// Input widgets a learner client renders per question kind.
const (
	InputRadio  = "radio"
	InputToggle = "toggle"
	InputText   = "text"
)

type LearnerQuestion struct {
	Position int          `json:"position"`
	Text     string       `json:"text"`
	Kind     QuestionKind `json:"kind"`
	Options  []string     `json:"options,omitempty"`
	Input    string       `json:"input"`
}

// LearnerQuiz is what a learner may see before submitting: no correct answers.
type LearnerQuiz struct {
	ID            string            `json:"id"`
	SubjectID     string            `json:"subjectId"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	QuestionCount int               `json:"questionCount"`
	Questions     []LearnerQuestion `json:"questions"`
}

func (q *Quiz) LearnerView() LearnerQuiz {
	view := LearnerQuiz{
		ID:            q.ID,
		SubjectID:     q.SubjectID,
		Title:         q.Title,
		Description:   q.Description,
		QuestionCount: len(q.Questions),
		Questions:     make([]LearnerQuestion, len(q.Questions)),
	}
	for i, question := range q.Questions {
		lq := LearnerQuestion{
			Position: i,
			Text:     question.Text,
			Kind:     question.Kind(),
			Options:  question.Options(),
		}
		switch question.Body.(type) {
		case MultipleChoice:
			lq.Input = InputRadio
		case TrueFalse:
			lq.Input = InputToggle
		default:
			lq.Input = InputText
		}
		view.Questions[i] = lq
	}
	return view
}

package model

import (
	"math"
	"time"

	"gorm.io/datatypes"
)

// Answers maps a question position to the learner's answer.
type Answers map[int]string

func (a Answers) Get(pos int) string {
	if a == nil {
		return ""
	}
	return a[pos]
}

func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// QuestionResult is the graded outcome of one question, frozen at submission.
type QuestionResult struct {
	Position      int          `json:"position"`
	Text          string       `json:"text"`
	Kind          QuestionKind `json:"kind"`
	Answer        string       `json:"answer"`
	CorrectAnswer string       `json:"correctAnswer"`
	Correct       bool         `json:"correct"`
}

// swagger:model Attempt
type Attempt struct {
	UUIDBase
	QuizID        string                              `gorm:"type:varchar(36);not null;uniqueIndex:idx_attempts_quiz_learner" json:"quizId"`
	LearnerID     string                              `gorm:"size:64;not null;uniqueIndex:idx_attempts_quiz_learner" json:"learnerId"`
	Answers       datatypes.JSONType[Answers]         `gorm:"type:json" json:"answers"`
	Results       datatypes.JSONSlice[QuestionResult] `gorm:"type:json" json:"results"`
	Score         float64                             `json:"score"`
	CorrectCount  int                                 `json:"correctCount"`
	QuestionCount int                                 `json:"questionCount"`
	CompletedAt   time.Time                           `json:"completedAt"`
}

func (Attempt) TableName() string {
	return "quiz_attempts"
}

// RoundedScore is the whole-percent score shown to users.
func (a *Attempt) RoundedScore() int {
	return int(math.Round(a.Score))
}

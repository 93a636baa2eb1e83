package model

import (
	"fmt"
	"strings"
)

type Defect string

const (
	DefectNoSubject          Defect = "no subject"
	DefectEmptyTitle         Defect = "empty title"
	DefectNoQuestions        Defect = "no questions"
	DefectEmptyText          Defect = "empty text"
	DefectUnknownKind        Defect = "unknown question kind"
	DefectNoOptions          Defect = "no options"
	DefectEmptyOption        Defect = "empty option"
	DefectNoCorrectAnswer    Defect = "no correct answer selected"
	DefectAnswerNotAnOption  Defect = "correct answer is not one of the options"
	DefectAnswerNotTrueFalse Defect = "correct answer must be True or False"
)

// ValidationError reports the first defect found in a quiz draft.
// Position is 1-based; 0 means the defect is on the quiz itself.
type ValidationError struct {
	Position int    `json:"position,omitempty"`
	Field    string `json:"field"`
	Defect   Defect `json:"defect"`
}

func (e *ValidationError) Error() string {
	if e.Position == 0 {
		return fmt.Sprintf("%s: %s", e.Field, e.Defect)
	}
	return fmt.Sprintf("question %d: %s: %s", e.Position, e.Field, e.Defect)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ValidateQuestion checks a single question. The returned error, if any,
// is a *ValidationError without a position.
func ValidateQuestion(q Question) error {
	if blank(q.Text) {
		return &ValidationError{Field: "text", Defect: DefectEmptyText}
	}
	switch b := q.Body.(type) {
	case MultipleChoice:
		if len(b.Options) == 0 {
			return &ValidationError{Field: "options", Defect: DefectNoOptions}
		}
		for _, opt := range b.Options {
			if blank(opt) {
				return &ValidationError{Field: "options", Defect: DefectEmptyOption}
			}
		}
		if blank(b.Answer) {
			return &ValidationError{Field: "correctAnswer", Defect: DefectNoCorrectAnswer}
		}
		for _, opt := range b.Options {
			if opt == b.Answer {
				return nil
			}
		}
		return &ValidationError{Field: "correctAnswer", Defect: DefectAnswerNotAnOption}
	case TrueFalse:
		if blank(b.Answer) {
			return &ValidationError{Field: "correctAnswer", Defect: DefectNoCorrectAnswer}
		}
		if b.Answer != AnswerTrue && b.Answer != AnswerFalse {
			return &ValidationError{Field: "correctAnswer", Defect: DefectAnswerNotTrueFalse}
		}
		return nil
	case ShortAnswer:
		if blank(b.Answer) {
			return &ValidationError{Field: "correctAnswer", Defect: DefectNoCorrectAnswer}
		}
		return nil
	default:
		return &ValidationError{Field: "kind", Defect: DefectUnknownKind}
	}
}

// ValidateQuiz runs the save gate: a non-empty title, at least one question
// and every question valid. The first defect wins.
func ValidateQuiz(title string, questions []Question) error {
	if blank(title) {
		return &ValidationError{Field: "title", Defect: DefectEmptyTitle}
	}
	if len(questions) == 0 {
		return &ValidationError{Field: "questions", Defect: DefectNoQuestions}
	}
	for i, q := range questions {
		if err := ValidateQuestion(q); err != nil {
			ve := err.(*ValidationError)
			ve.Position = i + 1
			return ve
		}
	}
	return nil
}

package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

type QuestionKind string

const (
	MultipleChoiceKind QuestionKind = "multiple_choice"
	TrueFalseKind      QuestionKind = "true_false"
	ShortAnswerKind    QuestionKind = "short_answer"
)

const (
	AnswerTrue  = "True"
	AnswerFalse = "False"
)

// ParseQuestionKind accepts the canonical kind names plus the short aliases
// produced by the draft generator.
func ParseQuestionKind(s string) (QuestionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "multiple_choice", "multiplechoice", "multiple-choice", "mcq", "single_choice":
		return MultipleChoiceKind, nil
	case "true_false", "truefalse", "true-false", "tf", "boolean":
		return TrueFalseKind, nil
	case "short_answer", "shortanswer", "short-answer", "short", "fill_blank":
		return ShortAnswerKind, nil
	}
	return "", fmt.Errorf("unknown question kind %q", s)
}

// QuestionBody is the kind-specific payload of a question. The set of
// implementations is closed: MultipleChoice, TrueFalse and ShortAnswer.
type QuestionBody interface {
	Kind() QuestionKind
	CorrectAnswer() string
	// Choices are the answers a learner picks from; nil for free text.
	Choices() []string
	isQuestionBody()
}

type MultipleChoice struct {
	Options []string
	Answer  string
}

func (MultipleChoice) Kind() QuestionKind      { return MultipleChoiceKind }
func (b MultipleChoice) CorrectAnswer() string { return b.Answer }
func (b MultipleChoice) Choices() []string     { return append([]string(nil), b.Options...) }
func (MultipleChoice) isQuestionBody()         {}

type TrueFalse struct {
	Answer string
}

func (TrueFalse) Kind() QuestionKind      { return TrueFalseKind }
func (b TrueFalse) CorrectAnswer() string { return b.Answer }
func (TrueFalse) Choices() []string       { return []string{AnswerTrue, AnswerFalse} }
func (TrueFalse) isQuestionBody()         {}

type ShortAnswer struct {
	Answer string
}

func (ShortAnswer) Kind() QuestionKind      { return ShortAnswerKind }
func (b ShortAnswer) CorrectAnswer() string { return b.Answer }
func (ShortAnswer) Choices() []string       { return nil }
func (ShortAnswer) isQuestionBody()         {}

// Question is one assessable item. Body is nil only for a question whose
// kind could not be decoded; such a question never passes validation.
type Question struct {
	Text string
	Body QuestionBody
}

func (q Question) Kind() QuestionKind {
	if q.Body == nil {
		return ""
	}
	return q.Body.Kind()
}

func (q Question) CorrectAnswer() string {
	if q.Body == nil {
		return ""
	}
	return q.Body.CorrectAnswer()
}

func (q Question) Options() []string {
	if q.Body == nil {
		return nil
	}
	return q.Body.Choices()
}

// Clone returns a deep copy so drafts never share option slices.
func (q Question) Clone() Question {
	if mc, ok := q.Body.(MultipleChoice); ok {
		mc.Options = append([]string(nil), mc.Options...)
		q.Body = mc
	}
	return q
}

// BlankQuestion is the starting point for a question added by hand.
func BlankQuestion(kind QuestionKind) Question {
	return Question{Body: blankBody(kind)}
}

func blankBody(kind QuestionKind) QuestionBody {
	switch kind {
	case TrueFalseKind:
		return TrueFalse{}
	case ShortAnswerKind:
		return ShortAnswer{}
	default:
		return MultipleChoice{Options: make([]string, 4)}
	}
}

// WithKind switches the question to another kind, keeping the prompt and
// whatever part of the answer still makes sense for the new kind.
func (q Question) WithKind(kind QuestionKind) Question {
	if q.Kind() == kind {
		return q.Clone()
	}
	answer := q.CorrectAnswer()
	next := Question{Text: q.Text, Body: blankBody(kind)}
	switch kind {
	case TrueFalseKind:
		if answer == AnswerTrue || answer == AnswerFalse {
			next.Body = TrueFalse{Answer: answer}
		}
	case ShortAnswerKind:
		next.Body = ShortAnswer{Answer: answer}
	}
	return next
}

type questionJSON struct {
	Text          string       `json:"text"`
	Kind          QuestionKind `json:"kind"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer"`
}

func (q Question) MarshalJSON() ([]byte, error) {
	w := questionJSON{Text: q.Text, Kind: q.Kind(), CorrectAnswer: q.CorrectAnswer()}
	if mc, ok := q.Body.(MultipleChoice); ok {
		w.Options = mc.Options
		if w.Options == nil {
			w.Options = []string{}
		}
	}
	return json.Marshal(w)
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var w questionJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	kind, err := ParseQuestionKind(string(w.Kind))
	if err != nil {
		return err
	}
	q.Text = w.Text
	switch kind {
	case MultipleChoiceKind:
		q.Body = MultipleChoice{Options: w.Options, Answer: w.CorrectAnswer}
	case TrueFalseKind:
		q.Body = TrueFalse{Answer: w.CorrectAnswer}
	case ShortAnswerKind:
		q.Body = ShortAnswer{Answer: w.CorrectAnswer}
	}
	return nil
}

// NewQuestion builds a question from its flat wire fields.
func NewQuestion(text string, kind QuestionKind, options []string, correctAnswer string) Question {
	switch kind {
	case MultipleChoiceKind:
		return Question{Text: text, Body: MultipleChoice{Options: append([]string(nil), options...), Answer: correctAnswer}}
	case TrueFalseKind:
		return Question{Text: text, Body: TrueFalse{Answer: correctAnswer}}
	case ShortAnswerKind:
		return Question{Text: text, Body: ShortAnswer{Answer: correctAnswer}}
	}
	return Question{Text: text}
}

func CloneQuestions(qs []Question) []Question {
	if qs == nil {
		return nil
	}
	out := make([]Question, len(qs))
	for i, q := range qs {
		out[i] = q.Clone()
	}
	return out
}

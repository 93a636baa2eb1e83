package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionDecodesKindAliases(t *testing.T) {
	raw := `[
		{"text":"Capital of France?","kind":"mcq","options":["Paris","Rome"],"correctAnswer":"Paris"},
		{"text":"The sky is green","kind":"TF","correctAnswer":"False"},
		{"text":"6*7","kind":"short","options":["ignored"],"correctAnswer":"42"}
	]`

	var qs []Question
	require.NoError(t, json.Unmarshal([]byte(raw), &qs))
	require.Len(t, qs, 3)

	assert.Equal(t, MultipleChoice{Options: []string{"Paris", "Rome"}, Answer: "Paris"}, qs[0].Body)
	assert.Equal(t, TrueFalse{Answer: AnswerFalse}, qs[1].Body)
	assert.Equal(t, ShortAnswer{Answer: "42"}, qs[2].Body)
	assert.Nil(t, qs[2].Options())
	assert.Equal(t, []string{AnswerTrue, AnswerFalse}, qs[1].Options())
}

func TestQuestionRejectsUnknownKind(t *testing.T) {
	var q Question
	err := json.Unmarshal([]byte(`{"text":"x","kind":"essay","correctAnswer":"y"}`), &q)
	assert.Error(t, err)
}

func TestQuestionEncodingOmitsOptionsForNonChoiceKinds(t *testing.T) {
	data, err := json.Marshal(NewQuestion("6*7", ShortAnswerKind, nil, "42"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"6*7","kind":"short_answer","correctAnswer":"42"}`, string(data))
}

func TestCloneDoesNotShareOptions(t *testing.T) {
	q := NewQuestion("Q", MultipleChoiceKind, []string{"a", "b"}, "a")
	c := q.Clone()
	c.Body.(MultipleChoice).Options[0] = "changed"

	assert.Equal(t, "a", q.Body.(MultipleChoice).Options[0])
}

func TestWithKind(t *testing.T) {
	mcq := NewQuestion("Is Go compiled?", MultipleChoiceKind, []string{"True", "False"}, "True")

	tf := mcq.WithKind(TrueFalseKind)
	assert.Equal(t, "Is Go compiled?", tf.Text)
	assert.Equal(t, TrueFalse{Answer: AnswerTrue}, tf.Body)

	back := tf.WithKind(MultipleChoiceKind)
	assert.Equal(t, MultipleChoice{Options: make([]string, 4)}, back.Body)

	short := NewQuestion("6*7", ShortAnswerKind, nil, "42").WithKind(TrueFalseKind)
	assert.Equal(t, TrueFalse{}, short.Body)
}

func TestLearnerViewHidesAnswers(t *testing.T) {
	quiz := &Quiz{
		Title: "Geo",
		Questions: []Question{
			NewQuestion("Capital of France?", MultipleChoiceKind, []string{"Paris", "Rome", "Oslo"}, "Paris"),
			NewQuestion("Paris is in France", TrueFalseKind, nil, AnswerTrue),
			NewQuestion("6*7", ShortAnswerKind, nil, "42"),
		},
	}
	quiz.ID = "quiz-1"

	view := quiz.LearnerView()

	assert.Equal(t, 3, view.QuestionCount)
	assert.Equal(t, InputRadio, view.Questions[0].Input)
	assert.Len(t, view.Questions[0].Options, 3)
	assert.Equal(t, InputToggle, view.Questions[1].Input)
	assert.Equal(t, InputText, view.Questions[2].Input)

	data, err := json.Marshal(view)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "correctAnswer")
	assert.NotContains(t, string(data), "42")
}

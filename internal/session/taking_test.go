package session

import (
	"context"
	"errors"
	"quiz_engine_backend/internal/model"
	"quiz_engine_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTakingFlowScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	quiz := f.seedQuiz(t, "geo")

	s, err := f.manager.OpenTaking(ctx, learner, QuizRef{QuizID: quiz.ID})
	require.NoError(t, err)
	assert.Equal(t, TakingStart, s.State())

	view := s.View()
	require.NotNil(t, view.Quiz)
	assert.Equal(t, "Week 1", view.Quiz.Title)
	assert.Equal(t, 3, view.Quiz.QuestionCount)

	assert.ErrorIs(t, s.Answer(ctx, 0, "Paris"), util.ErrInvalidTransition)
	require.NoError(t, s.Begin(ctx))

	require.NoError(t, s.Answer(ctx, 2, "42"))
	require.NoError(t, s.Answer(ctx, 0, "Paris"))
	assert.False(t, s.CanSubmit())
	_, err = s.Submit(ctx)
	assert.ErrorIs(t, err, util.ErrIncompleteAnswers)

	require.NoError(t, s.Answer(ctx, 1, "False"))
	assert.True(t, s.CanSubmit())

	attempt, err := s.Submit(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 66.67, attempt.Score, 0.01)
	assert.Equal(t, TakingResult, s.State())

	review, err := s.Review()
	require.NoError(t, err)
	assert.Equal(t, 67, review.RoundedScore)
	require.Len(t, review.Items, 3)
	assert.True(t, review.Items[0].Correct)
	assert.Empty(t, review.Items[0].CorrectAnswer)
	assert.False(t, review.Items[1].Correct)
	assert.Equal(t, "True", review.Items[1].CorrectAnswer)
	assert.Equal(t, "False", review.Items[1].Answer)
	assert.True(t, review.Items[2].Correct)
	assert.Empty(t, review.Items[2].CorrectAnswer)

	assert.ErrorIs(t, s.Begin(ctx), util.ErrInvalidTransition)
}

func TestTakingRejectsInvalidAnswers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	quiz := f.seedQuiz(t, "geo")

	s, err := f.manager.OpenTaking(ctx, learner, QuizRef{QuizID: quiz.ID})
	require.NoError(t, err)
	require.NoError(t, s.Begin(ctx))

	assert.ErrorIs(t, s.Answer(ctx, 0, "London"), util.ErrInvalidAnswer)
	assert.ErrorIs(t, s.Answer(ctx, 1, "true"), util.ErrInvalidAnswer)
	assert.ErrorIs(t, s.Answer(ctx, 3, "x"), util.ErrPositionOutOfRange)
	require.NoError(t, s.Answer(ctx, 2, "anything goes"))

	require.NoError(t, s.Answer(ctx, 2, ""))
	assert.Empty(t, s.View().Answers)
}

func TestTakingReentryAlwaysShowsResult(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	quiz := f.seedQuiz(t, "geo")

	first, err := f.attempts.Submit(ctx, quiz.ID, learner.ID, model.Answers{0: "Paris", 1: "False", 2: "42"})
	require.NoError(t, err)

	for _, ref := range []QuizRef{{QuizID: quiz.ID}, {SubjectID: "geo"}, {QuizID: quiz.ID}} {
		s, err := f.manager.OpenTaking(ctx, learner, ref)
		require.NoError(t, err)
		assert.Equal(t, TakingResult, s.State())

		review, err := s.Review()
		require.NoError(t, err)
		assert.Equal(t, first.Score, review.Score)
		assert.Equal(t, "False", review.Items[1].Answer)
		assert.ErrorIs(t, s.Begin(ctx), util.ErrInvalidTransition)
	}
	assert.Equal(t, 1, f.attemptRepo.Count())
}

func TestTakingDuplicateSubmitRedirectsToResult(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	quiz := f.seedQuiz(t, "geo")

	s, err := f.manager.OpenTaking(ctx, learner, QuizRef{QuizID: quiz.ID})
	require.NoError(t, err)
	require.NoError(t, s.Begin(ctx))
	for pos, ans := range []string{"Rome", "True", "41"} {
		require.NoError(t, s.Answer(ctx, pos, ans))
	}

	// another tab submits first
	winner, err := f.attempts.Submit(ctx, quiz.ID, learner.ID, model.Answers{0: "Paris", 1: "True", 2: "42"})
	require.NoError(t, err)

	attempt, err := s.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, attempt.ID)
	assert.Equal(t, TakingResult, s.State())
	assert.Equal(t, 1, f.attemptRepo.Count())
}

type failingEngine struct {
	AttemptEngine
}

func (failingEngine) Submit(context.Context, string, string, model.Answers) (*model.Attempt, error) {
	return nil, errors.New("connection reset")
}

func TestTakingSubmitFailureKeepsAnswers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	quiz := f.seedQuiz(t, "geo")

	s := NewTakingSession("sid", learner, f.quizzes, failingEngine{AttemptEngine: f.attempts})
	require.NoError(t, s.Open(ctx, QuizRef{QuizID: quiz.ID}))
	require.NoError(t, s.Begin(ctx))
	for pos, ans := range []string{"Paris", "True", "42"} {
		require.NoError(t, s.Answer(ctx, pos, ans))
	}

	_, err := s.Submit(ctx)
	assert.Error(t, err)
	assert.Equal(t, TakingActive, s.State())
	assert.Len(t, s.View().Answers, 3)
	assert.True(t, s.CanSubmit())
}

func TestTakingUnknownQuiz(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.OpenTaking(context.Background(), learner, QuizRef{QuizID: "missing"})
	assert.ErrorIs(t, err, util.ErrQuizNotFound)

	_, err = f.manager.OpenTaking(context.Background(), learner, QuizRef{SubjectID: "nothing"})
	assert.ErrorIs(t, err, util.ErrQuizNotFound)
}

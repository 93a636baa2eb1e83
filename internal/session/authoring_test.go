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

func TestAuthoringOpenNewSubjectDrafts(t *testing.T) {
	f := newFixture(t)
	s, err := f.manager.OpenAuthoring(context.Background(), teacher, "geo")
	require.NoError(t, err)
	assert.Equal(t, AuthoringDrafting, s.State())
	assert.Zero(t, s.Draft().Len())
}

func TestAuthoringOpenExistingQuizReviews(t *testing.T) {
	f := newFixture(t)
	quiz := f.seedQuiz(t, "geo")

	s, err := f.manager.OpenAuthoring(context.Background(), teacher, "geo")
	require.NoError(t, err)
	assert.Equal(t, AuthoringReviewing, s.State())
	assert.Equal(t, quiz.ID, s.Draft().QuizID)
	assert.Equal(t, 3, s.Draft().Len())
	assert.False(t, s.Draft().Dirty)
}

func TestAuthoringDraftingOnlyAllowsGenerateOrScratch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s, err := f.manager.OpenAuthoring(ctx, teacher, "geo")
	require.NoError(t, err)

	assert.ErrorIs(t, s.AddQuestion(ctx, model.BlankQuestion(model.ShortAnswerKind)), util.ErrInvalidTransition)
	_, err = s.Save(ctx)
	assert.ErrorIs(t, err, util.ErrInvalidTransition)

	require.NoError(t, s.StartFromScratch(ctx))
	assert.Equal(t, AuthoringReviewing, s.State())
	assert.ErrorIs(t, s.StartFromScratch(ctx), util.ErrInvalidTransition)
}

func TestAuthoringInsufficientSourceStaysDrafting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s, err := f.manager.OpenAuthoring(ctx, teacher, "empty-subject")
	require.NoError(t, err)

	err = s.Generate(ctx)
	assert.ErrorIs(t, err, util.ErrInsufficientSource)
	assert.Equal(t, AuthoringDrafting, s.State())
}

func TestAuthoringGenerateReplacesNotMerges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.generator.batches = [][]model.Question{geoQuestions(), geoQuestions()[:2]}

	s, err := f.manager.OpenAuthoring(ctx, teacher, "geo")
	require.NoError(t, err)
	require.NoError(t, s.Generate(ctx))
	assert.Equal(t, 3, s.Draft().Len())

	require.NoError(t, s.Generate(ctx))
	assert.Equal(t, AuthoringReviewing, s.State())
	assert.Equal(t, 2, s.Draft().Len())
}

func TestAuthoringGeneratorFailureKeepsDraft(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.generator.batches = [][]model.Question{geoQuestions()}

	s, err := f.manager.OpenAuthoring(ctx, teacher, "geo")
	require.NoError(t, err)
	require.NoError(t, s.Generate(ctx))

	f.generator.err = errors.New("timeout")
	assert.Error(t, s.Generate(ctx))
	assert.Equal(t, 3, s.Draft().Len())
	assert.Equal(t, AuthoringReviewing, s.State())
}

func TestAuthoringEditsAndValidationGate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s, err := f.manager.OpenAuthoring(ctx, teacher, "geo")
	require.NoError(t, err)
	require.NoError(t, s.StartFromScratch(ctx))

	_, err = s.Save(ctx)
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, model.DefectEmptyTitle, ve.Defect)

	require.NoError(t, s.SetMeta(ctx, "Week 1", "Rivers and capitals"))
	for _, q := range geoQuestions() {
		require.NoError(t, s.AddQuestion(ctx, q))
	}
	require.NoError(t, s.AddQuestion(ctx, model.BlankQuestion(model.MultipleChoiceKind)))

	_, err = s.Save(ctx)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 4, ve.Position)
	assert.Equal(t, AuthoringReviewing, s.State())
	assert.Zero(t, f.quizRepo.Count())

	require.NoError(t, s.RemoveQuestion(ctx, 3))
	assert.ErrorIs(t, s.RemoveQuestion(ctx, 3), util.ErrPositionOutOfRange)
	require.NoError(t, s.ReplaceQuestion(ctx, 2, model.NewQuestion("6*7", model.ShortAnswerKind, nil, "forty-two")))

	saved, err := s.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, "forty-two", saved.Questions[2].CorrectAnswer())
	assert.Equal(t, saved.ID, s.Draft().QuizID)
	assert.False(t, s.Draft().Dirty)
	assert.Equal(t, 1, f.quizRepo.Count())
}

func TestAuthoringSaveTwiceUpdatesSameQuiz(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.generator.batches = [][]model.Question{geoQuestions(), geoQuestions()[:1]}

	s, err := f.manager.OpenAuthoring(ctx, teacher, "geo")
	require.NoError(t, err)
	require.NoError(t, s.Generate(ctx))
	require.NoError(t, s.SetMeta(ctx, "Week 1", ""))
	first, err := s.Save(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Generate(ctx))
	second, err := s.Save(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.quizRepo.Count())
	id, exists, err := f.quizzes.Exists(ctx, "geo")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, first.ID, id)
}

func TestAuthoringCancelDiscardsEdits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	quiz := f.seedQuiz(t, "geo")

	s, err := f.manager.OpenAuthoring(ctx, teacher, "geo")
	require.NoError(t, err)
	require.NoError(t, s.RemoveQuestion(ctx, 0))
	require.NoError(t, s.SetMeta(ctx, "Changed", ""))

	require.NoError(t, f.manager.CloseAuthoring(ctx, teacher, s.ID))
	assert.Equal(t, AuthoringClosed, s.State())
	assert.ErrorIs(t, s.AddQuestion(ctx, model.BlankQuestion(model.TrueFalseKind)), util.ErrSessionClosed)

	stored, err := f.quizzes.Get(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, "Week 1", stored.Title)
	assert.Len(t, stored.Questions, 3)

	_, err = f.manager.Authoring(ctx, teacher, s.ID)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}

func TestAuthoringBusyRejectsConcurrentActions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.generator.batches = [][]model.Question{geoQuestions()}
	f.generator.gate = make(chan struct{})
	f.generator.entered = make(chan struct{})

	s, err := f.manager.OpenAuthoring(ctx, teacher, "geo")
	require.NoError(t, err)

	done := make(chan error)
	go func() { done <- s.Generate(ctx) }()
	<-f.generator.entered

	assert.ErrorIs(t, s.StartFromScratch(ctx), util.ErrSessionBusy)
	assert.ErrorIs(t, s.Cancel(), util.ErrSessionBusy)
	assert.True(t, s.View().Busy)

	close(f.generator.gate)
	require.NoError(t, <-done)
	assert.Equal(t, 3, s.Draft().Len())
}

func TestDraftEditsDoNotAlias(t *testing.T) {
	d := NewDraft("geo").WithQuestions(geoQuestions())
	removed, err := d.WithRemoved(0)
	require.NoError(t, err)

	assert.Equal(t, 3, d.Len())
	assert.Equal(t, 2, removed.Len())
	assert.Equal(t, "The Seine flows through Paris", removed.Questions[0].Text)

	replaced, err := d.WithReplaced(0, model.NewQuestion("new", model.ShortAnswerKind, nil, "x"))
	require.NoError(t, err)
	assert.Equal(t, "Capital of France?", d.Questions[0].Text)
	assert.Equal(t, "new", replaced.Questions[0].Text)
}

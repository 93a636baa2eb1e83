package session

import (
	"context"
	"quiz_engine_backend/internal/model"
	"quiz_engine_backend/internal/repository"
	"quiz_engine_backend/internal/service"
	"quiz_engine_backend/internal/util"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	teacher = model.Actor{ID: "t-1", Role: model.Teacher}
	learner = model.Actor{ID: "s-1", Role: model.Student}
)

func geoQuestions() []model.Question {
	return []model.Question{
		model.NewQuestion("Capital of France?", model.MultipleChoiceKind, []string{"Paris", "Rome", "Oslo"}, "Paris"),
		model.NewQuestion("The Seine flows through Paris", model.TrueFalseKind, nil, model.AnswerTrue),
		model.NewQuestion("6*7", model.ShortAnswerKind, nil, "42"),
	}
}

// stubGenerator hands out queued batches and can block until released.
type stubGenerator struct {
	mu      sync.Mutex
	batches [][]model.Question
	err     error
	calls   int
	gate    chan struct{}
	entered chan struct{}
}

func (g *stubGenerator) Generate(ctx context.Context, _ string) ([]model.Question, error) {
	if g.gate != nil {
		g.entered <- struct{}{}
		<-g.gate
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	if len(g.batches) == 0 {
		return nil, util.ErrInsufficientSource
	}
	b := g.batches[0]
	g.batches = g.batches[1:]
	return b, nil
}

type fixture struct {
	quizRepo    *repository.MemoryQuizRepository
	attemptRepo *repository.MemoryAttemptRepository
	quizzes     *service.QuizService
	attempts    *service.AttemptService
	generator   *stubGenerator
	store       *MemorySessionStore
	manager     *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		quizRepo:    repository.NewMemoryQuizRepository(),
		attemptRepo: repository.NewMemoryAttemptRepository(),
		generator:   &stubGenerator{},
		store:       NewMemorySessionStore(0),
	}
	f.quizzes = service.NewQuizService(f.quizRepo)
	f.attempts = service.NewAttemptService(f.quizRepo, f.attemptRepo)
	f.manager = NewManager(f.store, f.quizzes, f.generator, f.attempts)
	return f
}

func (f *fixture) seedQuiz(t *testing.T, subjectID string) *model.Quiz {
	t.Helper()
	quiz, err := f.quizzes.Save(context.Background(), teacher, &model.Quiz{
		SubjectID: subjectID,
		Title:     "Week 1",
		Questions: geoQuestions(),
	})
	require.NoError(t, err)
	return quiz
}

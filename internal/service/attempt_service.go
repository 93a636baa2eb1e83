package service

import (
	"context"
	"errors"
	"quiz_engine_backend/internal/model"
	"quiz_engine_backend/internal/util"
	"quiz_engine_backend/pkg/logger"
	"quiz_engine_backend/pkg/monitoring"
	"quiz_engine_backend/pkg/tracing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type AttemptRepository interface {
	FindByQuizAndLearner(ctx context.Context, quizID, learnerID string) (*model.Attempt, error)
	Create(ctx context.Context, attempt *model.Attempt) error
	ListByQuiz(ctx context.Context, quizID string) ([]model.Attempt, error)
	FindFirstForLearner(ctx context.Context, learnerID string, quizIDs []string) (*model.Attempt, error)
}

type QuizReader interface {
	FindByID(ctx context.Context, id string) (*model.Quiz, error)
	ListBySubject(ctx context.Context, subjectID string) ([]model.Quiz, error)
}

type AttemptService struct {
	Quizzes  QuizReader
	Attempts AttemptRepository
	Now      func() time.Time
}

func NewAttemptService(quizzes QuizReader, attempts AttemptRepository) *AttemptService {
	return &AttemptService{Quizzes: quizzes, Attempts: attempts, Now: time.Now}
}

// Submit grades the answers and persists the attempt. A learner gets exactly
// one attempt per quiz; a second submission fails with ErrDuplicateAttempt
// and leaves the first untouched.
func (s *AttemptService) Submit(ctx context.Context, quizID, learnerID string, answers model.Answers) (attempt *model.Attempt, err error) {
	ctx, span := tracing.StartSpan(ctx, "AttemptService.Submit",
		attribute.String("quiz_id", quizID),
		attribute.String("learner_id", learnerID),
	)
	defer func() { tracing.End(span, err) }()

	quiz, err := s.Quizzes.FindByID(ctx, quizID)
	if err != nil {
		return nil, err
	}

	if _, err := s.Attempts.FindByQuizAndLearner(ctx, quizID, learnerID); err == nil {
		return nil, util.ErrDuplicateAttempt
	} else if !errors.Is(err, util.ErrAttemptNotFound) {
		return nil, err
	}

	graded := Grade(quiz, answers)
	attempt = &model.Attempt{
		QuizID:        quiz.ID,
		LearnerID:     learnerID,
		Answers:       datatypes.NewJSONType(answers.Clone()),
		Results:       graded.Results,
		Score:         graded.Score,
		CorrectCount:  graded.CorrectCount,
		QuestionCount: graded.QuestionCount,
		CompletedAt:   s.Now(),
	}
	// the unique index settles a race between two submissions
	if err := s.Attempts.Create(ctx, attempt); err != nil {
		return nil, err
	}

	monitoring.AttemptsGraded.Inc()
	monitoring.AttemptScore.Observe(attempt.Score)
	span.SetAttributes(attribute.Float64("attempt.score", attempt.Score))
	logger.Log.Info("Attempt graded",
		zap.String("quizID", quiz.ID),
		zap.String("learnerID", learnerID),
		zap.Int("correct", graded.CorrectCount),
		zap.Int("questions", graded.QuestionCount),
		zap.Float64("score", graded.Score),
	)
	return attempt, nil
}

// Result returns the learner's attempt, or ErrAttemptNotFound.
func (s *AttemptService) Result(ctx context.Context, quizID, learnerID string) (*model.Attempt, error) {
	return s.Attempts.FindByQuizAndLearner(ctx, quizID, learnerID)
}

// ResultForSubject returns the learner's earliest attempt on any quiz of the subject.
func (s *AttemptService) ResultForSubject(ctx context.Context, subjectID, learnerID string) (*model.Attempt, error) {
	quizzes, err := s.Quizzes.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(quizzes))
	for i, q := range quizzes {
		ids[i] = q.ID
	}
	return s.Attempts.FindFirstForLearner(ctx, learnerID, ids)
}

type QuestionStat struct {
	Position    int     `json:"position"`
	Text        string  `json:"text"`
	Answered    int     `json:"answered"`
	Correct     int     `json:"correct"`
	CorrectRate float64 `json:"correctRate"`
}

type AttemptSummary struct {
	QuizID       string          `json:"quizId"`
	Count        int             `json:"count"`
	AverageScore float64         `json:"averageScore"`
	HighestScore float64         `json:"highestScore"`
	LowestScore  float64         `json:"lowestScore"`
	Questions    []QuestionStat  `json:"questions"`
	Attempts     []model.Attempt `json:"attempts"`
}

// Summary aggregates the attempts on a quiz for its teacher. Per-question
// rates come from the results frozen at submission, matched by position
// against the current question list.
func (s *AttemptService) Summary(ctx context.Context, actor model.Actor, quizID string) (*AttemptSummary, error) {
	quiz, err := s.Quizzes.FindByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(quiz.TeacherID) {
		return nil, util.ErrPermissionDenied
	}

	attempts, err := s.Attempts.ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if attempts == nil {
		attempts = []model.Attempt{}
	}

	summary := &AttemptSummary{
		QuizID:    quiz.ID,
		Count:     len(attempts),
		Questions: make([]QuestionStat, len(quiz.Questions)),
		Attempts:  attempts,
	}
	for i, q := range quiz.Questions {
		summary.Questions[i] = QuestionStat{Position: i, Text: q.Text}
	}

	var total float64
	for i, a := range attempts {
		total += a.Score
		if i == 0 || a.Score > summary.HighestScore {
			summary.HighestScore = a.Score
		}
		if i == 0 || a.Score < summary.LowestScore {
			summary.LowestScore = a.Score
		}
		for _, r := range a.Results {
			if r.Position < 0 || r.Position >= len(summary.Questions) {
				continue
			}
			summary.Questions[r.Position].Answered++
			if r.Correct {
				summary.Questions[r.Position].Correct++
			}
		}
	}
	if len(attempts) > 0 {
		summary.AverageScore = total / float64(len(attempts))
	}
	for i := range summary.Questions {
		if n := summary.Questions[i].Answered; n > 0 {
			summary.Questions[i].CorrectRate = float64(summary.Questions[i].Correct) / float64(n)
		}
	}
	return summary, nil
}

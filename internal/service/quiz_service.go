package service

import (
	"context"
	"errors"
	"quiz_engine_backend/internal/model"
	"quiz_engine_backend/internal/util"
	"quiz_engine_backend/pkg/logger"
	"quiz_engine_backend/pkg/monitoring"
	"quiz_engine_backend/pkg/tracing"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// QuizRepository is the durable quiz store; implemented by
// repository.QuizRepository and repository.MemoryQuizRepository.
type QuizRepository interface {
	FindByID(ctx context.Context, id string) (*model.Quiz, error)
	FindFirstBySubject(ctx context.Context, subjectID string) (*model.Quiz, error)
	ListBySubject(ctx context.Context, subjectID string) ([]model.Quiz, error)
	Create(ctx context.Context, quiz *model.Quiz) error
	Replace(ctx context.Context, quiz *model.Quiz) error
	Delete(ctx context.Context, id string) error
}

type QuizService struct {
	Repo QuizRepository
}

func NewQuizService(repo QuizRepository) *QuizService {
	return &QuizService{Repo: repo}
}

// Exists reports whether the subject has a quiz and, if so, its id.
func (s *QuizService) Exists(ctx context.Context, subjectID string) (string, bool, error) {
	quiz, err := s.Repo.FindFirstBySubject(ctx, subjectID)
	if errors.Is(err, util.ErrQuizNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return quiz.ID, true, nil
}

func (s *QuizService) Get(ctx context.Context, id string) (*model.Quiz, error) {
	return s.Repo.FindByID(ctx, id)
}

// GetBySubject returns the subject's quiz; the oldest one if there are several.
func (s *QuizService) GetBySubject(ctx context.Context, subjectID string) (*model.Quiz, error) {
	return s.Repo.FindFirstBySubject(ctx, subjectID)
}

func (s *QuizService) ListBySubject(ctx context.Context, subjectID string) ([]model.Quiz, error) {
	quizzes, err := s.Repo.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if quizzes == nil {
		quizzes = []model.Quiz{}
	}
	return quizzes, nil
}

// Save is the single durable write path. The quiz is validated first and the
// store is never touched when validation fails. Without an id the quiz is
// upserted on its subject; with an id the existing quiz is fully replaced.
func (s *QuizService) Save(ctx context.Context, actor model.Actor, quiz *model.Quiz) (saved *model.Quiz, err error) {
	ctx, span := tracing.StartSpan(ctx, "QuizService.Save",
		attribute.String("quiz.subject_id", quiz.SubjectID),
		attribute.Int("quiz.questions", len(quiz.Questions)),
	)
	defer func() { tracing.End(span, err) }()

	if err := model.ValidateQuiz(quiz.Title, quiz.Questions); err != nil {
		return nil, err
	}

	record := quiz.Clone()
	record.Title = strings.TrimSpace(record.Title)

	var existing *model.Quiz
	if record.ID != "" {
		existing, err = s.Repo.FindByID(ctx, record.ID)
		if err != nil {
			return nil, err
		}
	} else {
		if strings.TrimSpace(record.SubjectID) == "" {
			return nil, &model.ValidationError{Field: "subjectId", Defect: model.DefectNoSubject}
		}
		existing, err = s.Repo.FindFirstBySubject(ctx, record.SubjectID)
		if err != nil && !errors.Is(err, util.ErrQuizNotFound) {
			return nil, err
		}
	}

	if existing == nil {
		record.TeacherID = actor.ID
		if err := s.Repo.Create(ctx, record); err != nil {
			return nil, err
		}
		monitoring.QuizSaves.WithLabelValues("created").Inc()
		logger.Log.Info("Quiz created",
			zap.String("quizID", record.ID),
			zap.String("subjectID", record.SubjectID),
			zap.String("teacherID", actor.ID),
			zap.Int("questions", len(record.Questions)),
		)
		return record, nil
	}

	if !actor.CanManage(existing.TeacherID) {
		return nil, util.ErrPermissionDenied
	}

	record.ID = existing.ID
	record.TeacherID = existing.TeacherID
	if record.TeacherID == "" {
		record.TeacherID = actor.ID
	}
	if err := s.Repo.Replace(ctx, record); err != nil {
		return nil, err
	}
	monitoring.QuizSaves.WithLabelValues("updated").Inc()
	logger.Log.Info("Quiz updated",
		zap.String("quizID", record.ID),
		zap.String("subjectID", record.SubjectID),
		zap.String("teacherID", actor.ID),
		zap.Int("questions", len(record.Questions)),
	)
	return record, nil
}

// Delete removes the quiz. Attempts already submitted stay as history.
func (s *QuizService) Delete(ctx context.Context, actor model.Actor, id string) error {
	quiz, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanManage(quiz.TeacherID) {
		return util.ErrPermissionDenied
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.Log.Info("Quiz deleted", zap.String("quizID", id), zap.String("teacherID", actor.ID))
	return nil
}

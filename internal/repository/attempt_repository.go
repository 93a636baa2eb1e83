package repository

import (
	"context"
	"errors"
	"quiz_engine_backend/internal/model"
	"quiz_engine_backend/internal/util"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) FindByQuizAndLearner(ctx context.Context, quizID, learnerID string) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.DB.WithContext(ctx).
		Where("quiz_id = ? AND learner_id = ?", quizID, learnerID).
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// Create relies on the (quiz_id, learner_id) unique index; gorm must be
// opened with TranslateError so the violation surfaces as ErrDuplicatedKey.
func (r *AttemptRepository) Create(ctx context.Context, attempt *model.Attempt) error {
	err := r.DB.WithContext(ctx).Create(attempt).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return util.ErrDuplicateAttempt
	}
	return err
}

func (r *AttemptRepository) ListByQuiz(ctx context.Context, quizID string) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.DB.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("completed_at asc").
		Find(&attempts).Error
	return attempts, err
}

// FindFirstForLearner returns the learner's earliest attempt on any of the given quizzes.
func (r *AttemptRepository) FindFirstForLearner(ctx context.Context, learnerID string, quizIDs []string) (*model.Attempt, error) {
	if len(quizIDs) == 0 {
		return nil, util.ErrAttemptNotFound
	}
	var attempt model.Attempt
	err := r.DB.WithContext(ctx).
		Where("learner_id = ? AND quiz_id IN ?", learnerID, quizIDs).
		Order("completed_at asc").
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

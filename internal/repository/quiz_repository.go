package repository

import (
	"context"
	"errors"
	"quiz_engine_backend/internal/model"
	"quiz_engine_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) FindByID(ctx context.Context, id string) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.WithContext(ctx).First(&quiz, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	}
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *QuizRepository) FindFirstBySubject(ctx context.Context, subjectID string) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("created_at asc").
		First(&quiz).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	}
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *QuizRepository) ListBySubject(ctx context.Context, subjectID string) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := r.DB.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("created_at asc").
		Find(&quizzes).Error
	return quizzes, err
}

func (r *QuizRepository) Create(ctx context.Context, quiz *model.Quiz) error {
	return r.DB.WithContext(ctx).Create(quiz).Error
}

// Replace overwrites title, description and the whole question list.
func (r *QuizRepository) Replace(ctx context.Context, quiz *model.Quiz) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Quiz
		if err := tx.First(&existing, "id = ?", quiz.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrQuizNotFound
			}
			return err
		}

		now := time.Now()
		err := tx.Model(&model.Quiz{}).Where("id = ?", quiz.ID).Updates(map[string]interface{}{
			"title":       quiz.Title,
			"description": quiz.Description,
			"questions":   quiz.Questions,
			"teacher_id":  quiz.TeacherID,
			"updated_at":  now,
		}).Error
		if err != nil {
			return err
		}

		quiz.SubjectID = existing.SubjectID
		quiz.CreatedAt = existing.CreatedAt
		quiz.UpdatedAt = now
		return nil
	})
}

func (r *QuizRepository) Delete(ctx context.Context, id string) error {
	result := r.DB.WithContext(ctx).Delete(&model.Quiz{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return util.ErrQuizNotFound
	}
	return nil
}

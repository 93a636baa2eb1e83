package repository

import (
	"context"
	"quiz_engine_backend/internal/model"

	"gorm.io/gorm"
)

type MaterialRepository struct {
	DB *gorm.DB
}

func NewMaterialRepository(db *gorm.DB) *MaterialRepository {
	return &MaterialRepository{DB: db}
}

// ListBySubject returns assignments first, then uploaded materials, oldest first.
func (r *MaterialRepository) ListBySubject(ctx context.Context, subjectID string) ([]model.Material, error) {
	var materials []model.Material
	err := r.DB.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("kind asc, created_at asc").
		Find(&materials).Error
	return materials, err
}

package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docuverse/studio/internal/models"
	appErr "github.com/docuverse/studio/pkg/errors"
)

type FeedbackRepository interface {
	Append(ctx context.Context, feedback *models.Feedback) error
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Feedback, error)
}

type feedbackRepository struct {
	db *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) Append(ctx context.Context, feedback *models.Feedback) error {
	if err := r.db.WithContext(ctx).Create(feedback).Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "append feedback failed")
	}
	return nil
}

func (r *feedbackRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Feedback, error) {
	var out []models.Feedback
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list feedback failed")
	}
	return out, nil
}

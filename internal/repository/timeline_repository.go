package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docuverse/studio/internal/models"
	appErr "github.com/docuverse/studio/pkg/errors"
)

// TimelineRepository is append-only: events are created and read, never
// updated or deleted.
type TimelineRepository interface {
	Append(ctx context.Context, event *models.TimelineEvent) error
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.TimelineEvent, error)
	HasTitle(ctx context.Context, projectID uuid.UUID, title string) (bool, error)
	// LastTitled returns the most recent event with the given title, or
	// nil when the project has none.
	LastTitled(ctx context.Context, projectID uuid.UUID, title string) (*models.TimelineEvent, error)
}

type timelineRepository struct {
	db *gorm.DB
}

func NewTimelineRepository(db *gorm.DB) TimelineRepository {
	return &timelineRepository{db: db}
}

func (r *timelineRepository) Append(ctx context.Context, event *models.TimelineEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "append timeline event failed")
	}
	return nil
}

func (r *timelineRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.TimelineEvent, error) {
	var out []models.TimelineEvent
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("occurred_at ASC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list timeline events failed")
	}
	return out, nil
}

func (r *timelineRepository) HasTitle(ctx context.Context, projectID uuid.UUID, title string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.TimelineEvent{}).
		Where("project_id = ? AND title = ?", projectID, title).
		Count(&count).Error; err != nil {
		return false, appErr.Wrap(err, appErr.CodeInternal, "scan timeline events failed")
	}
	return count > 0, nil
}

func (r *timelineRepository) LastTitled(ctx context.Context, projectID uuid.UUID, title string) (*models.TimelineEvent, error) {
	var out models.TimelineEvent
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND title = ?", projectID, title).
		Order("occurred_at DESC").
		First(&out).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "scan timeline events failed")
	}
	return &out, nil
}

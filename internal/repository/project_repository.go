package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docuverse/studio/internal/models"
	appErr "github.com/docuverse/studio/pkg/errors"
)

type ProjectRepository interface {
	BaseRepository[models.Project]
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Project, error)
	GetByShareID(ctx context.Context, shareID string, dest *models.Project) error

	// ClaimGeneration takes the per-project generation lock. It fails with
	// CodeConflict when another generation for the project is in flight.
	ClaimGeneration(ctx context.Context, projectID uuid.UUID, startedAt time.Time) error
	ReleaseGeneration(ctx context.Context, projectID uuid.UUID) error
	SetGenerationMessage(ctx context.Context, projectID uuid.UUID, message string) error

	// SaveTransition persists a project mutation, its timeline event, and
	// optional reviewer feedback in one transaction.
	SaveTransition(ctx context.Context, project *models.Project, event *models.TimelineEvent, feedback *models.Feedback) error
}

type projectRepository struct {
	BaseRepository[models.Project]
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{BaseRepository: NewBaseRepository[models.Project](db), db: db}
}

func (r *projectRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	var out []models.Project
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list projects by user failed")
	}
	return out, nil
}

func (r *projectRepository) GetByShareID(ctx context.Context, shareID string, dest *models.Project) error {
	if err := r.db.WithContext(ctx).Where("share_id = ?", shareID).First(dest).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.New(appErr.CodeNotFound, "project not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get project by share id failed")
	}
	return nil
}

func (r *projectRepository) ClaimGeneration(ctx context.Context, projectID uuid.UUID, startedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ? AND generating = false", projectID).
		Updates(map[string]any{
			"generating":            true,
			"generation_started_at": startedAt,
			"generation_message":    "",
		})
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "claim generation failed")
	}
	if res.RowsAffected == 0 {
		var exists int64
		if err := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", projectID).Count(&exists).Error; err == nil && exists == 0 {
			return appErr.New(appErr.CodeNotFound, "project not found")
		}
		return appErr.New(appErr.CodeConflict, "generation already in progress")
	}
	return nil
}

func (r *projectRepository) ReleaseGeneration(ctx context.Context, projectID uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ?", projectID).
		Update("generating", false)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "release generation failed")
	}
	return nil
}

func (r *projectRepository) SetGenerationMessage(ctx context.Context, projectID uuid.UUID, message string) error {
	res := r.db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ?", projectID).
		Update("generation_message", message)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "set generation message failed")
	}
	return nil
}

func (r *projectRepository) SaveTransition(ctx context.Context, project *models.Project, event *models.TimelineEvent, feedback *models.Feedback) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(project).Error; err != nil {
			return err
		}
		if event != nil {
			if err := tx.Create(event).Error; err != nil {
				return err
			}
		}
		if feedback != nil {
			if err := tx.Create(feedback).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "save workflow transition failed")
	}
	return nil
}

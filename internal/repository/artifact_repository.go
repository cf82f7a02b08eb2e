package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docuverse/studio/internal/models"
	appErr "github.com/docuverse/studio/pkg/errors"
)

type ArtifactRepository interface {
	BaseRepository[models.Artifact]
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Artifact, error)
	GetActive(ctx context.Context, projectID uuid.UUID, dest *models.Artifact) error

	// Apply stores a new active artifact and the accompanying project
	// mutation in one transaction: any prior active artifact is
	// deactivated, the new one is created active, the project row is
	// saved, and the timeline event appended.
	Apply(ctx context.Context, project *models.Project, artifact *models.Artifact, event *models.TimelineEvent) error
}

type artifactRepository struct {
	BaseRepository[models.Artifact]
	db *gorm.DB
}

func NewArtifactRepository(db *gorm.DB) ArtifactRepository {
	return &artifactRepository{BaseRepository: NewBaseRepository[models.Artifact](db), db: db}
}

func (r *artifactRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Artifact, error) {
	var out []models.Artifact
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list artifacts failed")
	}
	return out, nil
}

func (r *artifactRepository) GetActive(ctx context.Context, projectID uuid.UUID, dest *models.Artifact) error {
	if err := r.db.WithContext(ctx).Where("project_id = ? AND active = true", projectID).First(dest).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.New(appErr.CodeNotFound, "no active artifact")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get active artifact failed")
	}
	return nil
}

func (r *artifactRepository) Apply(ctx context.Context, project *models.Project, artifact *models.Artifact, event *models.TimelineEvent) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Artifact{}).
			Where("project_id = ? AND active = true", artifact.ProjectID).
			Update("active", false).Error; err != nil {
			return err
		}
		artifact.Active = true
		if err := tx.Create(artifact).Error; err != nil {
			return err
		}
		if project != nil {
			if err := tx.Save(project).Error; err != nil {
				return err
			}
		}
		if event != nil {
			if err := tx.Create(event).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "apply artifact failed")
	}
	return nil
}

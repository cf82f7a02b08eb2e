package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/docuverse/studio/internal/workflow"
)

// TimelineEvent is one append-only entry in a project's workflow timeline.
// Rows are never updated or deleted.
type TimelineEvent struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProjectID       uuid.UUID       `gorm:"type:uuid;index;not null" json:"project_id" validate:"required"`
	OccurredAt      time.Time       `gorm:"index;not null" json:"occurred_at"`
	Title           string          `gorm:"not null" json:"title" validate:"required"`
	Description     string          `gorm:"type:text" json:"description"`
	ResultingStatus workflow.Status `gorm:"type:varchar(32)" json:"resulting_status"`
}

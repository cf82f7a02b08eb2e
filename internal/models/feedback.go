package models

import (
	"time"

	"github.com/google/uuid"
)

// Feedback kinds recorded from the public review page.
const (
	FeedbackApproval       = "approval"
	FeedbackRequestChanges = "request_changes"
)

// Feedback is a reviewer response captured during the review workflow.
type Feedback struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;index;not null" json:"project_id" validate:"required"`
	Source    string    `gorm:"type:varchar(128)" json:"source"`
	Content   string    `gorm:"type:text" json:"content"`
	Kind      string    `gorm:"type:varchar(32);not null" json:"kind" validate:"required,oneof=approval request_changes"`
	CreatedAt time.Time `json:"created_at"`
}

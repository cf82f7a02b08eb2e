package models

import (
	"time"

	"github.com/google/uuid"
)

// Artifact is one generated document produced by the engine for a project.
// At most one artifact per project is active; replaced artifacts are kept
// for audit.
type Artifact struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;index;not null" json:"project_id" validate:"required"`
	Tier      string    `gorm:"type:varchar(16);not null" json:"tier" validate:"required,oneof=instant quick full enhanced"`
	Location  string    `gorm:"not null" json:"location" validate:"required"`
	Filename  string    `gorm:"type:varchar(255)" json:"filename"`
	Active    bool      `gorm:"not null;default:false;index" json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

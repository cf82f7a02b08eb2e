package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/docuverse/studio/internal/workflow"
)

// Enhancement pipeline states for the background high-quality build.
const (
	EnhanceIdle     = "IDLE"
	EnhanceBuilding = "BUILDING"
	EnhanceReady    = "READY"
	EnhanceApplied  = "APPLIED"
	EnhanceFailed   = "FAILED"
)

// Project is a generated document project owned by a user. It carries the
// review workflow status, the active document pointer, and the state of the
// background enhancement build.
type Project struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID  uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id" validate:"required"`
	Title   string    `gorm:"not null" json:"title" validate:"required"`
	Domain  string    `gorm:"type:varchar(32);index" json:"domain" validate:"required,oneof=web app ai"`
	ShareID string    `gorm:"uniqueIndex;type:varchar(32)" json:"share_id"`

	IsPublic bool `gorm:"not null;default:false" json:"is_public"`

	// GenerationInput is the opaque payload forwarded to the generation
	// engine. The orchestrator never interprets it.
	GenerationInput datatypes.JSON `gorm:"type:jsonb" json:"generation_input"`

	ContentMarkdown     string `gorm:"type:text" json:"content_markdown,omitempty"`
	DocumentURL         string `json:"document_url"`
	ReviewedDocumentURL string `json:"reviewed_document_url"`

	PrototypeURL string `json:"prototype_url"`
	HasPrototype bool   `gorm:"not null;default:false" json:"has_prototype"`

	ReviewerEmail string          `json:"reviewer_email"`
	Status        workflow.Status `gorm:"type:varchar(32);index;not null;default:'DRAFT'" json:"status"`

	// Generating is the per-project advisory lock: set while a generation
	// request for this project is in flight.
	Generating          bool       `gorm:"not null;default:false" json:"generating"`
	GenerationStartedAt *time.Time `json:"generation_started_at,omitempty"`
	GenerationMessage   string     `json:"generation_message,omitempty"`

	EnhanceStatus    string     `gorm:"type:varchar(16);not null;default:'IDLE'" json:"enhance_status"`
	EnhanceMessage   string     `json:"enhance_message,omitempty"`
	EnhanceLastError string     `json:"enhance_last_error,omitempty"`
	EnhanceCheckedAt *time.Time `json:"enhance_checked_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

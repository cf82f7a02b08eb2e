package types

import "encoding/json"

type ProjectCreateRequest struct {
	Title           string                 `json:"title" validate:"required"`
	Domain          string                 `json:"domain" validate:"required,oneof=web app ai"`
	GenerationInput map[string]interface{} `json:"generation_input"`
}

type ProjectUpdateRequest struct {
	Title           *string                `json:"title"`
	ContentMarkdown *string                `json:"content_markdown"`
	IsPublic        *bool                  `json:"is_public"`
	GenerationInput map[string]interface{} `json:"generation_input"`
}

type GenerateRequest struct {
	Tier  string          `json:"tier" validate:"omitempty,oneof=instant quick full enhanced"`
	Input json.RawMessage `json:"input"`
}

type SendReviewRequest struct {
	ReviewerEmail string `json:"reviewer_email" validate:"required,email"`
	Notes         string `json:"notes"`
}

type SubmitReviewRequest struct {
	Status   string `json:"status" validate:"required,oneof=APPROVED CHANGES_REQUESTED"`
	Feedback string `json:"feedback"`
	Source   string `json:"source"`
}

type PrototypeRequest struct {
	PrototypeURL string `json:"prototype_url" validate:"required,url"`
}

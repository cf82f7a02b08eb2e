package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/docuverse/studio/internal/models"
	"github.com/docuverse/studio/internal/notify"
	"github.com/docuverse/studio/internal/repository"
	"github.com/docuverse/studio/internal/workflow"
	appErr "github.com/docuverse/studio/pkg/errors"
	"github.com/docuverse/studio/pkg/logger"
)

// Service interface and related DTOs
type ProjectService interface {
	// Project CRUD
	CreateProject(ctx context.Context, userID uuid.UUID, input *CreateProjectInput) (*models.Project, error)
	GetProject(ctx context.Context, projectID, userID uuid.UUID) (*models.Project, error)
	ListProjects(ctx context.Context, userID uuid.UUID) ([]models.Project, error)
	UpdateProject(ctx context.Context, projectID, userID uuid.UUID, updates *UpdateProjectInput) (*models.Project, error)
	DeleteProject(ctx context.Context, projectID, userID uuid.UUID) error

	// Public access
	GetSharedProject(ctx context.Context, shareID string) (*models.Project, error)
	GetReviewProject(ctx context.Context, projectID uuid.UUID) (*models.Project, error)

	// Workflow history
	GetTimeline(ctx context.Context, projectID, userID uuid.UUID) ([]models.TimelineEvent, error)

	// Prototype registration (the prototype itself is built elsewhere)
	RegisterPrototype(ctx context.Context, projectID, userID uuid.UUID, prototypeURL string) (*models.Project, error)
}

type CreateProjectInput struct {
	Title           string
	Domain          string
	GenerationInput map[string]interface{}
}

type UpdateProjectInput struct {
	Title           *string
	ContentMarkdown *string
	IsPublic        *bool
	GenerationInput map[string]interface{}
}

type projectService struct {
	projectRepo  repository.ProjectRepository
	timelineRepo repository.TimelineRepository
	dispatcher   notify.Dispatcher
	frontendURL  string
	now          func() time.Time
}

func NewProjectService(projectRepo repository.ProjectRepository, timelineRepo repository.TimelineRepository, dispatcher notify.Dispatcher, frontendURL string) ProjectService {
	return &projectService{
		projectRepo:  projectRepo,
		timelineRepo: timelineRepo,
		dispatcher:   dispatcher,
		frontendURL:  frontendURL,
		now:          time.Now,
	}
}

// Ensure interfaces are satisfied at compile time
var _ ProjectService = (*projectService)(nil)

// newShareID returns a random URL-safe identifier for public links.
func newShareID() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// CreateProject creates a new project in DRAFT, seeds its timeline, and
// announces it to the automation subscriber.
func (s *projectService) CreateProject(ctx context.Context, userID uuid.UUID, input *CreateProjectInput) (*models.Project, error) {
	logger.L().Info("create project called", zap.String("user_id", userID.String()), zap.String("title", input.Title))

	var genInput datatypes.JSON
	if input.GenerationInput != nil {
		b, err := json.Marshal(input.GenerationInput)
		if err != nil {
			return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid generation input json")
		}
		genInput = datatypes.JSON(b)
	}

	p := &models.Project{
		UserID:          userID,
		Title:           input.Title,
		Domain:          input.Domain,
		ShareID:         newShareID(),
		GenerationInput: genInput,
		Status:          workflow.StatusDraft,
		EnhanceStatus:   models.EnhanceIdle,
	}

	if err := s.projectRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	event := &models.TimelineEvent{
		ProjectID:       p.ID,
		OccurredAt:      s.now(),
		Title:           workflow.TitleProjectCreated,
		Description:     fmt.Sprintf("Project %q created.", p.Title),
		ResultingStatus: p.Status,
	}
	if err := s.timelineRepo.Append(ctx, event); err != nil {
		logger.L().Error("append creation event failed", zap.String("project_id", p.ID.String()), zap.Error(err))
	}

	s.dispatcher.Publish(ctx, notify.Event{
		Kind: notify.KindProjectCreated,
		Project: notify.ProjectInfo{
			ID:        p.ID.String(),
			Name:      p.Title,
			Domain:    p.Domain,
			ShareID:   p.ShareID,
			Author:    userID.String(),
			CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
		},
	})

	logger.L().Info("project created", zap.String("project_id", p.ID.String()), zap.String("user_id", userID.String()))
	return p, nil
}

func (s *projectService) GetProject(ctx context.Context, projectID, userID uuid.UUID) (*models.Project, error) {
	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, appErr.New(appErr.CodeUnauthorized, "user does not own project")
	}
	return &p, nil
}

func (s *projectService) ListProjects(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	logger.L().Info("list projects", zap.String("user_id", userID.String()))
	return s.projectRepo.ListByUser(ctx, userID)
}

func (s *projectService) UpdateProject(ctx context.Context, projectID, userID uuid.UUID, updates *UpdateProjectInput) (*models.Project, error) {
	logger.L().Info("update project", zap.String("project_id", projectID.String()), zap.String("user_id", userID.String()))
	p, err := s.GetProject(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}

	if updates.Title != nil {
		p.Title = *updates.Title
	}
	if updates.ContentMarkdown != nil {
		p.ContentMarkdown = *updates.ContentMarkdown
	}
	if updates.IsPublic != nil {
		p.IsPublic = *updates.IsPublic
	}
	if updates.GenerationInput != nil {
		b, err := json.Marshal(updates.GenerationInput)
		if err != nil {
			return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid generation input json")
		}
		p.GenerationInput = datatypes.JSON(b)
	}

	if err := s.projectRepo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *projectService) DeleteProject(ctx context.Context, projectID, userID uuid.UUID) error {
	logger.L().Info("delete project", zap.String("project_id", projectID.String()), zap.String("user_id", userID.String()))
	if _, err := s.GetProject(ctx, projectID, userID); err != nil {
		return err
	}
	return s.projectRepo.Delete(ctx, projectID)
}

// GetSharedProject resolves a public share link. Only projects the
// owner marked public are visible.
func (s *projectService) GetSharedProject(ctx context.Context, shareID string) (*models.Project, error) {
	if shareID == "" {
		return nil, appErr.New(appErr.CodeInvalid, "share id is required")
	}
	var p models.Project
	if err := s.projectRepo.GetByShareID(ctx, shareID, &p); err != nil {
		return nil, err
	}
	if !p.IsPublic {
		return nil, appErr.New(appErr.CodeForbidden, "project is not public")
	}
	return &p, nil
}

// GetReviewProject loads a project for the public review page. Reviewers
// only see projects that have actually been sent out.
func (s *projectService) GetReviewProject(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	if p.Status == workflow.StatusDraft {
		return nil, appErr.New(appErr.CodeForbidden, "project has not been sent for review")
	}
	return &p, nil
}

func (s *projectService) GetTimeline(ctx context.Context, projectID, userID uuid.UUID) ([]models.TimelineEvent, error) {
	if _, err := s.GetProject(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.timelineRepo.ListByProject(ctx, projectID)
}

func (s *projectService) RegisterPrototype(ctx context.Context, projectID, userID uuid.UUID, prototypeURL string) (*models.Project, error) {
	logger.L().Info("register prototype", zap.String("project_id", projectID.String()), zap.String("user_id", userID.String()))
	if prototypeURL == "" {
		return nil, appErr.New(appErr.CodeInvalid, "prototype url is required")
	}
	p, err := s.GetProject(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}

	p.PrototypeURL = prototypeURL
	p.HasPrototype = true
	if err := s.projectRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.dispatcher.Publish(ctx, notify.Event{
		Kind: notify.KindPrototypeGenerated,
		Project: notify.ProjectInfo{
			ID:           p.ID.String(),
			Name:         p.Title,
			ShareID:      p.ShareID,
			PrototypeURL: prototypeURL,
		},
		Links: notify.Links{
			Demo: fmt.Sprintf("%s/demo/%s", s.frontendURL, p.ID.String()),
		},
	})
	return p, nil
}

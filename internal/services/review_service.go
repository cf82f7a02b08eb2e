package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docuverse/studio/internal/models"
	"github.com/docuverse/studio/internal/repository"
	"github.com/docuverse/studio/internal/workflow"
	appErr "github.com/docuverse/studio/pkg/errors"
	"github.com/docuverse/studio/pkg/logger"
)

// ReviewService drives the review workflow: sending documents out,
// recording reviewer responses, and advancing the project status. Every
// accepted transition writes exactly one timeline event atomically with
// the status change; rejected transitions write nothing.
type ReviewService interface {
	SendForReview(ctx context.Context, projectID, userID uuid.UUID, input *SendReviewInput) (*models.Project, error)

	// SubmitFeedback and Approve are invoked from the public review page
	// and carry no authenticated user.
	SubmitFeedback(ctx context.Context, projectID uuid.UUID, input *ReviewResponseInput) (*models.Project, error)
	Approve(ctx context.Context, projectID uuid.UUID, input *ReviewResponseInput) (*models.Project, error)

	ListFeedback(ctx context.Context, projectID, userID uuid.UUID) ([]models.Feedback, error)
}

type SendReviewInput struct {
	ReviewerEmail string
	Notes         string
}

type ReviewResponseInput struct {
	Source  string
	Content string
}

type reviewService struct {
	projectRepo  repository.ProjectRepository
	timelineRepo repository.TimelineRepository
	feedbackRepo repository.FeedbackRepository
	artifactRepo repository.ArtifactRepository
	now          func() time.Time
}

func NewReviewService(projectRepo repository.ProjectRepository, timelineRepo repository.TimelineRepository, feedbackRepo repository.FeedbackRepository, artifactRepo repository.ArtifactRepository) ReviewService {
	return &reviewService{
		projectRepo:  projectRepo,
		timelineRepo: timelineRepo,
		feedbackRepo: feedbackRepo,
		artifactRepo: artifactRepo,
		now:          time.Now,
	}
}

var _ ReviewService = (*reviewService)(nil)

func (s *reviewService) SendForReview(ctx context.Context, projectID, userID uuid.UUID, input *SendReviewInput) (*models.Project, error) {
	logger.L().Info("send for review", zap.String("project_id", projectID.String()), zap.String("user_id", userID.String()))

	if input.ReviewerEmail == "" {
		return nil, appErr.New(appErr.CodeInvalid, "reviewer email is required")
	}

	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, appErr.New(appErr.CodeUnauthorized, "user does not own project")
	}
	if p.DocumentURL == "" {
		return nil, appErr.New(appErr.CodeInvalid, "no document available to review")
	}
	if !workflow.CanTransition(p.Status, workflow.StatusInReview) {
		return nil, appErr.New(appErr.CodeInvalid, fmt.Sprintf("cannot send for review from status %s", p.Status))
	}

	// A change request must be answered with a fresher document: the
	// active artifact has to postdate the last "Changes Requested" event.
	if p.Status == workflow.StatusChangesRequested {
		requested, err := s.timelineRepo.LastTitled(ctx, p.ID, workflow.TitleChangesRequested)
		if err != nil {
			return nil, err
		}
		if requested != nil {
			var active models.Artifact
			if err := s.artifactRepo.GetActive(ctx, p.ID, &active); err != nil {
				return nil, err
			}
			if !active.CreatedAt.After(requested.OccurredAt) {
				return nil, appErr.New(appErr.CodeInvalid, "regenerate the document before resending it for review")
			}
		}
	}

	// A prior "Review Sent" in the timeline makes this a resend.
	resend, err := s.timelineRepo.HasTitle(ctx, p.ID, workflow.TitleReviewSent)
	if err != nil {
		return nil, err
	}
	title := workflow.TitleReviewSent
	if resend {
		title = workflow.TitleReviewResent
	}

	p.Status = workflow.StatusInReview
	p.ReviewerEmail = input.ReviewerEmail

	description := fmt.Sprintf("Document sent to %s for review.", input.ReviewerEmail)
	if input.Notes != "" {
		description = fmt.Sprintf("%s Notes: %s", description, input.Notes)
	}
	event := &models.TimelineEvent{
		ProjectID:       p.ID,
		OccurredAt:      s.now(),
		Title:           title,
		Description:     description,
		ResultingStatus: p.Status,
	}
	if err := s.projectRepo.SaveTransition(ctx, &p, event, nil); err != nil {
		return nil, err
	}

	logger.L().Info("review request recorded",
		zap.String("project_id", p.ID.String()),
		zap.String("reviewer", input.ReviewerEmail),
		zap.Bool("resend", resend))
	return &p, nil
}

func (s *reviewService) SubmitFeedback(ctx context.Context, projectID uuid.UUID, input *ReviewResponseInput) (*models.Project, error) {
	logger.L().Info("submit review feedback", zap.String("project_id", projectID.String()))

	if input.Content == "" {
		return nil, appErr.New(appErr.CodeInvalid, "feedback content is required")
	}

	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	if !workflow.CanTransition(p.Status, workflow.StatusChangesRequested) {
		return nil, appErr.New(appErr.CodeInvalid, fmt.Sprintf("cannot request changes from status %s", p.Status))
	}

	p.Status = workflow.StatusChangesRequested
	feedback := &models.Feedback{
		ProjectID: p.ID,
		Source:    input.Source,
		Content:   input.Content,
		Kind:      models.FeedbackRequestChanges,
	}
	event := &models.TimelineEvent{
		ProjectID:       p.ID,
		OccurredAt:      s.now(),
		Title:           workflow.TitleChangesRequested,
		Description:     "Reviewer requested changes.",
		ResultingStatus: p.Status,
	}
	if err := s.projectRepo.SaveTransition(ctx, &p, event, feedback); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *reviewService) Approve(ctx context.Context, projectID uuid.UUID, input *ReviewResponseInput) (*models.Project, error) {
	logger.L().Info("approve project", zap.String("project_id", projectID.String()))

	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	if !workflow.CanTransition(p.Status, workflow.StatusApproved) {
		return nil, appErr.New(appErr.CodeInvalid, fmt.Sprintf("cannot approve from status %s", p.Status))
	}

	content := input.Content
	if content == "" {
		content = "Approved by client."
	}

	p.Status = workflow.StatusApproved
	feedback := &models.Feedback{
		ProjectID: p.ID,
		Source:    input.Source,
		Content:   content,
		Kind:      models.FeedbackApproval,
	}
	event := &models.TimelineEvent{
		ProjectID:       p.ID,
		OccurredAt:      s.now(),
		Title:           workflow.TitleClientApproved,
		Description:     "Client approved the document.",
		ResultingStatus: p.Status,
	}
	if err := s.projectRepo.SaveTransition(ctx, &p, event, feedback); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *reviewService) ListFeedback(ctx context.Context, projectID, userID uuid.UUID) ([]models.Feedback, error) {
	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, appErr.New(appErr.CodeUnauthorized, "user does not own project")
	}
	return s.feedbackRepo.ListByProject(ctx, projectID)
}

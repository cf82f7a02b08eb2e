package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/docuverse/studio/internal/models"
	"github.com/docuverse/studio/internal/workflow"
	appErr "github.com/docuverse/studio/pkg/errors"
)

func TestReviewService_SendForReview(t *testing.T) {
	projectID := uuid.New()
	userID := uuid.New()

	draft := func() *models.Project {
		return &models.Project{
			ID:          projectID,
			UserID:      userID,
			Title:       "Nebula Core",
			DocumentURL: "/files/nebula.docx",
			Status:      workflow.StatusDraft,
		}
	}

	t.Run("first send from draft", func(t *testing.T) {
		projectRepo := &mockProjectRepository{}
		timelineRepo := &mockTimelineRepository{}
		svc := NewReviewService(projectRepo, timelineRepo, &mockFeedbackRepository{}, &mockArtifactRepository{})

		projectRepo.On("GetByID", mock.Anything, projectID, &models.Project{}).
			Run(func(args mock.Arguments) {
				dest := args.Get(2).(*models.Project)
				*dest = *draft()
			}).Return(nil, draft()).Once()
		timelineRepo.On("HasTitle", mock.Anything, projectID, workflow.TitleReviewSent).Return(false, nil).Once()
		projectRepo.On("SaveTransition", mock.Anything, mock.MatchedBy(func(p *models.Project) bool {
			return p.Status == workflow.StatusInReview && p.ReviewerEmail == "client@example.com"
		}), mock.MatchedBy(func(ev *models.TimelineEvent) bool {
			return ev.Title == workflow.TitleReviewSent && ev.ResultingStatus == workflow.StatusInReview
		}), (*models.Feedback)(nil)).Return(nil).Once()

		p, err := svc.SendForReview(context.Background(), projectID, userID, &SendReviewInput{ReviewerEmail: "client@example.com"})
		require.NoError(t, err)
		require.Equal(t, workflow.StatusInReview, p.Status)
		mock.AssertExpectationsForObjects(t, projectRepo, timelineRepo)
	})

	t.Run("resend gets the resent title", func(t *testing.T) {
		projectRepo := &mockProjectRepository{}
		timelineRepo := &mockTimelineRepository{}
		svc := NewReviewService(projectRepo, timelineRepo, &mockFeedbackRepository{}, &mockArtifactRepository{})

		inReview := draft()
		inReview.Status = workflow.StatusInReview
		projectRepo.On("GetByID", mock.Anything, projectID, &models.Project{}).
			Run(func(args mock.Arguments) {
				dest := args.Get(2).(*models.Project)
				*dest = *inReview
			}).Return(nil, inReview).Once()
		timelineRepo.On("HasTitle", mock.Anything, projectID, workflow.TitleReviewSent).Return(true, nil).Once()
		projectRepo.On("SaveTransition", mock.Anything, mock.Anything, mock.MatchedBy(func(ev *models.TimelineEvent) bool {
			return ev.Title == workflow.TitleReviewResent
		}), (*models.Feedback)(nil)).Return(nil).Once()

		_, err := svc.SendForReview(context.Background(), projectID, userID, &SendReviewInput{ReviewerEmail: "client@example.com"})
		require.NoError(t, err)
		mock.AssertExpectationsForObjects(t, projectRepo, timelineRepo)
	})

	t.Run("regenerated document answers a change request", func(t *testing.T) {
		projectRepo := &mockProjectRepository{}
		timelineRepo := &mockTimelineRepository{}
		artifactRepo := &mockArtifactRepository{}
		svc := NewReviewService(projectRepo, timelineRepo, &mockFeedbackRepository{}, artifactRepo)

		requestedAt := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
		changed := draft()
		changed.Status = workflow.StatusChangesRequested
		projectRepo.On("GetByID", mock.Anything, projectID, &models.Project{}).
			Run(func(args mock.Arguments) {
				dest := args.Get(2).(*models.Project)
				*dest = *changed
			}).Return(nil, changed).Once()
		timelineRepo.On("LastTitled", mock.Anything, projectID, workflow.TitleChangesRequested).
			Return(&models.TimelineEvent{Title: workflow.TitleChangesRequested, OccurredAt: requestedAt}, nil).Once()
		artifactRepo.On("GetActive", mock.Anything, projectID, mock.Anything).
			Return(nil, &models.Artifact{CreatedAt: requestedAt.Add(time.Hour)}).Once()
		timelineRepo.On("HasTitle", mock.Anything, projectID, workflow.TitleReviewSent).Return(true, nil).Once()
		projectRepo.On("SaveTransition", mock.Anything, mock.MatchedBy(func(p *models.Project) bool {
			return p.Status == workflow.StatusInReview
		}), mock.Anything, (*models.Feedback)(nil)).Return(nil).Once()

		_, err := svc.SendForReview(context.Background(), projectID, userID, &SendReviewInput{ReviewerEmail: "client@example.com"})
		require.NoError(t, err)
		mock.AssertExpectationsForObjects(t, projectRepo, timelineRepo, artifactRepo)
	})

	t.Run("stale document cannot answer a change request", func(t *testing.T) {
		projectRepo := &mockProjectRepository{}
		timelineRepo := &mockTimelineRepository{}
		artifactRepo := &mockArtifactRepository{}
		svc := NewReviewService(projectRepo, timelineRepo, &mockFeedbackRepository{}, artifactRepo)

		requestedAt := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
		changed := draft()
		changed.Status = workflow.StatusChangesRequested
		projectRepo.On("GetByID", mock.Anything, projectID, &models.Project{}).
			Run(func(args mock.Arguments) {
				dest := args.Get(2).(*models.Project)
				*dest = *changed
			}).Return(nil, changed).Once()
		timelineRepo.On("LastTitled", mock.Anything, projectID, workflow.TitleChangesRequested).
			Return(&models.TimelineEvent{Title: workflow.TitleChangesRequested, OccurredAt: requestedAt}, nil).Once()
		artifactRepo.On("GetActive", mock.Anything, projectID, mock.Anything).
			Return(nil, &models.Artifact{CreatedAt: requestedAt.Add(-time.Hour)}).Once()

		_, err := svc.SendForReview(context.Background(), projectID, userID, &SendReviewInput{ReviewerEmail: "client@example.com"})
		require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
		projectRepo.AssertNotCalled(t, "SaveTransition", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing reviewer email writes nothing", func(t *testing.T) {
		projectRepo := &mockProjectRepository{}
		svc := NewReviewService(projectRepo, &mockTimelineRepository{}, &mockFeedbackRepository{}, &mockArtifactRepository{})

		_, err := svc.SendForReview(context.Background(), projectID, userID, &SendReviewInput{})
		require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
		projectRepo.AssertNotCalled(t, "SaveTransition", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("approved project cannot be sent again", func(t *testing.T) {
		projectRepo := &mockProjectRepository{}
		svc := NewReviewService(projectRepo, &mockTimelineRepository{}, &mockFeedbackRepository{}, &mockArtifactRepository{})

		approved := draft()
		approved.Status = workflow.StatusApproved
		projectRepo.On("GetByID", mock.Anything, projectID, &models.Project{}).
			Run(func(args mock.Arguments) {
				dest := args.Get(2).(*models.Project)
				*dest = *approved
			}).Return(nil, approved).Once()

		_, err := svc.SendForReview(context.Background(), projectID, userID, &SendReviewInput{ReviewerEmail: "client@example.com"})
		require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
		projectRepo.AssertNotCalled(t, "SaveTransition", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no document means nothing to review", func(t *testing.T) {
		projectRepo := &mockProjectRepository{}
		svc := NewReviewService(projectRepo, &mockTimelineRepository{}, &mockFeedbackRepository{}, &mockArtifactRepository{})

		empty := draft()
		empty.DocumentURL = ""
		projectRepo.On("GetByID", mock.Anything, projectID, &models.Project{}).
			Run(func(args mock.Arguments) {
				dest := args.Get(2).(*models.Project)
				*dest = *empty
			}).Return(nil, empty).Once()

		_, err := svc.SendForReview(context.Background(), projectID, userID, &SendReviewInput{ReviewerEmail: "client@example.com"})
		require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
	})

	t.Run("non-owner is rejected", func(t *testing.T) {
		projectRepo := &mockProjectRepository{}
		svc := NewReviewService(projectRepo, &mockTimelineRepository{}, &mockFeedbackRepository{}, &mockArtifactRepository{})

		projectRepo.On("GetByID", mock.Anything, projectID, &models.Project{}).
			Run(func(args mock.Arguments) {
				dest := args.Get(2).(*models.Project)
				*dest = *draft()
			}).Return(nil, draft()).Once()

		_, err := svc.SendForReview(context.Background(), projectID, uuid.New(), &SendReviewInput{ReviewerEmail: "client@example.com"})
		require.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))
	})
}

func TestReviewService_SubmitFeedback(t *testing.T) {
	projectID := uuid.New()

	inReview := func() *models.Project {
		return &models.Project{
			ID:     projectID,
			UserID: uuid.New(),
			Status: workflow.StatusInReview,
		}
	}

	t.Run("records feedback and requests changes", func(t *testing.T) {
		projectRepo := &mockProjectRepository{}
		svc := NewReviewService(projectRepo, &mockTimelineRepository{}, &mockFeedbackRepository{}, &mockArtifactRepository{})

		projectRepo.On("GetByID", mock.Anything, projectID, &models.Project{}).
			Run(func(args mock.Arguments) {
				dest := args.Get(2).(*models.Project)
				*dest = *inReview()
			}).Return(nil, inReview()).Once()
		projectRepo.On("SaveTransition", mock.Anything, mock.MatchedBy(func(p *models.Project) bool {
			return p.Status == workflow.StatusChangesRequested
		}), mock.MatchedBy(func(ev *models.TimelineEvent) bool {
			return ev.Title == workflow.TitleChangesRequested
		}), mock.MatchedBy(func(fb *models.Feedback) bool {
			return fb.Kind == models.FeedbackRequestChanges && fb.Content == "Section 3 needs detail."
		})).Return(nil).Once()

		p, err := svc.SubmitFeedback(context.Background(), projectID, &ReviewResponseInput{Source: "client@example.com", Content: "Section 3 needs detail."})
		require.NoError(t, err)
		require.Equal(t, workflow.StatusChangesRequested, p.Status)
		mock.AssertExpectationsForObjects(t, projectRepo)
	})

	t.Run("draft project rejects feedback", func(t *testing.T) {
		projectRepo := &mockProjectRepository{}
		svc := NewReviewService(projectRepo, &mockTimelineRepository{}, &mockFeedbackRepository{}, &mockArtifactRepository{})

		draft := inReview()
		draft.Status = workflow.StatusDraft
		projectRepo.On("GetByID", mock.Anything, projectID, &models.Project{}).
			Run(func(args mock.Arguments) {
				dest := args.Get(2).(*models.Project)
				*dest = *draft
			}).Return(nil, draft).Once()

		_, err := svc.SubmitFeedback(context.Background(), projectID, &ReviewResponseInput{Content: "too early"})
		require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
		projectRepo.AssertNotCalled(t, "SaveTransition", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty content is rejected", func(t *testing.T) {
		svc := NewReviewService(&mockProjectRepository{}, &mockTimelineRepository{}, &mockFeedbackRepository{}, &mockArtifactRepository{})
		_, err := svc.SubmitFeedback(context.Background(), projectID, &ReviewResponseInput{})
		require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
	})
}

func TestReviewService_Approve(t *testing.T) {
	projectID := uuid.New()

	t.Run("approves from in_review with default content", func(t *testing.T) {
		projectRepo := &mockProjectRepository{}
		svc := NewReviewService(projectRepo, &mockTimelineRepository{}, &mockFeedbackRepository{}, &mockArtifactRepository{})

		inReview := &models.Project{ID: projectID, Status: workflow.StatusInReview}
		projectRepo.On("GetByID", mock.Anything, projectID, &models.Project{}).
			Run(func(args mock.Arguments) {
				dest := args.Get(2).(*models.Project)
				*dest = *inReview
			}).Return(nil, inReview).Once()
		projectRepo.On("SaveTransition", mock.Anything, mock.MatchedBy(func(p *models.Project) bool {
			return p.Status == workflow.StatusApproved
		}), mock.MatchedBy(func(ev *models.TimelineEvent) bool {
			return ev.Title == workflow.TitleClientApproved
		}), mock.MatchedBy(func(fb *models.Feedback) bool {
			return fb.Kind == models.FeedbackApproval && fb.Content == "Approved by client."
		})).Return(nil).Once()

		p, err := svc.Approve(context.Background(), projectID, &ReviewResponseInput{Source: "client@example.com"})
		require.NoError(t, err)
		require.Equal(t, workflow.StatusApproved, p.Status)
		mock.AssertExpectationsForObjects(t, projectRepo)
	})

	t.Run("changes_requested cannot approve directly", func(t *testing.T) {
		projectRepo := &mockProjectRepository{}
		svc := NewReviewService(projectRepo, &mockTimelineRepository{}, &mockFeedbackRepository{}, &mockArtifactRepository{})

		cr := &models.Project{ID: projectID, Status: workflow.StatusChangesRequested}
		projectRepo.On("GetByID", mock.Anything, projectID, &models.Project{}).
			Run(func(args mock.Arguments) {
				dest := args.Get(2).(*models.Project)
				*dest = *cr
			}).Return(nil, cr).Once()

		_, err := svc.Approve(context.Background(), projectID, &ReviewResponseInput{})
		require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
		projectRepo.AssertNotCalled(t, "SaveTransition", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

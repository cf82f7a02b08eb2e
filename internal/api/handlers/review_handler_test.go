package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/docuverse/studio/internal/api/middleware"
	"github.com/docuverse/studio/internal/models"
	"github.com/docuverse/studio/internal/services"
	appErr "github.com/docuverse/studio/pkg/errors"
	"github.com/docuverse/studio/pkg/logger"
)

func TestMain(m *testing.M) {
	_, err := logger.Init("info", "json")
	if err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

type mockReviewService struct {
	mock.Mock
}

func (m *mockReviewService) SendForReview(ctx context.Context, projectID, userID uuid.UUID, input *services.SendReviewInput) (*models.Project, error) {
	args := m.Called(ctx, projectID, userID, input)
	if v := args.Get(0); v != nil {
		return v.(*models.Project), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReviewService) SubmitFeedback(ctx context.Context, projectID uuid.UUID, input *services.ReviewResponseInput) (*models.Project, error) {
	args := m.Called(ctx, projectID, input)
	if v := args.Get(0); v != nil {
		return v.(*models.Project), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReviewService) Approve(ctx context.Context, projectID uuid.UUID, input *services.ReviewResponseInput) (*models.Project, error) {
	args := m.Called(ctx, projectID, input)
	if v := args.Get(0); v != nil {
		return v.(*models.Project), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReviewService) ListFeedback(ctx context.Context, projectID, userID uuid.UUID) ([]models.Feedback, error) {
	args := m.Called(ctx, projectID, userID)
	if v := args.Get(0); v != nil {
		return v.([]models.Feedback), args.Error(1)
	}
	return nil, args.Error(1)
}

func reviewRouter(h *ReviewHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/projects/{id}/submit-review", h.SubmitReview)
	r.Post("/projects/{id}/send-review", h.SendForReview)
	return r
}

func TestReviewHandler_SubmitReview(t *testing.T) {
	projectID := uuid.New()

	t.Run("approval routes to Approve", func(t *testing.T) {
		svc := &mockReviewService{}
		svc.On("Approve", mock.Anything, projectID, mock.MatchedBy(func(in *services.ReviewResponseInput) bool {
			return in.Content == "looks great"
		})).Return(&models.Project{}, nil).Once()

		h := NewReviewHandler(nil, svc)
		body := strings.NewReader(`{"status":"APPROVED","feedback":"looks great"}`)
		req := httptest.NewRequest(http.MethodPost, "/projects/"+projectID.String()+"/submit-review", body)
		rr := httptest.NewRecorder()
		reviewRouter(h).ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		svc.AssertNotCalled(t, "SubmitFeedback", mock.Anything, mock.Anything, mock.Anything)
		mock.AssertExpectationsForObjects(t, svc)
	})

	t.Run("change request routes to SubmitFeedback", func(t *testing.T) {
		svc := &mockReviewService{}
		svc.On("SubmitFeedback", mock.Anything, projectID, mock.Anything).Return(&models.Project{}, nil).Once()

		h := NewReviewHandler(nil, svc)
		body := strings.NewReader(`{"status":"CHANGES_REQUESTED","feedback":"needs more detail"}`)
		req := httptest.NewRequest(http.MethodPost, "/projects/"+projectID.String()+"/submit-review", body)
		rr := httptest.NewRecorder()
		reviewRouter(h).ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		mock.AssertExpectationsForObjects(t, svc)
	})

	t.Run("unknown status rejected before the service is called", func(t *testing.T) {
		svc := &mockReviewService{}
		h := NewReviewHandler(nil, svc)
		body := strings.NewReader(`{"status":"MAYBE"}`)
		req := httptest.NewRequest(http.MethodPost, "/projects/"+projectID.String()+"/submit-review", body)
		rr := httptest.NewRecorder()
		reviewRouter(h).ServeHTTP(rr, req)

		require.Equal(t, http.StatusBadRequest, rr.Code)
		svc.AssertNotCalled(t, "Approve", mock.Anything, mock.Anything, mock.Anything)
		svc.AssertNotCalled(t, "SubmitFeedback", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("service conflict maps to 409", func(t *testing.T) {
		svc := &mockReviewService{}
		svc.On("Approve", mock.Anything, projectID, mock.Anything).
			Return(nil, appErr.New(appErr.CodeConflict, "invalid status transition")).Once()

		h := NewReviewHandler(nil, svc)
		body := strings.NewReader(`{"status":"APPROVED"}`)
		req := httptest.NewRequest(http.MethodPost, "/projects/"+projectID.String()+"/submit-review", body)
		rr := httptest.NewRecorder()
		reviewRouter(h).ServeHTTP(rr, req)

		require.Equal(t, http.StatusConflict, rr.Code)

		var resp struct {
			Success bool `json:"success"`
			Error   *struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.False(t, resp.Success)
		require.Equal(t, "conflict", resp.Error.Code)
	})
}

func TestReviewHandler_SendForReview(t *testing.T) {
	projectID := uuid.New()
	userID := uuid.New()

	withUser := func(req *http.Request) *http.Request {
		return req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, userID.String()))
	}

	t.Run("valid request reaches the service", func(t *testing.T) {
		svc := &mockReviewService{}
		svc.On("SendForReview", mock.Anything, projectID, userID, mock.MatchedBy(func(in *services.SendReviewInput) bool {
			return in.ReviewerEmail == "client@example.com"
		})).Return(&models.Project{}, nil).Once()

		h := NewReviewHandler(nil, svc)
		body := strings.NewReader(`{"reviewer_email":"client@example.com"}`)
		req := withUser(httptest.NewRequest(http.MethodPost, "/projects/"+projectID.String()+"/send-review", body))
		rr := httptest.NewRecorder()
		reviewRouter(h).ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		mock.AssertExpectationsForObjects(t, svc)
	})

	t.Run("missing reviewer email rejected", func(t *testing.T) {
		svc := &mockReviewService{}
		h := NewReviewHandler(nil, svc)
		body := strings.NewReader(`{"notes":"please look"}`)
		req := withUser(httptest.NewRequest(http.MethodPost, "/projects/"+projectID.String()+"/send-review", body))
		rr := httptest.NewRecorder()
		reviewRouter(h).ServeHTTP(rr, req)

		require.Equal(t, http.StatusBadRequest, rr.Code)
		svc.AssertNotCalled(t, "SendForReview", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing user identity rejected", func(t *testing.T) {
		svc := &mockReviewService{}
		h := NewReviewHandler(nil, svc)
		body := strings.NewReader(`{"reviewer_email":"client@example.com"}`)
		req := httptest.NewRequest(http.MethodPost, "/projects/"+projectID.String()+"/send-review", body)
		rr := httptest.NewRecorder()
		reviewRouter(h).ServeHTTP(rr, req)

		require.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/docuverse/studio/internal/api/types"
	"github.com/docuverse/studio/internal/api/validators"
	"github.com/docuverse/studio/internal/services"
)

type ReviewHandler struct {
	projectSvc services.ProjectService
	reviewSvc  services.ReviewService
	validate   interface{ Struct(any) error }
}

func NewReviewHandler(projectSvc services.ProjectService, reviewSvc services.ReviewService) *ReviewHandler {
	return &ReviewHandler{projectSvc: projectSvc, reviewSvc: reviewSvc, validate: validators.New()}
}

// SendForReview sends the project's active document out to a reviewer
// and moves the workflow into IN_REVIEW.
func (h *ReviewHandler) SendForReview(w http.ResponseWriter, r *http.Request) {
	var req types.SendReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.reviewSvc.SendForReview(r.Context(), projectID, userID, &services.SendReviewInput{
		ReviewerEmail: req.ReviewerEmail,
		Notes:         req.Notes,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: p})
}

// PublicReview serves the project to the unauthenticated review page.
// Drafts are not visible to reviewers.
func (h *ReviewHandler) PublicReview(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.projectSvc.GetReviewProject(r.Context(), projectID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: p})
}

// SubmitReview records a reviewer's decision from the public review
// page: approval or a change request with feedback.
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	var req types.SubmitReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, err.Error())
		return
	}
	projectID, ok := pathID(w, r)
	if !ok {
		return
	}

	input := &services.ReviewResponseInput{Source: req.Source, Content: req.Feedback}
	var (
		p   any
		err error
	)
	if req.Status == "APPROVED" {
		p, err = h.reviewSvc.Approve(r.Context(), projectID, input)
	} else {
		p, err = h.reviewSvc.SubmitFeedback(r.Context(), projectID, input)
	}
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: p})
}

func (h *ReviewHandler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r)
	if !ok {
		return
	}
	items, err := h.reviewSvc.ListFeedback(r.Context(), projectID, userID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: items})
}

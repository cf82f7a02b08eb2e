package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/docuverse/studio/internal/api/types"
	"github.com/docuverse/studio/internal/api/validators"
	"github.com/docuverse/studio/internal/generation"
	"github.com/docuverse/studio/internal/services"
)

type GenerationHandler struct {
	svc      services.GenerationService
	validate interface{ Struct(any) error }
}

func NewGenerationHandler(svc services.GenerationService) *GenerationHandler {
	return &GenerationHandler{svc: svc, validate: validators.New()}
}

// Generate runs a blocking generation for the project. A job that
// outlives the recovery budget answers 202 with a pending result rather
// than an error; polling continues via Progress.
func (h *GenerationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateRequest
	// An absent body means "regenerate with stored input".
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
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

	tier := generation.Tier(req.Tier)
	if tier == "" {
		tier = generation.TierFull
	}
	result, err := h.svc.Submit(r.Context(), projectID, userID, &services.SubmitInput{Tier: tier, Input: req.Input})
	if err != nil {
		writeAppError(w, err)
		return
	}
	status := http.StatusOK
	if result.Pending {
		status = http.StatusAccepted
	}
	writeJSON(w, status, types.APIResponse{Success: true, Data: result})
}

func (h *GenerationHandler) Progress(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r)
	if !ok {
		return
	}
	report, err := h.svc.Progress(r.Context(), projectID, userID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: report})
}

// EnhanceStatus polls the background enhancement build, applying the
// enhanced artifact when it is ready.
func (h *GenerationHandler) EnhanceStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.CheckEnhanced(r.Context(), projectID, userID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: p})
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/docuverse/studio/internal/api/middleware"
	"github.com/docuverse/studio/internal/api/types"
	"github.com/docuverse/studio/internal/api/validators"
	"github.com/docuverse/studio/internal/services"
	appErr "github.com/docuverse/studio/pkg/errors"
)

type ProjectsHandler struct {
	svc      services.ProjectService
	validate interface{ Struct(any) error }
}

func NewProjectsHandler(svc services.ProjectService) *ProjectsHandler {
	return &ProjectsHandler{svc: svc, validate: validators.New()}
}

func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	items, err := h.svc.ListProjects(r.Context(), userID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	start := (page - 1) * size
	end := start + size
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}
	resp := types.APIResponse{Success: true, Data: items[start:end], Meta: &types.Meta{Page: page, PageSize: size, Total: int64(len(items))}}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.ProjectCreateRequest
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
	p, err := h.svc.CreateProject(r.Context(), userID, &services.CreateProjectInput{
		Title:           req.Title,
		Domain:          req.Domain,
		GenerationInput: req.GenerationInput,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.APIResponse{Success: true, Data: p})
}

func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.GetProject(r.Context(), projectID, userID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: p})
}

func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req types.ProjectUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
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
	p, err := h.svc.UpdateProject(r.Context(), projectID, userID, &services.UpdateProjectInput{
		Title:           req.Title,
		ContentMarkdown: req.ContentMarkdown,
		IsPublic:        req.IsPublic,
		GenerationInput: req.GenerationInput,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: p})
}

func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteProject(r.Context(), projectID, userID); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true})
}

func (h *ProjectsHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r)
	if !ok {
		return
	}
	events, err := h.svc.GetTimeline(r.Context(), projectID, userID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: events})
}

func (h *ProjectsHandler) RegisterPrototype(w http.ResponseWriter, r *http.Request) {
	var req types.PrototypeRequest
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
	p, err := h.svc.RegisterPrototype(r.Context(), projectID, userID, req.PrototypeURL)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: p})
}

// SharedView serves a project by its public share id. No authentication;
// possession of the link is the authorization.
func (h *ProjectsHandler) SharedView(w http.ResponseWriter, r *http.Request) {
	shareID := chi.URLParam(r, "shareId")
	p, err := h.svc.GetSharedProject(r.Context(), shareID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: p})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, types.APIResponse{Success: false, Error: types.FromAppError(err)})
}

func writeErrorStr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.APIResponse{Success: false, Error: &types.APIError{Code: "invalid", Message: msg}})
}

// writeAppError derives the HTTP status from the error's code.
func writeAppError(w http.ResponseWriter, err error) {
	writeError(w, types.HTTPStatus(err), err)
}

func authedUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := uuid.Parse(middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusUnauthorized, appErr.New(appErr.CodeUnauthorized, "missing user identity"))
		return uuid.Nil, false
	}
	return userID, true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid project id")
		return uuid.Nil, false
	}
	return id, true
}

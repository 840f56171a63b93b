package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/brief-builder/internal/model"
	"github.com/sakif/brief-builder/internal/service"
)

// BriefHandler manages CRUD operations for briefs.
//
// Reads by id and the main brief are public (respondents need them to render
// the questionnaire). Everything else is behind RequireAuth and scoped to the
// authenticated owner.
type BriefHandler struct {
	service *service.BriefService
	logger  *slog.Logger
}

func NewBriefHandler(svc *service.BriefService, logger *slog.Logger) *BriefHandler {
	return &BriefHandler{
		service: svc,
		logger:  logger,
	}
}

// HandleCreate creates a brief owned by the caller.
//
// HTTP: POST /briefs
// REQUEST BODY: {"title": "...", "description": "...", "steps": [{"title": "...", "questions": [...]}]}
func (h *BriefHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ownerID, err := currentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var in model.BriefInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	brief, err := h.service.Create(r.Context(), ownerID, in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, brief)
}

// HandleList returns the caller's briefs, newest first.
//
// HTTP: GET /briefs
func (h *BriefHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ownerID, err := currentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	briefs, err := h.service.List(r.Context(), ownerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, briefs)
}

// HandleGetByID returns a single brief.
//
// HTTP: GET /briefs/{id}
//
// chi.URLParam extracts {id} from the matched route pattern.
func (h *BriefHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	brief, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, brief)
}

// HandleUpdate fully replaces a brief's title, description and step tree.
//
// HTTP: PUT /briefs/{id}
func (h *BriefHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ownerID, err := currentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var in model.BriefInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	brief, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), ownerID, in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, brief)
}

// HandleSetMain marks a brief as the caller's main brief.
//
// HTTP: PUT /briefs/{id}/set-main
func (h *BriefHandler) HandleSetMain(w http.ResponseWriter, r *http.Request) {
	ownerID, err := currentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	brief, err := h.service.SetMain(r.Context(), chi.URLParam(r, "id"), ownerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, brief)
}

// HandleDelete removes a brief with its steps, questions and submissions.
//
// HTTP: DELETE /briefs/{id}
// 204 No Content: success, nothing to return.
func (h *BriefHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ownerID, err := currentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id"), ownerID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleGetMain returns the brief shown to anonymous respondents.
//
// HTTP: GET /main-brief
func (h *BriefHandler) HandleGetMain(w http.ResponseWriter, r *http.Request) {
	brief, err := h.service.GetMain(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, brief)
}

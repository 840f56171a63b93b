package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/brief-builder/internal/apperror"
	"github.com/sakif/brief-builder/internal/model"
	"github.com/sakif/brief-builder/internal/service"
)

// SubmissionHandler serves anonymous submissions and their PDF reports.
type SubmissionHandler struct {
	service *service.SubmissionService
	logger  *slog.Logger
}

func NewSubmissionHandler(svc *service.SubmissionService, logger *slog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: svc,
		logger:  logger,
	}
}

type submissionRequest struct {
	BriefID string        `json:"brief_id"`
	Answers model.Answers `json:"answers"`
}

// HandleCreate stores a respondent's answers under a fresh session id.
//
// HTTP: POST /briefs/submissions
// REQUEST BODY: {"brief_id": "...", "answers": {"<question id>": <any JSON>, ...}}
func (h *SubmissionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req submissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if model.IsAnswersShapeError(err) {
			writeError(w, apperror.ValidationFailed("answers", "answers must be a JSON object"))
			return
		}
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body: "+err.Error()))
		return
	}

	sub, err := h.service.Create(r.Context(), req.BriefID, req.Answers)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sub)
}

// HandleListForBrief returns a brief's submissions to its owner.
//
// HTTP: GET /briefs/{id}/submissions
func (h *SubmissionHandler) HandleListForBrief(w http.ResponseWriter, r *http.Request) {
	ownerID, err := currentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	subs, err := h.service.ListForBrief(r.Context(), chi.URLParam(r, "id"), ownerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, subs)
}

// HandleGetBySession returns a submission to whoever holds its session id.
//
// HTTP: GET /briefs/submission/{sessionId}
func (h *SubmissionHandler) HandleGetBySession(w http.ResponseWriter, r *http.Request) {
	sub, err := h.service.GetBySession(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// HandleReport streams the PDF report of a submission as a download.
//
// HTTP: GET /briefs/submissions/{sessionId}/pdf
func (h *SubmissionHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	pdf, err := h.service.Report(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="brief_report_%s.pdf"`, sessionID))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		h.logger.Warn("writing report failed",
			slog.String("sessionID", sessionID),
			slog.String("error", err.Error()),
		)
	}
}

package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/brief-builder/internal/apperror"
	"github.com/sakif/brief-builder/internal/service"
)

// multipartOverhead leaves room for boundaries and part headers on top of
// the file itself.
const multipartOverhead = 1 << 20

// UploadHandler accepts files attached to answers of file-type questions.
type UploadHandler struct {
	service *service.UploadService
	logger  *slog.Logger
}

func NewUploadHandler(svc *service.UploadService, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		service: svc,
		logger:  logger,
	}
}

type uploadResponse struct {
	URL string `json:"url"`
}

// HandleUpload stores the multipart field "file" and returns its public URL.
//
// HTTP: POST /briefs/uploadfile
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, service.MaxUploadSize+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, apperror.ValidationFailed("file", "file is too large"))
		case errors.Is(err, http.ErrMissingFile):
			writeError(w, apperror.ValidationFailed("file", "file is required"))
		default:
			writeError(w, apperror.ValidationFailed("file", "invalid multipart body"))
		}
		return
	}
	defer file.Close()

	url, err := h.service.Upload(r.Context(), header.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{URL: url})
}

package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/sakif/brief-builder/internal/apperror"
	"github.com/sakif/brief-builder/internal/storage"
)

// MaxUploadSize caps a single uploaded file.
const MaxUploadSize = 10 << 20 // 10 MiB

// allowedUploads maps accepted content types to the extensions a stored file
// may carry. The first one is used when the client's filename has none of
// them. The stored extension decides the Content-Type /uploads/ serves, so it
// must always agree with the sniffed type.
var allowedUploads = map[string][]string{
	"image/jpeg":      {".jpg", ".jpeg"},
	"image/png":       {".png"},
	"image/gif":       {".gif"},
	"application/pdf": {".pdf"},
	"application/zip": {".zip"},
}

// UploadService stores files attached to answers (file-type questions).
type UploadService struct {
	store  storage.Store
	logger *slog.Logger
}

func NewUploadService(store storage.Store, logger *slog.Logger) *UploadService {
	return &UploadService{
		store:  store,
		logger: logger,
	}
}

// Upload checks size and type and stores the file as <uuid><ext>.
//
// The type is sniffed from the content (net/http.DetectContentType), not
// taken from the client. Files larger than MaxUploadSize are rejected
// without being stored.
func (s *UploadService) Upload(ctx context.Context, filename string, body io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(body, MaxUploadSize+1))
	if err != nil {
		return "", fmt.Errorf("service/upload: reading upload: %w", err)
	}
	if len(data) == 0 {
		return "", apperror.ValidationFailed("file", "file is empty")
	}
	if len(data) > MaxUploadSize {
		return "", apperror.ValidationFailed("file",
			fmt.Sprintf("file must be %d MiB or smaller", MaxUploadSize>>20))
	}

	contentType := http.DetectContentType(data)
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	exts, ok := allowedUploads[contentType]
	if !ok {
		return "", apperror.ValidationFailed("file",
			fmt.Sprintf("file type %s is not allowed", contentType))
	}

	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if !slices.Contains(exts, ext) {
		ext = exts[0]
	}
	name := uuid.NewString() + ext

	url, err := s.store.Save(ctx, name, contentType, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("service/upload: storing %s: %w", name, err)
	}

	s.logger.Info("file uploaded",
		slog.String("name", name),
		slog.String("contentType", contentType),
		slog.Int("bytes", len(data)),
	)
	return url, nil
}

package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or writeError so the API has a
// single JSON shape for success and failure:
//
//	writeJSON(w, http.StatusOK, brief)
//	writeError(w, err)
//
// Errors always look like:
//
//	{"error": "not_found", "message": "brief not found with id abc123"}
//	{"error": "validation_error", "message": "title is required", "field": "title"}

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/brief-builder/internal/apperror"
	"github.com/sakif/brief-builder/internal/auth"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`           // Machine-readable error kind (e.g., "not_found")
	Message string `json:"message"`         // Human-readable description
	Field   string `json:"field,omitempty"` // Offending input field, when known
}

// writeJSON sends a JSON response with the given status code.
// Headers must be set before WriteHeader; anything set afterwards is ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// WriteError is writeError exported for auth.RequireAuth, so authentication
// failures use the same error body as every other endpoint.
func WriteError(w http.ResponseWriter, err error) {
	writeError(w, err)
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// errors.Is walks the whole chain, so a service error wrapped with
// fmt.Errorf("service/brief: ...: %w", apperror.NotFound(...)) still maps to 404.
func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, auth.ErrMissingToken) {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "not authenticated",
		})
		return
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status, kind := statusFor(err)
		if status == http.StatusUnauthorized {
			w.Header().Set("WWW-Authenticate", "Bearer")
		}
		writeJSON(w, status, ErrorResponse{
			Error:   kind,
			Message: appErr.Message,
			Field:   appErr.Field,
		})
		return
	}

	// Unknown error: never expose the raw message (SQL, file paths, ...).
	slog.Error("unhandled error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decodeJSON reads a JSON request body into dst. Malformed bodies become a
// validation error naming the body as the offending field.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "invalid JSON body: "+err.Error())
	}
	return nil
}

// currentUser returns the user stored by auth.RequireAuth. Routes that call it
// are always behind RequireAuth, so a missing user means a wiring bug.
func currentUser(r *http.Request) (string, error) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return "", auth.ErrMissingToken
	}
	return user.ID, nil
}

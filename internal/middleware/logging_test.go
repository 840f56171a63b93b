package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantLevel string
		wantCode  int
		wantBytes int
	}{
		{
			name:      "implicit 200",
			handler:   func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("hello")) },
			wantLevel: "INFO",
			wantCode:  http.StatusOK,
			wantBytes: 5,
		},
		{
			name:      "not found",
			handler:   func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) },
			wantLevel: "WARN",
			wantCode:  http.StatusNotFound,
			wantBytes: len("404 page not found\n"),
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.WriteHeader(http.StatusOK) // superfluous, ignored
			},
			wantLevel: "ERROR",
			wantCode:  http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			h := chimiddleware.RequestID(Logger(logger)(tt.handler))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/briefs/abc", nil))

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, "request completed", entry["msg"])
			assert.Equal(t, "GET", entry["method"])
			assert.Equal(t, "/briefs/abc", entry["path"])
			assert.EqualValues(t, tt.wantCode, entry["status"])
			assert.EqualValues(t, tt.wantBytes, entry["bytes"])
			assert.NotEmpty(t, entry["requestID"])
		})
	}
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/brief-builder/internal/auth"
	"github.com/sakif/brief-builder/internal/report"
	"github.com/sakif/brief-builder/internal/repository/sqlite"
	"github.com/sakif/brief-builder/internal/service"
)

// testAPI is the full handler set over an in-memory database, routed the
// same way the server routes them.
type testAPI struct {
	router http.Handler
	db     *sqlite.DB
	files  *memStore
}

type memStore struct {
	saved map[string][]byte
}

func (m *memStore) Save(_ context.Context, name, _ string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.saved[name] = data
	return "/uploads/" + name, nil
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("disk gone") }

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", 0)
	require.NoError(t, err)

	files := &memStore{saved: map[string][]byte{}}
	authService := service.NewAuthService(db, tokens, auth.NewPasswordServiceForTest(4), logger)
	github := auth.NewGitHubProvider("client-id", "client-secret", "http://localhost/auth/github/callback")

	authHandler := NewAuthHandler(authService, github, logger)
	briefHandler := NewBriefHandler(service.NewBriefService(db, logger), logger)
	submissionHandler := NewSubmissionHandler(
		service.NewSubmissionService(db, db, report.NewPDFRenderer(report.PDFOptions{}, logger), logger),
		logger,
	)
	uploadHandler := NewUploadHandler(service.NewUploadService(files, logger), logger)
	healthHandler := NewHealthHandler(db, logger)

	r := chi.NewRouter()
	requireAuth := auth.RequireAuth(authService, WriteError)

	r.Get("/healthz", healthHandler.HandleHealth)
	r.Post("/register", authHandler.HandleRegister)
	r.Post("/token", authHandler.HandleToken)
	r.Get("/auth/github/login", authHandler.HandleGitHubLogin)
	r.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	r.With(requireAuth).Get("/users/me", authHandler.HandleMe)
	r.Get("/main-brief", briefHandler.HandleGetMain)
	r.Route("/briefs", func(r chi.Router) {
		r.Post("/submissions", submissionHandler.HandleCreate)
		r.Get("/submission/{sessionId}", submissionHandler.HandleGetBySession)
		r.Get("/submissions/{sessionId}/pdf", submissionHandler.HandleReport)
		r.Post("/uploadfile", uploadHandler.HandleUpload)
		r.Get("/{id}", briefHandler.HandleGetByID)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", briefHandler.HandleCreate)
			r.Get("/", briefHandler.HandleList)
			r.Put("/{id}", briefHandler.HandleUpdate)
			r.Put("/{id}/set-main", briefHandler.HandleSetMain)
			r.Delete("/{id}", briefHandler.HandleDelete)
			r.Get("/{id}/submissions", submissionHandler.HandleListForBrief)
		})
	})

	return &testAPI{router: r, db: db, files: files}
}

// do sends a JSON request (body may be nil) with an optional bearer token.
func (a *testAPI) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// login registers username and returns a bearer token for it.
func (a *testAPI) login(t *testing.T, username string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/register", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "correct horse",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/token", map[string]string{
		"username": username,
		"password": "correct horse",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	decode(t, rec, &tok)
	return tok.AccessToken
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func errorKind(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	decode(t, rec, &e)
	return e
}

const briefJSON = `{
	"title": "Website redesign",
	"description": "Scope",
	"steps": [
		{"title": "Basics", "questions": [
			{"text": "Project name?", "question_type": "text", "is_required": true},
			{"text": "Budget?", "question_type": "choice", "options": ["low", "high"]}
		]},
		{"title": "Files", "conditional_logic": {"show_if": "budget"}, "questions": [
			{"text": "Attachments", "question_type": "file"}
		]}
	]
}`

type briefBody struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	IsMain bool   `json:"is_main"`
	Steps  []struct {
		ID               string          `json:"id"`
		Order            int             `json:"order"`
		ConditionalLogic json.RawMessage `json:"conditional_logic"`
		Questions        []struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"questions"`
	} `json:"steps"`
}

func (a *testAPI) createBrief(t *testing.T, token string) briefBody {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/briefs", briefJSON, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var b briefBody
	decode(t, rec, &b)
	return b
}

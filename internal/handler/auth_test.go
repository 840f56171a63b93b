package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/register", map[string]string{
		"username": "ada",
		"email":    "ada@example.com",
		"password": "correct horse",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var user map[string]any
	decode(t, rec, &user)
	assert.Equal(t, "ada", user["username"])
	assert.Equal(t, true, user["is_active"])
	assert.NotContains(t, user, "password_hash")
	assert.NotContains(t, rec.Body.String(), "correct horse")
}

func TestRegister_Errors(t *testing.T) {
	api := newTestAPI(t)
	api.login(t, "ada")

	tests := []struct {
		name      string
		body      any
		wantCode  int
		wantField string
	}{
		{"duplicate username", map[string]string{"username": "ADA", "email": "other@example.com", "password": "correct horse"}, http.StatusConflict, "username"},
		{"duplicate email", map[string]string{"username": "bob", "email": "ada@example.com", "password": "correct horse"}, http.StatusConflict, "email"},
		{"short password", map[string]string{"username": "bob", "email": "bob@example.com", "password": "short"}, http.StatusBadRequest, "password"},
		{"bad json", `{"username":`, http.StatusBadRequest, "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/register", tt.body, "")
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantField, errorKind(t, rec).Field)
		})
	}
}

func TestToken_Form(t *testing.T) {
	api := newTestAPI(t)
	api.login(t, "ada")

	form := url.Values{"username": {"ada@example.com"}, "password": {"correct horse"}}
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tok map[string]string
	decode(t, rec, &tok)
	assert.NotEmpty(t, tok["access_token"])
	assert.Equal(t, "bearer", tok["token_type"])
}

func TestToken_WrongPassword(t *testing.T) {
	api := newTestAPI(t)
	api.login(t, "ada")

	rec := api.do(t, http.MethodPost, "/token", map[string]string{"username": "ada", "password": "wrong password"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	assert.Equal(t, "unauthorized", errorKind(t, rec).Error)
}

func TestMe(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t, "ada")

	rec := api.do(t, http.MethodGet, "/users/me", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var user map[string]any
	decode(t, rec, &user)
	assert.Equal(t, "ada", user["username"])

	rec = api.do(t, http.MethodGet, "/users/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodGet, "/users/me", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "could not validate credentials", errorKind(t, rec).Message)
}

func TestGitHubLogin_Redirects(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/auth/github/login", nil, "")
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, stateCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "github.com", loc.Host)
	assert.Equal(t, cookies[0].Value, loc.Query().Get("state"))
}

func TestGitHubCallback_Rejects(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name     string
		query    string
		cookie   string
		wantCode int
	}{
		{"no cookie", "?state=abc&code=x", "", http.StatusBadRequest},
		{"state mismatch", "?state=abc&code=x", "xyz", http.StatusBadRequest},
		{"denied", "?state=abc&error=access_denied", "abc", http.StatusUnauthorized},
		{"missing code", "?state=abc", "abc", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/github/callback"+tt.query, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: stateCookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			api.router.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

package handler

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type submissionBody struct {
	ID        string         `json:"id"`
	BriefID   string         `json:"brief_id"`
	SessionID string         `json:"session_id"`
	Answers   map[string]any `json:"answers"`
	Brief     *briefBody     `json:"brief"`
}

func (a *testAPI) submit(t *testing.T, briefID, answers string) submissionBody {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/briefs/submissions",
		fmt.Sprintf(`{"brief_id": %q, "answers": %s}`, briefID, answers), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var s submissionBody
	decode(t, rec, &s)
	return s
}

func TestSubmissionCreateAndGet(t *testing.T) {
	api := newTestAPI(t)
	brief := api.createBrief(t, api.login(t, "ada"))
	q := brief.Steps[0].Questions

	answers := fmt.Sprintf(`{%q: "Atlas", %q: "high", "unknown": 3}`, q[0].ID, q[1].ID)
	sub := api.submit(t, brief.ID, answers)
	assert.NotEmpty(t, sub.SessionID)
	assert.Equal(t, brief.ID, sub.BriefID)

	rec := api.do(t, http.MethodGet, "/briefs/submission/"+sub.SessionID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	// Key order is preserved on the wire.
	body := rec.Body.String()
	first := bytes.Index([]byte(body), []byte(q[0].ID))
	last := bytes.Index([]byte(body), []byte(`"unknown"`))
	assert.True(t, first >= 0 && first < last, body)

	var got submissionBody
	decode(t, rec, &got)
	assert.Equal(t, "Atlas", got.Answers[q[0].ID])
	require.NotNil(t, got.Brief)
	assert.Equal(t, brief.ID, got.Brief.ID)
}

func TestSubmissionCreate_Errors(t *testing.T) {
	api := newTestAPI(t)
	brief := api.createBrief(t, api.login(t, "ada"))

	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantField string
	}{
		{"unknown brief", `{"brief_id": "missing", "answers": {}}`, http.StatusNotFound, ""},
		{"answers array", fmt.Sprintf(`{"brief_id": %q, "answers": [1, 2]}`, brief.ID), http.StatusBadRequest, "answers"},
		{"answers string", fmt.Sprintf(`{"brief_id": %q, "answers": "x"}`, brief.ID), http.StatusBadRequest, "answers"},
		{"no brief id", `{"answers": {}}`, http.StatusBadRequest, "brief_id"},
		{"bad json", `{"brief_id":`, http.StatusBadRequest, "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/briefs/submissions", tt.body, "")
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, errorKind(t, rec).Field)
			}
		})
	}
}

func TestSubmissionList(t *testing.T) {
	api := newTestAPI(t)
	ada := api.login(t, "ada")
	bob := api.login(t, "bob")
	brief := api.createBrief(t, ada)

	api.submit(t, brief.ID, `{"a": 1}`)
	latest := api.submit(t, brief.ID, `{"a": 2}`)

	rec := api.do(t, http.MethodGet, "/briefs/"+brief.ID+"/submissions", nil, bob)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodGet, "/briefs/"+brief.ID+"/submissions", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodGet, "/briefs/"+brief.ID+"/submissions", nil, ada)
	require.Equal(t, http.StatusOK, rec.Code)
	var subs []submissionBody
	decode(t, rec, &subs)
	require.Len(t, subs, 2)
	assert.Equal(t, latest.SessionID, subs[0].SessionID)
}

func TestSubmissionReport(t *testing.T) {
	api := newTestAPI(t)
	brief := api.createBrief(t, api.login(t, "ada"))
	sub := api.submit(t, brief.ID, fmt.Sprintf(`{%q: "Atlas"}`, brief.Steps[0].Questions[0].ID))

	rec := api.do(t, http.MethodGet, "/briefs/submissions/"+sub.SessionID+"/pdf", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t,
		fmt.Sprintf(`attachment; filename="brief_report_%s.pdf"`, sub.SessionID),
		rec.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	rec = api.do(t, http.MethodGet, "/briefs/submissions/missing/pdf", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func multipartUpload(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/briefs/uploadfile", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUpload(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, multipartUpload(t, "file", "brief.pdf", []byte("%PDF-1.7\nbody")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out map[string]string
	decode(t, rec, &out)
	assert.Regexp(t, `^/uploads/[0-9a-f-]{36}\.pdf$`, out["url"])
	assert.Len(t, api.files.saved, 1)
}

func TestUpload_Rejects(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name  string
		field string
		data  []byte
	}{
		{"wrong field", "attachment", []byte("%PDF-1.7\n")},
		{"disallowed type", "file", []byte("#!/bin/sh\necho hi\n")},
		{"empty", "file", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			api.router.ServeHTTP(rec, multipartUpload(t, tt.field, "x.bin", tt.data))
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, "file", errorKind(t, rec).Field)
		})
	}
	assert.Empty(t, api.files.saved)
}

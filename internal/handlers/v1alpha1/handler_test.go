package v1alpha1_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	api "github.com/perfectpitch/pitch-coach/api/v1alpha1"
	"github.com/perfectpitch/pitch-coach/internal/artifacts"
	"github.com/perfectpitch/pitch-coach/internal/config"
	handlers "github.com/perfectpitch/pitch-coach/internal/handlers/v1alpha1"
	"github.com/perfectpitch/pitch-coach/internal/service"
	"github.com/perfectpitch/pitch-coach/internal/store"
)

type noopEnqueuer struct{}

func (noopEnqueuer) Enqueue(string, string) error { return nil }

func newTestRouter(t *testing.T) (*chi.Mux, *artifacts.Store) {
	t.Helper()
	root := t.TempDir()
	files := artifacts.NewStore(filepath.Join(root, "uploads"), filepath.Join(root, "artifacts"))
	svc := service.NewCoachService(store.NewMemoryStore(), files, noopEnqueuer{}, config.NewDefault())

	router := chi.NewRouter()
	handlers.NewCoachHandler(svc).Routes(router)
	return router, files
}

func doJSON(t *testing.T, router http.Handler, method, path string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

func createSession(t *testing.T, router http.Handler) string {
	t.Helper()
	var created api.SessionCreated
	rec := doJSON(t, router, http.MethodPost, "/api/v1/sessions", &created)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, created.SessionID, 32)
	return created.SessionID
}

func TestSessionLifecycle(t *testing.T) {
	router, _ := newTestRouter(t)

	sessionID := createSession(t, router)

	rec := doJSON(t, router, http.MethodDelete, "/api/v1/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// A second delete finds nothing.
	rec = doJSON(t, router, http.MethodDelete, "/api/v1/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionIDValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodDelete, "/api/v1/sessions/not-hex", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/status/zzz", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadAndProcess(t *testing.T) {
	router, _ := newTestRouter(t)
	sessionID := createSession(t, router)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("presentation", "pptx.pptx")
	require.NoError(t, err)
	_, err = part.Write([]byte("deck bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/files", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var results []api.UploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.True(t, results[0].OK)
	assert.Equal(t, "pptx.pptx", results[0].SavedAs)

	var started api.ProcessStarted
	rec2 := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+sessionID+"/process", &started)
	require.Equal(t, http.StatusAccepted, rec2.Code)
	require.Len(t, started.TaskID, 32)

	var status api.TaskStatus
	rec3 := doJSON(t, router, http.MethodGet, "/api/v1/status/"+started.TaskID, &status)
	require.Equal(t, http.StatusOK, rec3.Code)
	assert.Equal(t, api.TaskStatePending, status.State)
}

func TestUploadRejectsUnknownName(t *testing.T) {
	router, _ := newTestRouter(t)
	sessionID := createSession(t, router)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "evil.sh")
	require.NoError(t, err)
	_, err = part.Write([]byte("#!/bin/sh"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/files", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDuplicateProcessConflicts(t *testing.T) {
	router, _ := newTestRouter(t)
	sessionID := createSession(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+sessionID+"/process", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+sessionID+"/process", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestReportNotReady(t *testing.T) {
	router, _ := newTestRouter(t)
	sessionID := createSession(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/sessions/"+sessionID+"/report", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportServedRaw(t *testing.T) {
	router, files := newTestRouter(t)
	sessionID := createSession(t, router)

	require.NoError(t, files.EnsureArtifactDir(sessionID))
	require.NoError(t, files.WriteJSON(sessionID, artifacts.ReportFile, map[string]any{"overall_score": 71.5}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+sessionID+"/report", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(rec.Body.String(), "71.5"))
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)

	var health api.Health
	rec := doJSON(t, router, http.MethodGet, "/health", &health)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, health.OK)
	assert.Contains(t, health.Deps, "ffmpeg")
	assert.Contains(t, health.Deps, "openai_api_key")
}

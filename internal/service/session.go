package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	api "github.com/perfectpitch/pitch-coach/api/v1alpha1"
)

// allowedUploads maps accepted upload names to nothing; the set is
// closed so a client cannot seed arbitrary files into a session.
var allowedUploads = map[string]struct{}{
	"pptx.pptm": {}, "pptx.pptx": {}, "presentation.pptx": {},
	"audio.webm": {}, "video.mp4": {}, "audio.wav": {}, "audio.m4a": {}, "audio.mp3": {},
	"word.docx": {}, "word.docm": {}, "script.docx": {}, "script.docm": {}, "word.doc": {},
	"meta.json": {}, "data.json": {},
}

// CreateSession opens a new session and returns the upload slots the
// client can fill.
func (s *CoachService) CreateSession(ctx context.Context) (*api.SessionCreated, error) {
	sessionID := strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := s.files.CreateSession(sessionID); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	base := strings.TrimRight(s.cfg.Service.BaseUrl, "/")
	uploads := map[string]string{
		"presentation": fmt.Sprintf("%s/api/v1/sessions/%s/files", base, sessionID),
		"recording":    fmt.Sprintf("%s/api/v1/sessions/%s/files", base, sessionID),
		"script":       fmt.Sprintf("%s/api/v1/sessions/%s/files", base, sessionID),
		"data":         fmt.Sprintf("%s/api/v1/sessions/%s/files", base, sessionID),
	}

	s.log.Infow("session created", "session_id", sessionID)
	return &api.SessionCreated{SessionID: sessionID, UploadURLs: uploads}, nil
}

// DeleteSession removes the session's uploads and artifacts.
func (s *CoachService) DeleteSession(ctx context.Context, sessionID string) error {
	if !s.files.SessionExists(sessionID) {
		return NewErrSessionNotFound(sessionID)
	}
	if err := s.files.RemoveSession(sessionID); err != nil {
		return fmt.Errorf("removing session: %w", err)
	}
	s.log.Infow("session deleted", "session_id", sessionID)
	return nil
}

// SaveUpload stores one uploaded file in the session. Only the known
// upload names are accepted.
func (s *CoachService) SaveUpload(ctx context.Context, sessionID, name string, r io.Reader) (*api.UploadResult, error) {
	if !s.files.SessionExists(sessionID) {
		return nil, NewErrSessionNotFound(sessionID)
	}
	name = filepath.Base(name)
	if _, ok := allowedUploads[strings.ToLower(name)]; !ok {
		return nil, NewErrInvalidUpload(fmt.Sprintf("unsupported upload name %q", name))
	}
	path, err := s.files.SaveUpload(sessionID, strings.ToLower(name), r)
	if err != nil {
		return nil, fmt.Errorf("saving upload: %w", err)
	}
	s.log.Infow("upload stored", "session_id", sessionID, "name", filepath.Base(path))
	return &api.UploadResult{OK: true, SavedAs: filepath.Base(path)}, nil
}

package service

import (
	"context"
	"errors"
	"os"

	"github.com/perfectpitch/pitch-coach/internal/artifacts"
)

// Report returns the raw report.json for a session, once the pipeline
// has produced one.
func (s *CoachService) Report(ctx context.Context, sessionID string) ([]byte, error) {
	if !s.files.SessionExists(sessionID) {
		return nil, NewErrSessionNotFound(sessionID)
	}
	raw, err := s.files.ReadRaw(sessionID, artifacts.ReportFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, NewErrReportNotReady(sessionID)
		}
		return nil, err
	}
	return raw, nil
}

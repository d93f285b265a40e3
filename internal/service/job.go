package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	api "github.com/perfectpitch/pitch-coach/api/v1alpha1"
	"github.com/perfectpitch/pitch-coach/internal/pipeline"
	"github.com/perfectpitch/pitch-coach/internal/store"
	"github.com/perfectpitch/pitch-coach/internal/store/model"
	"github.com/perfectpitch/pitch-coach/pkg/metrics"
)

// Submit registers a new pipeline job for the session and queues it.
// With dedupe set to "reject" a session with a non-terminal job refuses
// a second submission.
func (s *CoachService) Submit(ctx context.Context, sessionID string) (*api.ProcessStarted, error) {
	if !s.files.SessionExists(sessionID) {
		return nil, NewErrSessionNotFound(sessionID)
	}

	if s.cfg.Service.Dedupe != "allow" {
		active, err := s.store.Job().ActiveForSession(ctx, sessionID)
		if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
			return nil, err
		}
		if active != nil {
			return nil, NewErrSessionBusy(sessionID, active.TaskID)
		}
	}

	if err := s.files.EnsureArtifactDir(sessionID); err != nil {
		return nil, err
	}

	taskID := strings.ReplaceAll(uuid.NewString(), "-", "")
	if _, err := s.store.Job().Create(ctx, taskID, sessionID); err != nil {
		return nil, err
	}

	if err := s.dispatcher.Enqueue(sessionID, taskID); err != nil {
		if errors.Is(err, pipeline.ErrQueueFull) {
			// The job exists in the registry; record why it never ran.
			_, _ = s.store.Job().Update(ctx, taskID, model.NewJobUpdate().
				WithState(model.JobStateFailed).
				WithError(pipeline.ErrorCodeQueueFull, "processing queue is full"))
			return nil, NewErrQueueFull()
		}
		return nil, err
	}

	metrics.IncreaseJobsSubmittedMetric()
	s.log.Infow("job submitted", "session_id", sessionID, "task_id", taskID)
	return &api.ProcessStarted{TaskID: taskID}, nil
}

// Status returns the polling view of a job.
func (s *CoachService) Status(ctx context.Context, taskID string) (*api.TaskStatus, error) {
	job, err := s.store.Job().Get(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrTaskNotFound(taskID)
		}
		return nil, err
	}
	return &api.TaskStatus{
		State:        api.TaskState(job.State),
		Stage:        job.Stage,
		ProgressPct:  job.ProgressPct,
		ErrorCode:    job.ErrorCode,
		ErrorMessage: job.ErrorMessage,
	}, nil
}

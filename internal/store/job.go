package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/perfectpitch/pitch-coach/internal/store/model"
)

// JobStore is the gorm-backed registry. Field merges run inside a
// transaction so concurrent readers see either the old or the new job,
// never a mix.
type JobStore struct {
	db *gorm.DB
}

var _ Job = (*JobStore)(nil)

func NewJobStore(db *gorm.DB) *JobStore {
	return &JobStore{db: db}
}

func (s *JobStore) Create(ctx context.Context, taskID string, sessionID string) (*model.Job, error) {
	job := model.Job{
		TaskID:    taskID,
		SessionID: sessionID,
		State:     model.JobStatePending,
	}

	result := s.db.WithContext(ctx).FirstOrCreate(&job, model.Job{TaskID: taskID})
	if result.Error != nil {
		return nil, fmt.Errorf("creating job: %w", result.Error)
	}

	return &job, nil
}

func (s *JobStore) Update(ctx context.Context, taskID string, update model.JobUpdate) (*model.Job, error) {
	var job model.Job

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.First(&job, "task_id = ?", taskID)
		if result.Error != nil {
			if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("querying job: %w", result.Error)
			}
			// Update on an unknown task creates it.
			job = model.Job{TaskID: taskID, State: model.JobStatePending}
		}

		update.Apply(&job)

		if result := tx.Save(&job); result.Error != nil {
			return fmt.Errorf("updating job: %w", result.Error)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &job, nil
}

func (s *JobStore) Get(ctx context.Context, taskID string) (*model.Job, error) {
	var job model.Job
	result := s.db.WithContext(ctx).First(&job, "task_id = ?", taskID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying job: %w", result.Error)
	}

	return &job, nil
}

func (s *JobStore) ActiveForSession(ctx context.Context, sessionID string) (*model.Job, error) {
	var job model.Job
	result := s.db.WithContext(ctx).
		Where("session_id = ? AND state IN ?", sessionID, []model.JobState{model.JobStatePending, model.JobStateRunning}).
		First(&job)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying active job: %w", result.Error)
	}

	return &job, nil
}

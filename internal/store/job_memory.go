package store

import (
	"context"
	"sync"
	"time"

	"github.com/perfectpitch/pitch-coach/internal/store/model"
)

// MemoryJobStore guards the whole map with a single mutex. Operations are
// O(1) and rare relative to request volume, so coarse locking is enough.
type MemoryJobStore struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
}

var _ Job = (*MemoryJobStore)(nil)

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]*model.Job)}
}

func (s *MemoryJobStore) Create(ctx context.Context, taskID string, sessionID string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[taskID]; ok {
		return snapshot(existing), nil
	}

	now := time.Now()
	job := &model.Job{
		TaskID:    taskID,
		SessionID: sessionID,
		State:     model.JobStatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[taskID] = job

	return snapshot(job), nil
}

func (s *MemoryJobStore) Update(ctx context.Context, taskID string, update model.JobUpdate) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[taskID]
	if !ok {
		job = &model.Job{
			TaskID:    taskID,
			State:     model.JobStatePending,
			CreatedAt: time.Now(),
		}
		s.jobs[taskID] = job
	}

	update.Apply(job)
	job.UpdatedAt = time.Now()

	return snapshot(job), nil
}

func (s *MemoryJobStore) Get(ctx context.Context, taskID string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[taskID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return snapshot(job), nil
}

func (s *MemoryJobStore) ActiveForSession(ctx context.Context, sessionID string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.jobs {
		if job.SessionID == sessionID && !job.State.Terminal() {
			return snapshot(job), nil
		}
	}
	return nil, ErrRecordNotFound
}

// snapshot copies the job so readers never share memory with writers.
func snapshot(job *model.Job) *model.Job {
	cp := *job
	return &cp
}

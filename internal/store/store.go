package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/perfectpitch/pitch-coach/internal/store/model"
)

// Job is the registry of pipeline jobs. Update merges the given fields
// atomically: a concurrent Get never observes a partially-merged job.
// Update on an unknown task id creates a job with defaults first.
type Job interface {
	Create(ctx context.Context, taskID string, sessionID string) (*model.Job, error)
	Update(ctx context.Context, taskID string, update model.JobUpdate) (*model.Job, error)
	Get(ctx context.Context, taskID string) (*model.Job, error)
	// ActiveForSession returns a non-terminal job operating on the given
	// session, or ErrRecordNotFound.
	ActiveForSession(ctx context.Context, sessionID string) (*model.Job, error)
}

type Store interface {
	Job() Job
	InitialMigration() error
	Close() error
}

// DataStore is the gorm-backed Store used when job state must survive a
// process restart.
type DataStore struct {
	job Job
	db  *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		job: NewJobStore(db),
		db:  db,
	}
}

func (s *DataStore) Job() Job {
	return s.job
}

func (s *DataStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.Job{})
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// MemoryStore keeps job state in process memory. This is the default
// registry; state is lost on restart.
type MemoryStore struct {
	job Job
}

func NewMemoryStore() Store {
	return &MemoryStore{job: NewMemoryJobStore()}
}

func (s *MemoryStore) Job() Job {
	return s.job
}

func (s *MemoryStore) InitialMigration() error {
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

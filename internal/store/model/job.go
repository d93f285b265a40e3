package model

import "time"

// JobState is the lifecycle state of a pipeline job. Transitions are
// monotonic: PENDING -> RUNNING -> {FAILED|DONE}, no resurrection.
type JobState string

const (
	JobStatePending JobState = "PENDING"
	JobStateRunning JobState = "RUNNING"
	JobStateFailed  JobState = "FAILED"
	JobStateDone    JobState = "DONE"
)

// Terminal reports whether the state ends a run.
func (s JobState) Terminal() bool {
	return s == JobStateFailed || s == JobStateDone
}

// Job is one in-flight or completed pipeline run. TaskID and SessionID
// never change after creation.
type Job struct {
	TaskID       string   `gorm:"column:task_id;primaryKey"`
	SessionID    string   `gorm:"column:session_id"`
	State        JobState `gorm:"column:state"`
	Stage        string   `gorm:"column:stage"`
	ProgressPct  int      `gorm:"column:progress_pct"`
	ErrorCode    string   `gorm:"column:error_code"`
	ErrorMessage string   `gorm:"column:error_message"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Job) TableName() string {
	return "jobs"
}

// JobUpdate carries the fields merged into a job by Registry.Update.
// Nil fields are left untouched.
type JobUpdate struct {
	State        *JobState
	Stage        *string
	ProgressPct  *int
	ErrorCode    *string
	ErrorMessage *string
}

// Apply merges the update into the job in place.
func (u JobUpdate) Apply(job *Job) {
	if u.State != nil {
		job.State = *u.State
	}
	if u.Stage != nil {
		job.Stage = *u.Stage
	}
	if u.ProgressPct != nil {
		job.ProgressPct = *u.ProgressPct
	}
	if u.ErrorCode != nil {
		job.ErrorCode = *u.ErrorCode
	}
	if u.ErrorMessage != nil {
		job.ErrorMessage = *u.ErrorMessage
	}
}

// NewJobUpdate returns an empty update for chaining.
func NewJobUpdate() JobUpdate {
	return JobUpdate{}
}

func (u JobUpdate) WithState(s JobState) JobUpdate {
	u.State = &s
	return u
}

func (u JobUpdate) WithStage(stage string) JobUpdate {
	u.Stage = &stage
	return u
}

func (u JobUpdate) WithProgress(pct int) JobUpdate {
	u.ProgressPct = &pct
	return u
}

func (u JobUpdate) WithError(code, message string) JobUpdate {
	u.ErrorCode = &code
	u.ErrorMessage = &message
	return u
}

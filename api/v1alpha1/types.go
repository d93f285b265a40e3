// Package v1alpha1 contains the wire types served by the coach API.
package v1alpha1

// TaskState is the lifecycle state of a background processing job.
type TaskState string

const (
	TaskStatePending TaskState = "PENDING"
	TaskStateRunning TaskState = "RUNNING"
	TaskStateFailed  TaskState = "FAILED"
	TaskStateDone    TaskState = "DONE"
)

// SessionCreated is returned when a new coaching session is opened.
type SessionCreated struct {
	SessionID  string            `json:"session_id"`
	UploadURLs map[string]string `json:"upload_urls"`
}

// UploadResult acknowledges a stored upload.
type UploadResult struct {
	OK      bool   `json:"ok"`
	SavedAs string `json:"saved_as"`
}

// ProcessStarted acknowledges an accepted pipeline submission.
type ProcessStarted struct {
	TaskID string `json:"task_id"`
}

// TaskStatus is the polling view of a background job.
type TaskStatus struct {
	State        TaskState `json:"state"`
	Stage        string    `json:"stage,omitempty"`
	ProgressPct  int       `json:"progress_pct"`
	ErrorCode    string    `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Health reports service liveness and the availability of the external
// collaborators the pipeline shells out to.
type Health struct {
	OK   bool            `json:"ok"`
	Deps map[string]bool `json:"deps"`
}

// Error is the generic error payload.
type Error struct {
	Message string `json:"message"`
}

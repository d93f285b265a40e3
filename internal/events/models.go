package events

// ReportEvent is emitted when a coaching run completes successfully.
type ReportEvent struct {
	SessionID    string  `json:"session_id"`
	TaskID       string  `json:"task_id"`
	OverallScore float64 `json:"overall_score"`
}

// JobFailedEvent is emitted when a coaching run ends in failure.
type JobFailedEvent struct {
	SessionID    string `json:"session_id"`
	TaskID       string `json:"task_id"`
	Stage        string `json:"stage"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

package service

import (
	"fmt"
)

type ErrSessionNotFound struct {
	error
}

func NewErrSessionNotFound(sessionID string) *ErrSessionNotFound {
	return &ErrSessionNotFound{fmt.Errorf("session %s not found", sessionID)}
}

type ErrTaskNotFound struct {
	error
}

func NewErrTaskNotFound(taskID string) *ErrTaskNotFound {
	return &ErrTaskNotFound{fmt.Errorf("task %s not found", taskID)}
}

type ErrReportNotReady struct {
	error
}

func NewErrReportNotReady(sessionID string) *ErrReportNotReady {
	return &ErrReportNotReady{fmt.Errorf("no report available for session %s", sessionID)}
}

// ErrSessionBusy marks a processing request for a session that already
// has a non-terminal run.
type ErrSessionBusy struct {
	error
	TaskID string
}

func NewErrSessionBusy(sessionID, taskID string) *ErrSessionBusy {
	return &ErrSessionBusy{
		error:  fmt.Errorf("session %s is already being processed by task %s", sessionID, taskID),
		TaskID: taskID,
	}
}

// ErrQueueFull marks a processing request rejected by backpressure.
type ErrQueueFull struct {
	error
}

func NewErrQueueFull() *ErrQueueFull {
	return &ErrQueueFull{fmt.Errorf("processing queue is full, retry later")}
}

type ErrInvalidUpload struct {
	error
}

func NewErrInvalidUpload(message string) *ErrInvalidUpload {
	return &ErrInvalidUpload{fmt.Errorf("bad request: %s", message)}
}

package dto

import (
	"time"

	"flowLedger/client/models"
)

// TaskHandle is returned by every create-task endpoint once the upload is accepted.
type TaskHandle struct {
	TaskID string `json:"task_id"`
}

// TaskStatus is a snapshot of a backend task. Result is set only when the
// task succeeded and Error only when it failed; the client trusts the
// backend on that and never checks it.
type TaskStatus[T any] struct {
	TaskID    string            `json:"task_id"`
	Status    models.TaskStatus `json:"status"`
	Progress  float64           `json:"progress"`
	Result    *T                `json:"result,omitempty"`
	Error     *string           `json:"error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`

	Stage    string `json:"stage,omitempty"`
	Filename string `json:"filename,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// ErrorMessage returns the backend error text, or "" when none was sent.
func (s *TaskStatus[T]) ErrorMessage() string {
	if s == nil || s.Error == nil {
		return ""
	}
	return *s.Error
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

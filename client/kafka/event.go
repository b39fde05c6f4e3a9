package kafka

import (
	"time"

	"flowLedger/client/models"
)

const DefaultTopic = "flowledger.task-events"

// TaskEvent is one observed task snapshot, published as JSON keyed by task id.
type TaskEvent struct {
	TaskID   string            `json:"task_id"`
	TraceID  string            `json:"trace_id,omitempty"`
	Kind     models.ImportKind `json:"kind"`
	Filename string            `json:"filename,omitempty"`
	Status   models.TaskStatus `json:"status"`
	Progress float64           `json:"progress"`
	Error    string            `json:"error,omitempty"`
	At       time.Time         `json:"at"`
}

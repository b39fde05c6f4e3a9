package poller

import (
	"errors"
	"fmt"
	"time"

	"flowLedger/client/dto"
)

// FallbackFailureMessage is used when a failed task carries no error text.
const FallbackFailureMessage = "task failed"

var (
	ErrTaskFailed  = errors.New("task failed")
	ErrTaskTimeout = errors.New("task polling timed out")
	ErrNoStatus    = errors.New("status fetch returned no record")
)

// FailedError is returned when the backend reports the task as failed.
type FailedError[T any] struct {
	Record *dto.TaskStatus[T]
}

// Message is the backend error text or FallbackFailureMessage.
func (e *FailedError[T]) Message() string {
	if msg := e.Record.ErrorMessage(); msg != "" {
		return msg
	}
	return FallbackFailureMessage
}

func (e *FailedError[T]) Error() string {
	return e.Message()
}

func (e *FailedError[T]) Is(target error) bool {
	return target == ErrTaskFailed
}

// TimeoutError is returned when the budget runs out before a terminal status.
// Record is the last snapshot seen and is nil if no fetch ever completed.
type TimeoutError[T any] struct {
	TaskID  string
	Record  *dto.TaskStatus[T]
	Elapsed time.Duration
	Timeout time.Duration
}

func (e *TimeoutError[T]) Error() string {
	if e.Record != nil {
		return fmt.Sprintf("task %s still %s after %s", e.TaskID, e.Record.Status, e.Timeout)
	}
	return fmt.Sprintf("task %s did not report a status within %s", e.TaskID, e.Timeout)
}

func (e *TimeoutError[T]) Is(target error) bool {
	return target == ErrTaskTimeout
}

package service

import (
	"errors"

	"flowLedger/client/dto"
	"flowLedger/client/models"
	"flowLedger/client/poller"
)

// Result is an import outcome with the payload left untyped.
type Result struct {
	Kind     models.ImportKind `json:"kind"`
	Filename string            `json:"filename"`
	TaskID   string            `json:"task_id,omitempty"`
	Status   models.TaskStatus `json:"status,omitempty"`
	Progress float64           `json:"progress"`
	Value    any               `json:"result,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// newResult flattens rec, or the record carried by a failed or timed out
// wait, into a Result.
func newResult[T any](kind models.ImportKind, filename string, rec *dto.TaskStatus[T], err error) *Result {
	res := &Result{Kind: kind, Filename: filename}

	if rec == nil && err != nil {
		var failed *poller.FailedError[T]
		var timeout *poller.TimeoutError[T]
		switch {
		case errors.As(err, &failed):
			rec = failed.Record
		case errors.As(err, &timeout):
			rec = timeout.Record
			res.TaskID = timeout.TaskID
		}
	}
	if err != nil {
		res.Error = err.Error()
	}
	if rec == nil {
		return res
	}

	res.TaskID = rec.TaskID
	res.Status = rec.Status
	res.Progress = rec.Progress
	if rec.Result != nil {
		res.Value = rec.Result
	}
	return res
}

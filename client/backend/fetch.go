package backend

import (
	"context"

	"flowLedger/client/dto"
	"flowLedger/client/poller"
)

// StatusReader decodes one task status snapshot into out.
type StatusReader interface {
	GetTaskStatus(ctx context.Context, taskID string, out any) error
}

// StatusFetcher adapts a StatusReader to the poller for result type T.
func StatusFetcher[T any](r StatusReader) poller.FetchFunc[T] {
	return func(ctx context.Context, taskID string) (*dto.TaskStatus[T], error) {
		var rec dto.TaskStatus[T]
		if err := r.GetTaskStatus(ctx, taskID, &rec); err != nil {
			return nil, err
		}
		return &rec, nil
	}
}

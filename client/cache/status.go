package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"flowLedger/client/dto"
)

const (
	statusKeyPrefix = "task:status:"
	statusTTL       = 10 * time.Minute
)

// Store is the subset of database.Cache the caches need.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// StatusCache keeps the last task snapshot a poll observed, so `status
// --cached` can answer without calling the backend. The poller never reads it.
type StatusCache struct {
	store Store
	ttl   time.Duration
}

func NewStatusCache(store Store) *StatusCache {
	return &StatusCache{store: store, ttl: statusTTL}
}

func (sc *StatusCache) Get(ctx context.Context, taskID string) (*dto.TaskStatus[json.RawMessage], error) {
	data, err := sc.store.Get(ctx, statusKey(taskID))
	if err != nil {
		return nil, err
	}

	var status dto.TaskStatus[json.RawMessage]
	if err := json.Unmarshal([]byte(data), &status); err != nil {
		return nil, fmt.Errorf("decode cached status %s: %w", taskID, err)
	}

	return &status, nil
}

// Set stores snapshot, which must marshal as a task status record.
func (sc *StatusCache) Set(ctx context.Context, taskID string, snapshot any) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	return sc.store.Set(ctx, statusKey(taskID), data, sc.ttl)
}

func (sc *StatusCache) Delete(ctx context.Context, taskID string) error {
	return sc.store.Del(ctx, statusKey(taskID))
}

func statusKey(taskID string) string {
	return fmt.Sprintf("%s%s", statusKeyPrefix, taskID)
}

package cache

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowLedger/client/database"
	"flowLedger/client/dto"
	"flowLedger/client/models"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", database.ErrCacheMiss
	}
	return v, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		m.data[key] = string(b)
	}
	m.ttls[key] = expiration
	return nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func TestStatusCache_SetGet(t *testing.T) {
	store := newMemoryStore()
	sc := NewStatusCache(store)
	ctx := context.Background()

	msg := "bad row 3"
	snapshot := &dto.TaskStatus[dto.DepositImportResult]{
		TaskID:   "t-7",
		Status:   models.StatusFailed,
		Progress: 80,
		Error:    &msg,
	}

	require.NoError(t, sc.Set(ctx, "t-7", snapshot))
	assert.Equal(t, statusTTL, store.ttls["task:status:t-7"])

	got, err := sc.Get(ctx, "t-7")
	require.NoError(t, err)
	assert.Equal(t, "t-7", got.TaskID)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, 80.0, got.Progress)
	assert.Equal(t, "bad row 3", got.ErrorMessage())

	require.NoError(t, sc.Delete(ctx, "t-7"))
	_, err = sc.Get(ctx, "t-7")
	assert.ErrorIs(t, err, database.ErrCacheMiss)
}

func TestStatusCache_GetCorrupt(t *testing.T) {
	store := newMemoryStore()
	store.data["task:status:t-1"] = "processing"

	_, err := NewStatusCache(store).Get(context.Background(), "t-1")
	assert.Error(t, err)
}

func TestTokenStore(t *testing.T) {
	store := newMemoryStore()
	ts := NewTokenStore(store)
	ctx := context.Background()

	token, err := ts.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, ts.Save(ctx, "abc", time.Hour))
	assert.Equal(t, time.Hour, store.ttls[tokenKey])

	token, err = ts.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	require.NoError(t, ts.Clear(ctx))
	token, err = ts.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

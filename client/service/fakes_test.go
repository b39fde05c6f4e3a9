package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"flowLedger/client/database"
	"flowLedger/client/kafka"
	"flowLedger/client/models"
	"flowLedger/client/repository"
)

type memoryRepo struct {
	mu   sync.Mutex
	next int
	runs map[string]*models.ImportRun
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{runs: make(map[string]*models.ImportRun)}
}

func (r *memoryRepo) CreateRun(_ context.Context, run *models.ImportRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	run.ID = fmt.Sprintf("run-%d", r.next)
	run.CreatedAt = time.Now()
	run.UpdatedAt = run.CreatedAt
	stored := *run
	r.runs[run.ID] = &stored
	return nil
}

func (r *memoryRepo) GetRun(_ context.Context, id string) (*models.ImportRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, repository.ErrRunNotFound
	}
	cp := *run
	return &cp, nil
}

func (r *memoryRepo) GetRunByTaskID(_ context.Context, taskID string) (*models.ImportRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, run := range r.runs {
		if run.TaskID == taskID {
			cp := *run
			return &cp, nil
		}
	}
	return nil, repository.ErrRunNotFound
}

func (r *memoryRepo) SetTaskID(_ context.Context, id, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return repository.ErrRunNotFound
	}
	run.TaskID = taskID
	return nil
}

func (r *memoryRepo) UpdateRunStatus(_ context.Context, id string, status models.TaskStatus, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return repository.ErrRunNotFound
	}
	run.Status = status
	run.ErrorMessage = errorMessage
	if status.Terminal() {
		now := time.Now()
		run.CompletedAt = &now
	}
	return nil
}

func (r *memoryRepo) ListRuns(_ context.Context, limit int) ([]*models.ImportRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var runs []*models.ImportRun
	for _, run := range r.runs {
		cp := *run
		runs = append(runs, &cp)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].ID < runs[j].ID })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

type recordingProducer struct {
	mu     sync.Mutex
	events []*kafka.TaskEvent
}

func (p *recordingProducer) PublishTaskEvent(_ context.Context, event *kafka.TaskEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingProducer) Close() error { return nil }

func (p *recordingProducer) Statuses(taskID string) []models.TaskStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.TaskStatus
	for _, ev := range p.events {
		if ev.TaskID == taskID {
			out = append(out, ev.Status)
		}
	}
	return out
}

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]string)}
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

func (m *memoryStore) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	default:
		m.data[key] = fmt.Sprint(v)
	}
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

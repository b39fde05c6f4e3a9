package repository

import (
	"context"
	"errors"

	"flowLedger/client/models"
)

var (
	ErrRunNotFound = errors.New("import run not found")
)

type Repository interface {
	CreateRun(ctx context.Context, run *models.ImportRun) error
	GetRun(ctx context.Context, id string) (*models.ImportRun, error)
	GetRunByTaskID(ctx context.Context, taskID string) (*models.ImportRun, error)
	SetTaskID(ctx context.Context, id, taskID string) error
	UpdateRunStatus(ctx context.Context, id string, status models.TaskStatus, errorMessage string) error
	ListRuns(ctx context.Context, limit int) ([]*models.ImportRun, error)
}

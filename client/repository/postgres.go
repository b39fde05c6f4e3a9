package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"flowLedger/client/database"
	"flowLedger/client/models"
)

const runColumns = `id, trace_id, task_id, kind, filename, size, status, error_message, created_at, updated_at, completed_at`

type PostgresRepo struct {
	db *database.DB
}

func NewPostgresRepo(db *database.DB) Repository {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) CreateRun(ctx context.Context, run *models.ImportRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	query := `
		INSERT INTO import_runs (id, trace_id, task_id, kind, filename, size, status, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	return r.db.Pool.QueryRow(ctx, query,
		run.ID,
		run.TraceID,
		run.TaskID,
		run.Kind,
		run.Filename,
		run.Size,
		run.Status,
		run.ErrorMessage,
	).Scan(&run.CreatedAt, &run.UpdatedAt)
}

func (r *PostgresRepo) GetRun(ctx context.Context, id string) (*models.ImportRun, error) {
	query := `SELECT ` + runColumns + ` FROM import_runs WHERE id = $1`
	return scanRun(r.db.Pool.QueryRow(ctx, query, id))
}

// GetRunByTaskID returns the most recent run that was handed taskID.
func (r *PostgresRepo) GetRunByTaskID(ctx context.Context, taskID string) (*models.ImportRun, error) {
	query := `SELECT ` + runColumns + ` FROM import_runs WHERE task_id = $1 ORDER BY created_at DESC LIMIT 1`
	return scanRun(r.db.Pool.QueryRow(ctx, query, taskID))
}

func (r *PostgresRepo) SetTaskID(ctx context.Context, id, taskID string) error {
	query := `UPDATE import_runs SET task_id = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.db.Pool.Exec(ctx, query, taskID, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrRunNotFound
	}

	return nil
}

func (r *PostgresRepo) UpdateRunStatus(ctx context.Context, id string, status models.TaskStatus, errorMessage string) error {
	query := `
		UPDATE import_runs
		SET status = $1, error_message = $2, updated_at = NOW()
	`

	if status.Terminal() {
		query += `, completed_at = NOW()`
	}

	query += ` WHERE id = $3`

	result, err := r.db.Pool.Exec(ctx, query, status, errorMessage, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrRunNotFound
	}

	return nil
}

func (r *PostgresRepo) ListRuns(ctx context.Context, limit int) ([]*models.ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + runColumns + ` FROM import_runs ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.ImportRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func scanRun(row pgx.Row) (*models.ImportRun, error) {
	var run models.ImportRun
	err := row.Scan(
		&run.ID,
		&run.TraceID,
		&run.TaskID,
		&run.Kind,
		&run.Filename,
		&run.Size,
		&run.Status,
		&run.ErrorMessage,
		&run.CreatedAt,
		&run.UpdatedAt,
		&run.CompletedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	return &run, nil
}

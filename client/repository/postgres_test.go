package repository

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowLedger/client/database"
	"flowLedger/client/models"
)

// Runs only against a real database: FLOWLEDGER_TEST_DATABASE_URL.
func newTestRepo(t *testing.T) Repository {
	t.Helper()

	url := os.Getenv("FLOWLEDGER_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("FLOWLEDGER_TEST_DATABASE_URL not set")
	}

	db, err := database.ConnectDB(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return NewPostgresRepo(db)
}

func TestPostgresRepo_RunLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	run := &models.ImportRun{
		TraceID:  "trace-1",
		Kind:     models.ImportDeposit,
		Filename: "deposits.xlsx",
		Size:     2048,
		Status:   models.StatusQueued,
	}
	require.NoError(t, repo.CreateRun(ctx, run))
	require.NotEmpty(t, run.ID)
	assert.False(t, run.CreatedAt.IsZero())

	require.NoError(t, repo.SetTaskID(ctx, run.ID, "t-"+run.ID))

	got, err := repo.GetRunByTaskID(ctx, "t-"+run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Nil(t, got.CompletedAt)

	require.NoError(t, repo.UpdateRunStatus(ctx, run.ID, models.StatusFailed, "bad header row"))

	got, err = repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, "bad header row", got.ErrorMessage)
	assert.NotNil(t, got.CompletedAt)

	runs, err := repo.ListRuns(ctx, 5)
	require.NoError(t, err)
	assert.NotEmpty(t, runs)
}

func TestPostgresRepo_NotFound(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetRun(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrRunNotFound)

	err = repo.UpdateRunStatus(ctx, "00000000-0000-0000-0000-000000000000", models.StatusSucceeded, "")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/mxdocs-extractor/constants"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/common"
)

func newTestRepo(t *testing.T) *JobRepository {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, Config{Driver: DriverSQLite, DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.HealthCheck(ctx, time.Second))
	return NewJobRepository(db, nil)
}

func TestJobRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	id, err := repo.Start(ctx, "constancia.pdf", constants.SAT)
	require.NoError(t, err)

	job, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, constants.JobStatusRunning, job.Status)
	assert.Equal(t, constants.SAT, job.DocType)
	assert.Nil(t, job.FinishedAt)

	body := []byte(`{"filename":"constancia.pdf"}`)
	require.NoError(t, repo.FinishSuccess(ctx, id, constants.JobStatusSucceeded, constants.StrategyTextCompletion, 1, body))

	job, err = repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusSucceeded, job.Status)
	assert.Equal(t, constants.StrategyTextCompletion, job.Strategy)
	assert.Equal(t, 1, job.NumPages)
	assert.JSONEq(t, string(body), string(job.ResultJSON))
	require.NotNil(t, job.FinishedAt)
	assert.Empty(t, job.ErrorMessage)
}

func TestJobRepository_FinishFailure(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	id, err := repo.Start(ctx, "acuse.jpg", constants.IMSS)
	require.NoError(t, err)
	require.NoError(t, repo.FinishFailure(ctx, id, constants.JobStatusRejected, "Calidad insuficiente"))

	job, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusRejected, job.Status)
	assert.Equal(t, "Calidad insuficiente", job.ErrorMessage)
	assert.Empty(t, job.Strategy)
	assert.Nil(t, job.ResultJSON)
}

func TestJobRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = repo.FinishFailure(ctx, uuid.New(), constants.JobStatusFailed, "x")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestJobRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	base := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	first, err := repo.Start(ctx, "a.pdf", constants.SAT)
	require.NoError(t, err)
	_, err = repo.Start(ctx, "b.pdf", constants.IMSS)
	require.NoError(t, err)
	third, err := repo.Start(ctx, "c.pdf", constants.SAT)
	require.NoError(t, err)

	all, err := repo.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	sat, err := repo.List(ctx, constants.SAT, 10)
	require.NoError(t, err)
	require.Len(t, sat, 2)
	assert.Equal(t, third, sat[0].ID)
	assert.Equal(t, first, sat[1].ID)

	one, err := repo.List(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, third, one[0].ID)
}

func TestRebind(t *testing.T) {
	pg := &DB{Driver: DriverPostgres}
	assert.Equal(t, "SELECT 1 WHERE a = $1 AND b = $2", pg.rebind("SELECT 1 WHERE a = ? AND b = ?"))
	lite := &DB{Driver: DriverSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql"}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

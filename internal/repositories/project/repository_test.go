package project

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/laurel/internal/database"
	"github.com/Ramsey-B/laurel/pkg/models"
)

func newTestRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	db := database.NewDatabaseInstance(sqlx.NewDb(mockDB, "sqlmock"), logger)
	return NewRepository(db, logger), mock
}

func TestRepository_Create(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectExec(`INSERT INTO projects`).WillReturnResult(sqlmock.NewResult(0, 1))

	proj, err := repo.Create(context.Background(), models.CreateProjectRequest{
		DatasetID: "d1",
		Name:      "authors batch 1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, proj.ID)
	assert.Equal(t, models.ProjectStatusDraft, proj.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Get(t *testing.T) {
	t.Run("missing project maps to 404", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		mock.ExpectQuery(`SELECT .* FROM projects`).WillReturnError(sql.ErrNoRows)

		_, err := repo.Get(context.Background(), "p1")
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})

	t.Run("found", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		rows := sqlmock.NewRows([]string{"id", "dataset_id", "name", "status", "task_count"}).
			AddRow("p1", "d1", "authors batch 1", "review_ready", 12)
		mock.ExpectQuery(`SELECT .* FROM projects`).WillReturnRows(rows)

		proj, err := repo.Get(context.Background(), "p1")
		require.NoError(t, err)
		assert.Equal(t, models.ProjectStatusReviewReady, proj.Status)
		assert.Equal(t, 12, proj.TaskCount)
	})
}

func TestRepository_UpdateStatus(t *testing.T) {
	t.Run("missing project maps to 404", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		mock.ExpectExec(`UPDATE projects`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateStatus(context.Background(), "p1", models.ProjectStatusCompleted)
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})

	t.Run("stamps started_at when leaving draft", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		mock.ExpectExec(`UPDATE projects\s+SET status = \$1, started_at = COALESCE`).
			WithArgs(models.ProjectStatusPendingSearch, sqlmock.AnyArg(), "p1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateStatus(context.Background(), "p1", models.ProjectStatusPendingSearch)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_RefreshCounters(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectExec(`UPDATE projects p`).
		WithArgs(sqlmock.AnyArg(), "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.RefreshCounters(context.Background(), "p1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_SoftDelete(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectExec(`UPDATE projects`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SoftDelete(context.Background(), "p1")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}

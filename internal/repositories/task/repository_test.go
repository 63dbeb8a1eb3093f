package task

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

func TestRepository_CreateBulk(t *testing.T) {
	t.Run("returns rows actually inserted, not rows requested", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		// One of the three entries already has a task; ON CONFLICT DO
		// NOTHING swallows it
		mock.ExpectExec(`INSERT INTO tasks`).WillReturnResult(sqlmock.NewResult(0, 2))

		created, err := repo.CreateBulk(context.Background(), "p1", []string{"e1", "e2", "e3"})
		require.NoError(t, err)
		assert.Equal(t, 2, created)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no entries is a no-op", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		created, err := repo.CreateBulk(context.Background(), "p1", nil)
		require.NoError(t, err)
		assert.Equal(t, 0, created)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_Get(t *testing.T) {
	t.Run("missing task maps to 404", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		mock.ExpectQuery(`SELECT .* FROM tasks`).WillReturnError(sql.ErrNoRows)

		_, err := repo.Get(context.Background(), "t1")
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})

	t.Run("found", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		rows := sqlmock.NewRows([]string{"id", "project_id", "dataset_entry_id", "status", "candidate_count"}).
			AddRow("t1", "p1", "e1", "awaiting_review", 3)
		mock.ExpectQuery(`SELECT .* FROM tasks`).WillReturnRows(rows)

		task, err := repo.Get(context.Background(), "t1")
		require.NoError(t, err)
		assert.Equal(t, models.TaskStatusAwaitingReview, task.Status)
		assert.Equal(t, 3, task.CandidateCount)
	})
}

func TestRepository_SetAccepted(t *testing.T) {
	t.Run("zero rows affected maps to 404", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		mock.ExpectExec(`UPDATE tasks`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SetAccepted(context.Background(), "t1", "c1", "Q42", models.TaskStatusReviewed)
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})

	t.Run("updates the accepted columns", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		mock.ExpectExec(`UPDATE tasks`).
			WithArgs(models.TaskStatusReviewed, "c1", "Q42", sqlmock.AnyArg(), "t1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SetAccepted(context.Background(), "t1", "c1", "Q42", models.TaskStatusReviewed)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_ResetByCriteria(t *testing.T) {
	t.Run("unknown criteria is a 400 without touching the database", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		_, err := repo.ResetByCriteria(context.Background(), "p1", models.RerunCriteria("everything"))
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed criteria resets and reports count", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		mock.ExpectExec(`UPDATE tasks`).WillReturnResult(sqlmock.NewResult(0, 4))

		count, err := repo.ResetByCriteria(context.Background(), "p1", models.RerunCriteriaFailed)
		require.NoError(t, err)
		assert.Equal(t, 4, count)
	})
}

func TestRepository_ResetByIDs(t *testing.T) {
	t.Run("empty id list is a no-op", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		count, err := repo.ResetByIDs(context.Background(), "p1", nil)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_StatsByProject(t *testing.T) {
	repo, mock := newTestRepo(t)

	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow("reviewed", 5).
		AddRow("awaiting_review", 2)
	mock.ExpectQuery(`SELECT status, COUNT`).WithArgs("p1").WillReturnRows(rows)

	stats, err := repo.StatsByProject(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "reviewed", stats[0].Status)
	assert.Equal(t, 5, stats[0].Count)
}

package workflow

import (
	"context"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/laurel/internal/database"
	"github.com/Ramsey-B/laurel/internal/repositories/dataset"
	"github.com/Ramsey-B/laurel/internal/repositories/datasetentry"
	"github.com/Ramsey-B/laurel/internal/repositories/matchcandidate"
	"github.com/Ramsey-B/laurel/internal/repositories/project"
	"github.com/Ramsey-B/laurel/internal/repositories/task"
	"github.com/Ramsey-B/laurel/pkg/models"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	db := database.NewDatabaseInstance(sqlx.NewDb(mockDB, "sqlmock"), logger)

	svc := NewService(
		db,
		logger,
		project.NewRepository(db, logger),
		dataset.NewRepository(db, logger),
		datasetentry.NewRepository(db, logger),
		task.NewRepository(db, logger),
		matchcandidate.NewRepository(db, logger),
		nil,
	)
	return svc, mock
}

func TestService_StartProject_Validation(t *testing.T) {
	t.Run("both selectors is a 400", func(t *testing.T) {
		svc, mock := newTestService(t)

		_, err := svc.StartProject(context.Background(), "p1", models.StartProjectRequest{
			AllEntries: true,
			EntryIDs:   []string{"e1"},
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("neither selector is a 400", func(t *testing.T) {
		svc, mock := newTestService(t)

		_, err := svc.StartProject(context.Background(), "p1", models.StartProjectRequest{})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty dataset with all_entries is a 400", func(t *testing.T) {
		svc, mock := newTestService(t)

		projRows := sqlmock.NewRows([]string{"id", "dataset_id", "status"}).
			AddRow("p1", "d1", "draft")
		mock.ExpectQuery(`SELECT .* FROM projects`).WillReturnRows(projRows)
		mock.ExpectQuery(`SELECT id FROM dataset_entries`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery(`SELECT COUNT`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		_, err := svc.StartProject(context.Background(), "p1", models.StartProjectRequest{AllEntries: true})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestService_RerunTasks(t *testing.T) {
	t.Run("both selectors is a 400", func(t *testing.T) {
		svc, mock := newTestService(t)

		_, err := svc.RerunTasks(context.Background(), "p1", models.RerunTasksRequest{
			Criteria: "failed",
			TaskIDs:  []string{"t1"},
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("resets by criteria and refreshes counters", func(t *testing.T) {
		svc, mock := newTestService(t)

		projRows := sqlmock.NewRows([]string{"id", "dataset_id", "status"}).
			AddRow("p1", "d1", "review_ready")
		mock.ExpectQuery(`SELECT .* FROM projects`).WillReturnRows(projRows)
		mock.ExpectExec(`UPDATE tasks`).WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectExec(`UPDATE projects p`).WillReturnResult(sqlmock.NewResult(0, 1))

		resp, err := svc.RerunTasks(context.Background(), "p1", models.RerunTasksRequest{Criteria: "failed"})
		require.NoError(t, err)
		assert.Equal(t, 3, resp.TasksReset)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestService_AcceptCandidate_WrongTask(t *testing.T) {
	svc, mock := newTestService(t)

	rows := sqlmock.NewRows([]string{"id", "task_id", "wikidata_id", "score", "status", "source"}).
		AddRow("c1", "other-task", "Q42", 91, "suggested", "automated_search")
	mock.ExpectQuery(`SELECT .* FROM match_candidates`).WillReturnRows(rows)

	_, err := svc.AcceptCandidate(context.Background(), "t1", "c1")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_BulkUpdateCandidates(t *testing.T) {
	t.Run("empty patch is a 400", func(t *testing.T) {
		svc, mock := newTestService(t)

		err := svc.BulkUpdateCandidates(context.Background(), models.BulkUpdateCandidatesRequest{
			CandidateIDs: []string{"c1"},
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown status is a 400", func(t *testing.T) {
		svc, mock := newTestService(t)

		bogus := models.CandidateStatus("approved")
		err := svc.BulkUpdateCandidates(context.Background(), models.BulkUpdateCandidatesRequest{
			CandidateIDs: []string{"c1"},
			Patch:        models.CandidatePatch{Status: &bogus},
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("one missing candidate fails the whole batch", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectBegin()
		countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
		mock.ExpectQuery(`SELECT COUNT`).WillReturnRows(countRows)
		mock.ExpectRollback()

		rejected := models.CandidateStatusRejected
		err := svc.BulkUpdateCandidates(context.Background(), models.BulkUpdateCandidatesRequest{
			CandidateIDs: []string{"c1", "c2"},
			Patch:        models.CandidatePatch{Status: &rejected},
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestService_GetStats(t *testing.T) {
	t.Run("rounds progress and average to one decimal", func(t *testing.T) {
		svc, mock := newTestService(t)

		projRows := sqlmock.NewRows([]string{"id", "dataset_id", "status"}).
			AddRow("p1", "d1", "review_ready")
		mock.ExpectQuery(`SELECT .* FROM projects`).WillReturnRows(projRows)

		taskRows := sqlmock.NewRows([]string{"status", "count"}).
			AddRow("reviewed", 1).
			AddRow("awaiting_review", 2)
		mock.ExpectQuery(`SELECT status, COUNT`).WillReturnRows(taskRows)

		candidateRows := sqlmock.NewRows([]string{"total", "accepted", "rejected", "avg_accepted_score"}).
			AddRow(6, 1, 2, 87.46)
		mock.ExpectQuery(`FROM match_candidates`).WillReturnRows(candidateRows)

		stats, err := svc.GetStats(context.Background(), "p1")
		require.NoError(t, err)
		assert.Equal(t, 3, stats.TotalTasks)
		assert.Equal(t, map[string]int{"reviewed": 1, "awaiting_review": 2}, stats.ByStatus)
		assert.Equal(t, 6, stats.Candidates.Total)
		require.NotNil(t, stats.AvgScore)
		assert.InDelta(t, 87.5, *stats.AvgScore, 0.001)
		assert.InDelta(t, 33.3, stats.ProgressPercent, 0.001)
	})

	t.Run("empty project reports zero progress", func(t *testing.T) {
		svc, mock := newTestService(t)

		projRows := sqlmock.NewRows([]string{"id", "dataset_id", "status"}).
			AddRow("p1", "d1", "draft")
		mock.ExpectQuery(`SELECT .* FROM projects`).WillReturnRows(projRows)
		mock.ExpectQuery(`SELECT status, COUNT`).
			WillReturnRows(sqlmock.NewRows([]string{"status", "count"}))
		mock.ExpectQuery(`FROM match_candidates`).
			WillReturnRows(sqlmock.NewRows([]string{"total", "accepted", "rejected", "avg_accepted_score"}).
				AddRow(0, 0, 0, nil))

		stats, err := svc.GetStats(context.Background(), "p1")
		require.NoError(t, err)
		assert.Equal(t, 0, stats.TotalTasks)
		assert.Empty(t, stats.ByStatus)
		assert.Nil(t, stats.AvgScore)
		assert.Equal(t, 0.0, stats.ProgressPercent)
	})
}

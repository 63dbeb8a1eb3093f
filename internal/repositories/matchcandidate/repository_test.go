package matchcandidate

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

func TestRepository_UpdateStatus(t *testing.T) {
	t.Run("already decided candidate is a validation error", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		// WHERE status = 'suggested' matches nothing once the candidate
		// has been decided
		mock.ExpectQuery(`UPDATE match_candidates`).WillReturnError(sql.ErrNoRows)

		_, err := repo.UpdateStatus(context.Background(), "c1", models.CandidateStatusSuggested, models.CandidateStatusAccepted)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("returns the updated candidate", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		rows := sqlmock.NewRows([]string{"id", "task_id", "wikidata_id", "score", "status", "source"}).
			AddRow("c1", "t1", "Q42", 91, "accepted", "automated_search")
		mock.ExpectQuery(`UPDATE match_candidates`).
			WithArgs(models.CandidateStatusAccepted, sqlmock.AnyArg(), "c1", models.CandidateStatusSuggested).
			WillReturnRows(rows)

		candidate, err := repo.UpdateStatus(context.Background(), "c1", models.CandidateStatusSuggested, models.CandidateStatusAccepted)
		require.NoError(t, err)
		assert.Equal(t, models.CandidateStatusAccepted, candidate.Status)
		assert.Equal(t, "Q42", candidate.WikidataID)
	})
}

func TestRepository_ApplyPatch(t *testing.T) {
	t.Run("missing candidate maps to 404", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		mock.ExpectExec(`UPDATE match_candidates`).WillReturnResult(sqlmock.NewResult(0, 0))

		notes := "checked against source"
		err := repo.ApplyPatch(context.Background(), "c1", models.CandidatePatch{Notes: &notes})
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})
}

func TestRepository_CountLiveByIDs(t *testing.T) {
	t.Run("empty input short-circuits", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		count, err := repo.CountLiveByIDs(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("counts live rows", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		rows := sqlmock.NewRows([]string{"count"}).AddRow(2)
		mock.ExpectQuery(`SELECT COUNT`).WillReturnRows(rows)

		count, err := repo.CountLiveByIDs(context.Background(), []string{"c1", "c2", "c3"})
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})
}

func TestRepository_TaskStats(t *testing.T) {
	t.Run("no candidates yields nil highest score", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		rows := sqlmock.NewRows([]string{"candidate_count", "highest_score"}).AddRow(0, nil)
		mock.ExpectQuery(`SELECT COUNT`).WithArgs("t1").WillReturnRows(rows)

		count, highest, err := repo.TaskStats(context.Background(), "t1")
		require.NoError(t, err)
		assert.Equal(t, 0, count)
		assert.Nil(t, highest)
	})
}

func TestRepository_ProjectStats(t *testing.T) {
	repo, mock := newTestRepo(t)

	rows := sqlmock.NewRows([]string{"total", "accepted", "rejected", "avg_accepted_score"}).
		AddRow(10, 4, 3, 87.5)
	mock.ExpectQuery(`SELECT`).WithArgs("p1").WillReturnRows(rows)

	stats, avg, err := repo.ProjectStats(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 4, stats.Accepted)
	assert.Equal(t, 3, stats.Rejected)
	require.NotNil(t, avg)
	assert.InDelta(t, 87.5, *avg, 0.001)
}

package datasetentry

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/laurel/internal/database"
)

func newTestRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	db := database.NewDatabaseInstance(sqlx.NewDb(mockDB, "sqlmock"), logger)
	return NewRepository(db, logger), mock
}

func TestRepository_CountByDataset(t *testing.T) {
	t.Run("counts live entries in one query", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		rows := sqlmock.NewRows([]string{"count"}).AddRow(42)
		mock.ExpectQuery(`SELECT COUNT`).WithArgs("d1").WillReturnRows(rows)

		count, err := repo.CountByDataset(context.Background(), "d1")
		require.NoError(t, err)
		assert.Equal(t, 42, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty dataset counts zero", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		rows := sqlmock.NewRows([]string{"count"}).AddRow(0)
		mock.ExpectQuery(`SELECT COUNT`).WithArgs("d1").WillReturnRows(rows)

		count, err := repo.CountByDataset(context.Background(), "d1")
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestRepository_FilterIDsByDataset(t *testing.T) {
	t.Run("empty input short-circuits", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		found, err := repo.FilterIDsByDataset(context.Background(), "d1", nil)
		require.NoError(t, err)
		assert.Empty(t, found)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns only ids that belong to the dataset", func(t *testing.T) {
		repo, mock := newTestRepo(t)

		rows := sqlmock.NewRows([]string{"id"}).AddRow("e1").AddRow("e3")
		mock.ExpectQuery(`SELECT id FROM dataset_entries`).WillReturnRows(rows)

		found, err := repo.FilterIDsByDataset(context.Background(), "d1", []string{"e1", "e2", "e3"})
		require.NoError(t, err)
		assert.Equal(t, []string{"e1", "e3"}, found)
	})
}

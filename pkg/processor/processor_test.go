package processor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/laurel/internal/database"
	"github.com/Ramsey-B/laurel/internal/repositories/datasetentry"
	"github.com/Ramsey-B/laurel/internal/repositories/matchcandidate"
	"github.com/Ramsey-B/laurel/internal/repositories/project"
	"github.com/Ramsey-B/laurel/internal/repositories/task"
	"github.com/Ramsey-B/laurel/pkg/matching"
	"github.com/Ramsey-B/laurel/pkg/models"
)

func newTestProcessor(t *testing.T) *Processor {
	mockDB, _, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	db := database.NewDatabaseInstance(sqlx.NewDb(mockDB, "sqlmock"), logger)

	return NewProcessor(
		logger,
		db,
		matching.DefaultSettings(),
		project.NewRepository(db, logger),
		datasetentry.NewRepository(db, logger),
		task.NewRepository(db, logger),
		matchcandidate.NewRepository(db, logger),
		nil,
	)
}

func TestProcessor_ScoreEntities(t *testing.T) {
	proc := newTestProcessor(t)
	entry := models.EntryData{Name: "Douglas Adams"}

	t.Run("orders best first and drops zero scores", func(t *testing.T) {
		entities := []models.WikidataEntity{
			{ID: "Q2", Label: "Duglas Adams"},
			{ID: "Q1", Label: "Douglas Adams"},
			{ID: "Q3"}, // no label, nothing to score
		}

		candidates := proc.scoreEntities(context.Background(), "t1", entry, entities, matching.DefaultSettings(), 2)
		require.Len(t, candidates, 2)
		assert.Equal(t, "Q1", candidates[0].WikidataID)
		assert.Equal(t, 100, candidates[0].Score)
		assert.Equal(t, "Q2", candidates[1].WikidataID)
		assert.Greater(t, candidates[0].Score, candidates[1].Score)

		for _, c := range candidates {
			assert.Equal(t, "t1", c.TaskID)
			assert.Equal(t, models.CandidateStatusSuggested, c.Status)
			assert.Equal(t, models.CandidateSourceAutomatedSearch, c.Source)
			assert.NotEmpty(t, c.ScoreBreakdown)
		}
	})

	t.Run("empty batch", func(t *testing.T) {
		candidates := proc.scoreEntities(context.Background(), "t1", entry, nil, matching.DefaultSettings(), 4)
		assert.Empty(t, candidates)
	})

	t.Run("parallelism below one still scores", func(t *testing.T) {
		entities := []models.WikidataEntity{{ID: "Q1", Label: "Douglas Adams"}}
		candidates := proc.scoreEntities(context.Background(), "t1", entry, entities, matching.DefaultSettings(), 0)
		require.Len(t, candidates, 1)
	})
}

func TestProcessor_ProjectSettings(t *testing.T) {
	proc := newTestProcessor(t)

	t.Run("defaults without config", func(t *testing.T) {
		settings, maxCandidates, parallelism := proc.projectSettings(context.Background(), &models.Project{})
		assert.Equal(t, matching.DefaultSettings().AutoAcceptThreshold, settings.AutoAcceptThreshold)
		assert.Equal(t, defaultMaxCandidates, maxCandidates)
		assert.Equal(t, defaultParallelism, parallelism)
	})

	t.Run("config overrides defaults", func(t *testing.T) {
		threshold := 90
		nameWeight := 0.8
		cfg, err := json.Marshal(models.ProjectConfig{
			MaxCandidates: 5,
			Parallelism:   2,
			AutoAccept:    &threshold,
			NameWeight:    &nameWeight,
		})
		require.NoError(t, err)

		settings, maxCandidates, parallelism := proc.projectSettings(context.Background(), &models.Project{Config: cfg})
		assert.Equal(t, 90, settings.AutoAcceptThreshold)
		assert.Equal(t, 0.8, settings.NameWeight)
		assert.Equal(t, 5, maxCandidates)
		assert.Equal(t, 2, parallelism)
	})

	t.Run("invalid config falls back to defaults", func(t *testing.T) {
		settings, maxCandidates, _ := proc.projectSettings(context.Background(), &models.Project{Config: json.RawMessage(`{broken`)})
		assert.Equal(t, matching.DefaultSettings().AutoAcceptThreshold, settings.AutoAcceptThreshold)
		assert.Equal(t, defaultMaxCandidates, maxCandidates)
	})
}

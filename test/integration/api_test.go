package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/laurel/pkg/models"
)

// bindJSON runs a payload through echo's request binding the way the route
// handlers receive it.
func bindJSON(t *testing.T, payload any, dest any) error {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBuffer(data))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec).Bind(dest)
}

func TestProjectAPI_Validation(t *testing.T) {
	t.Run("CreateProject_ValidRequest", func(t *testing.T) {
		payload := map[string]any{
			"dataset_id": "3f0c8a1e-5b2d-4c6f-9e7a-1d2b3c4d5e6f",
			"name":       "authors batch 1",
			"config": map[string]any{
				"target_entity_types":   []string{"Q5"},
				"max_candidates":        10,
				"auto_accept_threshold": 97,
			},
		}

		var req models.CreateProjectRequest
		require.NoError(t, bindJSON(t, payload, &req))
		assert.Equal(t, "authors batch 1", req.Name)

		var cfg models.ProjectConfig
		require.NoError(t, json.Unmarshal(req.Config, &cfg))
		assert.Equal(t, []string{"Q5"}, cfg.TargetEntityTypes)
		require.NotNil(t, cfg.AutoAccept)
		assert.Equal(t, 97, *cfg.AutoAccept)
	})

	t.Run("StartProject_SelectorShapes", func(t *testing.T) {
		var all models.StartProjectRequest
		require.NoError(t, bindJSON(t, map[string]any{"all_entries": true}, &all))
		assert.True(t, all.AllEntries)
		assert.Empty(t, all.EntryIDs)

		var byID models.StartProjectRequest
		require.NoError(t, bindJSON(t, map[string]any{"entry_ids": []string{"e1", "e2"}}, &byID))
		assert.False(t, byID.AllEntries)
		assert.Len(t, byID.EntryIDs, 2)
	})

	t.Run("RerunTasks_SelectorShapes", func(t *testing.T) {
		var byCriteria models.RerunTasksRequest
		require.NoError(t, bindJSON(t, map[string]any{"criteria": "no_candidates"}, &byCriteria))
		assert.Equal(t, string(models.RerunCriteriaNoCandidates), byCriteria.Criteria)
		assert.Empty(t, byCriteria.TaskIDs)

		var byID models.RerunTasksRequest
		require.NoError(t, bindJSON(t, map[string]any{"task_ids": []string{"t1"}}, &byID))
		assert.Empty(t, byID.Criteria)
		assert.Len(t, byID.TaskIDs, 1)
	})
}

func TestCandidateAPI_Validation(t *testing.T) {
	t.Run("BulkUpdate_PatchShape", func(t *testing.T) {
		payload := map[string]any{
			"candidate_ids": []string{"c1", "c2"},
			"patch": map[string]any{
				"status": "rejected",
				"tags":   []string{"batch-review"},
			},
		}

		var req models.BulkUpdateCandidatesRequest
		require.NoError(t, bindJSON(t, payload, &req))
		assert.Len(t, req.CandidateIDs, 2)
		require.NotNil(t, req.Patch.Status)
		assert.Equal(t, models.CandidateStatusRejected, *req.Patch.Status)
		assert.False(t, req.Patch.IsEmpty())
	})

	t.Run("BulkUpdate_EmptyPatch", func(t *testing.T) {
		var req models.BulkUpdateCandidatesRequest
		require.NoError(t, bindJSON(t, map[string]any{"candidate_ids": []string{"c1"}}, &req))
		assert.True(t, req.Patch.IsEmpty())
	})

	t.Run("CandidateStatus_Values", func(t *testing.T) {
		assert.True(t, models.CandidateStatusSuggested.IsValid())
		assert.True(t, models.CandidateStatusAccepted.IsValid())
		assert.True(t, models.CandidateStatusRejected.IsValid())
		assert.False(t, models.CandidateStatus("approved").IsValid())
	})

	t.Run("CandidateSource_Values", func(t *testing.T) {
		assert.True(t, models.CandidateSourceManual.IsValid())
		assert.True(t, models.CandidateSourceAutomatedSearch.IsValid())
		assert.False(t, models.CandidateSource("import").IsValid())
	})

	t.Run("CreateCandidate_Request", func(t *testing.T) {
		payload := map[string]any{
			"task_id":     "7a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d",
			"wikidata_id": "Q42",
			"score":       88,
			"source":      "manual",
			"tags":        []string{"hand-checked"},
		}

		var req models.CreateCandidateRequest
		require.NoError(t, bindJSON(t, payload, &req))
		assert.Equal(t, "Q42", req.WikidataID)
		assert.Equal(t, models.CandidateSourceManual, req.Source)
		assert.Equal(t, 88, req.Score)
	})
}

func TestTaskAPI_Responses(t *testing.T) {
	t.Run("Task_SerializesAcceptedFields", func(t *testing.T) {
		acceptedID := "c1"
		wikidataID := "Q42"
		task := models.Task{
			ID:                  "t1",
			ProjectID:           "p1",
			DatasetEntryID:      "e1",
			Status:              models.TaskStatusReviewed,
			AcceptedCandidateID: &acceptedID,
			AcceptedWikidataID:  &wikidataID,
			CandidateCount:      3,
		}

		data, err := json.Marshal(task)
		require.NoError(t, err)

		var parsed map[string]any
		require.NoError(t, json.Unmarshal(data, &parsed))
		assert.Equal(t, "reviewed", parsed["status"])
		assert.Equal(t, "Q42", parsed["accepted_wikidata_id"])
	})

	t.Run("ProjectStats_NullAvgScore", func(t *testing.T) {
		stats := models.ProjectStats{
			TotalTasks: 3,
			ByStatus:   map[string]int{"new": 3},
			Candidates: models.CandidateStats{},
		}

		data, err := json.Marshal(stats)
		require.NoError(t, err)

		var parsed map[string]any
		require.NoError(t, json.Unmarshal(data, &parsed))
		assert.Nil(t, parsed["avg_score"])
		assert.Equal(t, 0.0, parsed["progress_percent"])
	})
}

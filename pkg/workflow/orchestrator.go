package workflow

import (
	"context"
	"encoding/json"
	"math"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/tracing"
)

// startChunkSize bounds how many entry IDs are buffered in memory while
// streaming a dataset into tasks.
const startChunkSize = 1000

// CreateProject creates a draft project against an existing dataset
func (s *Service) CreateProject(ctx context.Context, req models.CreateProjectRequest) (*models.Project, error) {
	ctx, span := tracing.StartSpan(ctx, "workflow.Service.CreateProject")
	defer span.End()

	if _, err := s.datasets.Get(ctx, req.DatasetID); err != nil {
		return nil, err
	}

	if len(req.Config) > 0 {
		var cfg models.ProjectConfig
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid project config: %v", err)
		}
	}

	return s.projects.Create(ctx, req)
}

// StartProject generates tasks for the selected dataset entries and moves
// the project to pending_search. Exactly one of EntryIDs or AllEntries must
// be set. Entry IDs stream through in chunks so dataset size never bounds
// memory, and the unique (project_id, dataset_entry_id) constraint makes
// restarts idempotent.
func (s *Service) StartProject(ctx context.Context, projectID string, req models.StartProjectRequest) (*models.StartProjectResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "workflow.Service.StartProject")
	defer span.End()

	if req.AllEntries == (len(req.EntryIDs) > 0) {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "exactly one of entry_ids or all_entries must be provided")
	}

	proj, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	created := 0
	if req.AllEntries {
		chunk := make([]string, 0, startChunkSize)
		flush := func() error {
			if len(chunk) == 0 {
				return nil
			}
			n, err := s.tasks.CreateBulk(ctx, projectID, chunk)
			created += n
			chunk = chunk[:0]
			return err
		}

		err := s.entries.IterateIDs(ctx, proj.DatasetID, func(id string) error {
			chunk = append(chunk, id)
			if len(chunk) >= startChunkSize {
				return flush()
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		if err := flush(); err != nil {
			return nil, err
		}

		// Zero inserts either means an empty dataset or a restart where
		// every task already exists; one count query tells them apart
		if created == 0 {
			count, err := s.entries.CountByDataset(ctx, proj.DatasetID)
			if err != nil {
				return nil, err
			}
			if count == 0 {
				return nil, httperror.NewHTTPError(http.StatusBadRequest, "dataset has no entries")
			}
		}
	} else {
		found, err := s.entries.FilterIDsByDataset(ctx, proj.DatasetID, req.EntryIDs)
		if err != nil {
			return nil, err
		}
		if len(found) != len(req.EntryIDs) {
			return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "%d of %d entry ids do not belong to dataset %s", len(req.EntryIDs)-len(found), len(req.EntryIDs), proj.DatasetID)
		}
		created, err = s.tasks.CreateBulk(ctx, projectID, found)
		if err != nil {
			return nil, err
		}
	}

	if err := s.projects.UpdateStatus(ctx, projectID, models.ProjectStatusPendingSearch); err != nil {
		return nil, err
	}
	if err := s.projects.RefreshCounters(ctx, projectID); err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{"project_id": projectID, "tasks_created": created}).Info("Started project")
	return &models.StartProjectResponse{
		TasksCreated: created,
		Status:       models.ProjectStatusPendingSearch,
	}, nil
}

// RerunTasks resets a selection of tasks back to new so the scoring
// pipeline picks them up again. Exactly one of Criteria or TaskIDs must be
// set.
func (s *Service) RerunTasks(ctx context.Context, projectID string, req models.RerunTasksRequest) (*models.RerunTasksResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "workflow.Service.RerunTasks")
	defer span.End()

	if (req.Criteria == "") == (len(req.TaskIDs) == 0) {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "exactly one of criteria or task_ids must be provided")
	}

	if _, err := s.projects.Get(ctx, projectID); err != nil {
		return nil, err
	}

	var reset int
	var err error
	if req.Criteria != "" {
		reset, err = s.tasks.ResetByCriteria(ctx, projectID, models.RerunCriteria(req.Criteria))
	} else {
		reset, err = s.tasks.ResetByIDs(ctx, projectID, req.TaskIDs)
	}
	if err != nil {
		return nil, err
	}

	if err := s.projects.RefreshCounters(ctx, projectID); err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{"project_id": projectID, "tasks_reset": reset}).Info("Reset tasks for rerun")
	return &models.RerunTasksResponse{TasksReset: reset}, nil
}

// GetStats assembles project statistics on the fly from the task and
// candidate aggregates. Only statuses with at least one task appear in
// by_status; avg_score covers accepted candidates only and is null when
// none are accepted.
func (s *Service) GetStats(ctx context.Context, projectID string) (*models.ProjectStats, error) {
	ctx, span := tracing.StartSpan(ctx, "workflow.Service.GetStats")
	defer span.End()

	if _, err := s.projects.Get(ctx, projectID); err != nil {
		return nil, err
	}

	rows, err := s.tasks.StatsByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	total := 0
	byStatus := make(map[string]int, len(rows))
	for _, row := range rows {
		total += row.Count
		byStatus[row.Status] = row.Count
	}

	candidateStats, avg, err := s.candidates.ProjectStats(ctx, projectID)
	if err != nil {
		return nil, err
	}

	stats := &models.ProjectStats{
		TotalTasks: total,
		ByStatus:   byStatus,
		Candidates: candidateStats,
	}
	if avg != nil {
		rounded := math.Round(*avg*10) / 10
		stats.AvgScore = &rounded
	}

	if total > 0 {
		done := byStatus[string(models.TaskStatusReviewed)] + byStatus[string(models.TaskStatusSkipped)]
		stats.ProgressPercent = math.Round(float64(done)/float64(total)*1000) / 10
	}

	return stats, nil
}

// ApprovedMatches exports the accepted matches of a project
func (s *Service) ApprovedMatches(ctx context.Context, projectID string) ([]models.ApprovedMatch, error) {
	ctx, span := tracing.StartSpan(ctx, "workflow.Service.ApprovedMatches")
	defer span.End()

	if _, err := s.projects.Get(ctx, projectID); err != nil {
		return nil, err
	}

	return s.tasks.ApprovedMatches(ctx, projectID)
}

// DeleteProject soft deletes a project and cascades to its tasks and their
// candidates in one transaction.
func (s *Service) DeleteProject(ctx context.Context, projectID string) error {
	ctx, span := tracing.StartSpan(ctx, "workflow.Service.DeleteProject")
	defer span.End()

	taskIDs, err := s.tasks.ListIDsByProject(ctx, projectID)
	if err != nil {
		return err
	}

	ctxTx, tx, err := s.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctxTx)

	if err := s.candidates.SoftDeleteByTaskIDs(ctxTx, taskIDs); err != nil {
		return err
	}
	if err := s.tasks.SoftDeleteByProject(ctxTx, projectID); err != nil {
		return err
	}
	if err := s.projects.SoftDelete(ctxTx, projectID); err != nil {
		return err
	}

	if err := tx.Commit(ctxTx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{"project_id": projectID, "tasks": len(taskIDs)}).Info("Deleted project")
	return nil
}

// Package task persists reconciliation tasks, one per (project, entry) pair.
package task

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/laurel/internal/database"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/tracing"
)

const columns = "id, project_id, dataset_entry_id, status, accepted_candidate_id, accepted_wikidata_id, candidate_count, highest_score, processing_started_at, processing_completed_at, reviewed_at, notes, error_message, extra_data, created_at, updated_at, deleted_at"

// createBatchSize caps rows per INSERT during bulk task generation
const createBatchSize = 1000

// Repository handles task persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new task repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// CreateBulk inserts one queued task per entry ID, in batches. The unique
// (project_id, dataset_entry_id) constraint plus ON CONFLICT DO NOTHING is
// the duplicate guard, so restarting a project never double-creates tasks
// even under concurrent calls. Returns the number of tasks actually created.
func (r *Repository) CreateBulk(ctx context.Context, projectID string, entryIDs []string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "task.Repository.CreateBulk")
	defer span.End()

	if len(entryIDs) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	created := 0

	for i := 0; i < len(entryIDs); i += createBatchSize {
		end := i + createBatchSize
		if end > len(entryIDs) {
			end = len(entryIDs)
		}

		ib := database.NewInsertBuilder()
		ib.InsertInto("tasks")
		ib.Cols("id", "project_id", "dataset_entry_id", "status", "created_at", "updated_at")
		for _, entryID := range entryIDs[i:end] {
			ib.Values(uuid.New().String(), projectID, entryID, models.TaskStatusNew, now, now)
		}
		ib.OnConflictDoNothing()

		query, args := ib.Build()
		result, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"project_id": projectID}).Error("Failed to bulk create tasks")
			return created, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create tasks")
		}
		rows, _ := result.RowsAffected()
		created += int(rows)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"project_id": projectID, "created": created, "requested": len(entryIDs)}).Info("Bulk created tasks")
	return created, nil
}

// Get retrieves a task by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Task, error) {
	ctx, span := tracing.StartSpan(ctx, "task.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("tasks")
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var task models.Task
	if err := r.db.GetContext(ctx, &task, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("task %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get task")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get task")
	}

	return &task, nil
}

// List retrieves tasks for a project with optional SQL-level filters
func (r *Repository) List(ctx context.Context, projectID string, filter models.TaskFilter, page, pageSize int) ([]models.Task, int, error) {
	ctx, span := tracing.StartSpan(ctx, "task.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	where := func(sb *sqlbuilder.SelectBuilder) []string {
		conds := []string{
			sb.Equal("project_id", projectID),
			sb.IsNull("deleted_at"),
		}
		if filter.Status != nil {
			conds = append(conds, sb.Equal("status", *filter.Status))
		}
		if filter.HasCandidates != nil {
			if *filter.HasCandidates {
				conds = append(conds, sb.GreaterThan("candidate_count", 0))
			} else {
				conds = append(conds, sb.Equal("candidate_count", 0))
			}
		}
		if filter.HasAccepted != nil {
			if *filter.HasAccepted {
				conds = append(conds, sb.IsNotNull("accepted_candidate_id"))
			} else {
				conds = append(conds, sb.IsNull("accepted_candidate_id"))
			}
		}
		if filter.MinScore != nil {
			conds = append(conds, sb.GreaterEqualThan("highest_score", *filter.MinScore))
		}
		return conds
	}

	countSB := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSB.Select("COUNT(*)")
	countSB.From("tasks")
	countSB.Where(where(countSB)...)

	countQuery, countArgs := countSB.Build()
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count tasks")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count tasks")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("tasks")
	sb.Where(where(sb)...)
	sb.OrderBy("created_at ASC", "id ASC")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args := sb.Build()
	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list tasks")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list tasks")
	}

	return tasks, total, nil
}

// MarkProcessing transitions a queued task into processing
func (r *Repository) MarkProcessing(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "task.Repository.MarkProcessing")
	defer span.End()

	now := time.Now().UTC()
	query := `
		UPDATE tasks
		SET status = $1, processing_started_at = $2, error_message = NULL, updated_at = $2
		WHERE id = $3 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, models.TaskStatusProcessing, now, id)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to mark task processing")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update task")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("task %s not found", id))
	}
	return nil
}

// FinishProcessing records the terminal status of a scoring run
func (r *Repository) FinishProcessing(ctx context.Context, id string, status models.TaskStatus, errorMessage *string) error {
	ctx, span := tracing.StartSpan(ctx, "task.Repository.FinishProcessing")
	defer span.End()

	now := time.Now().UTC()
	query := `
		UPDATE tasks
		SET status = $1, processing_completed_at = $2, error_message = $3, updated_at = $2
		WHERE id = $4 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, status, now, errorMessage, id)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"task_id": id, "status": status}).Error("Failed to finish task processing")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update task")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("task %s not found", id))
	}
	return nil
}

// SetAccepted records the accepted candidate on the task and moves it to a
// reviewed state.
func (r *Repository) SetAccepted(ctx context.Context, id string, candidateID, wikidataID string, status models.TaskStatus) error {
	ctx, span := tracing.StartSpan(ctx, "task.Repository.SetAccepted")
	defer span.End()

	now := time.Now().UTC()
	query := `
		UPDATE tasks
		SET status = $1, accepted_candidate_id = $2, accepted_wikidata_id = $3, reviewed_at = $4, updated_at = $4
		WHERE id = $5 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, status, candidateID, wikidataID, now, id)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"task_id": id, "candidate_id": candidateID}).Error("Failed to set accepted candidate on task")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update task")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("task %s not found", id))
	}
	return nil
}

// Skip marks a task as skipped regardless of its current state
func (r *Repository) Skip(ctx context.Context, id string, notes *string) error {
	ctx, span := tracing.StartSpan(ctx, "task.Repository.Skip")
	defer span.End()

	now := time.Now().UTC()
	query := `
		UPDATE tasks
		SET status = $1, reviewed_at = $2, notes = COALESCE($3, notes), updated_at = $2
		WHERE id = $4 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, models.TaskStatusSkipped, now, notes, id)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to skip task")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update task")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("task %s not found", id))
	}
	return nil
}

// UpdateCandidateSummary refreshes the denormalized candidate counters
func (r *Repository) UpdateCandidateSummary(ctx context.Context, id string, candidateCount int, highestScore *int) error {
	ctx, span := tracing.StartSpan(ctx, "task.Repository.UpdateCandidateSummary")
	defer span.End()

	now := time.Now().UTC()
	query := `
		UPDATE tasks
		SET candidate_count = $1, highest_score = $2, updated_at = $3
		WHERE id = $4 AND deleted_at IS NULL
	`

	if _, err := r.db.ExecContext(ctx, query, candidateCount, highestScore, now, id); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"task_id": id}).Error("Failed to update task candidate summary")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update task")
	}
	return nil
}

// ResetByCriteria requeues tasks matching a named selection in one UPDATE.
// Returns how many tasks were reset.
func (r *Repository) ResetByCriteria(ctx context.Context, projectID string, criteria models.RerunCriteria) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "task.Repository.ResetByCriteria")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("tasks")
	now := time.Now().UTC()
	sb.Set(
		sb.Assign("status", models.TaskStatusNew),
		sb.Assign("accepted_candidate_id", nil),
		sb.Assign("accepted_wikidata_id", nil),
		sb.Assign("error_message", nil),
		sb.Assign("updated_at", now),
	)

	where := []string{
		sb.Equal("project_id", projectID),
		sb.IsNull("deleted_at"),
	}
	switch criteria {
	case models.RerunCriteriaFailed:
		where = append(where, sb.Equal("status", models.TaskStatusFailed))
	case models.RerunCriteriaNoCandidates:
		where = append(where, sb.Equal("status", models.TaskStatusNoCandidatesFound))
	case models.RerunCriteriaNoAccepted:
		where = append(where,
			sb.IsNull("accepted_wikidata_id"),
			sb.In("status", models.TaskStatusAwaitingReview, models.TaskStatusReviewed),
		)
	default:
		return 0, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown rerun criteria %q", criteria))
	}
	sb.Where(where...)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"project_id": projectID, "criteria": criteria}).Error("Failed to reset tasks by criteria")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to reset tasks")
	}

	rows, _ := result.RowsAffected()
	return int(rows), nil
}

// ResetByIDs requeues an explicit set of tasks. IDs outside the project are
// ignored rather than rejected.
func (r *Repository) ResetByIDs(ctx context.Context, projectID string, ids []string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "task.Repository.ResetByIDs")
	defer span.End()

	if len(ids) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("tasks")
	sb.Set(
		sb.Assign("status", models.TaskStatusNew),
		sb.Assign("accepted_candidate_id", nil),
		sb.Assign("accepted_wikidata_id", nil),
		sb.Assign("error_message", nil),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.Equal("project_id", projectID),
		sb.In("id", idsToAny(ids)...),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to reset tasks by ids")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to reset tasks")
	}

	rows, _ := result.RowsAffected()
	return int(rows), nil
}

// StatusRow is one line of the per-status task aggregate
type StatusRow struct {
	Status string `db:"status"`
	Count  int    `db:"count"`
}

// StatsByProject aggregates task counts per status in a single query
func (r *Repository) StatsByProject(ctx context.Context, projectID string) ([]StatusRow, error) {
	ctx, span := tracing.StartSpan(ctx, "task.Repository.StatsByProject")
	defer span.End()

	query := `
		SELECT status, COUNT(*) AS count
		FROM tasks
		WHERE project_id = $1 AND deleted_at IS NULL
		GROUP BY status
	`

	var rows []StatusRow
	if err := r.db.SelectContext(ctx, &rows, query, projectID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"project_id": projectID}).Error("Failed to aggregate task stats")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to aggregate task stats")
	}

	return rows, nil
}

// ListIDsByProject returns all live task IDs for a project
func (r *Repository) ListIDsByProject(ctx context.Context, projectID string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "task.Repository.ListIDsByProject")
	defer span.End()

	query := `SELECT id FROM tasks WHERE project_id = $1 AND deleted_at IS NULL`

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, projectID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list task ids")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list tasks")
	}

	return ids, nil
}

// ApprovedMatches returns the accepted-match export rows for a project
func (r *Repository) ApprovedMatches(ctx context.Context, projectID string) ([]models.ApprovedMatch, error) {
	ctx, span := tracing.StartSpan(ctx, "task.Repository.ApprovedMatches")
	defer span.End()

	query := `
		SELECT t.id AS task_id, e.external_id AS entry_external_id, e.display_name AS entry_display_name, mc.wikidata_id, mc.score
		FROM tasks t
		JOIN match_candidates mc ON mc.id = t.accepted_candidate_id
		JOIN dataset_entries e ON e.id = t.dataset_entry_id
		WHERE t.project_id = $1 AND t.accepted_candidate_id IS NOT NULL AND t.deleted_at IS NULL
		ORDER BY e.external_id ASC
	`

	var matches []models.ApprovedMatch
	if err := r.db.SelectContext(ctx, &matches, query, projectID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"project_id": projectID}).Error("Failed to list approved matches")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list approved matches")
	}

	return matches, nil
}

// SoftDeleteByProject soft deletes every task in a project
func (r *Repository) SoftDeleteByProject(ctx context.Context, projectID string) error {
	ctx, span := tracing.StartSpan(ctx, "task.Repository.SoftDeleteByProject")
	defer span.End()

	now := time.Now().UTC()
	query := `
		UPDATE tasks
		SET deleted_at = $1, updated_at = $1
		WHERE project_id = $2 AND deleted_at IS NULL
	`

	if _, err := r.db.ExecContext(ctx, query, now, projectID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to soft delete tasks")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete tasks")
	}

	return nil
}

func idsToAny(ids []string) []any {
	result := make([]any, len(ids))
	for i, id := range ids {
		result[i] = id
	}
	return result
}

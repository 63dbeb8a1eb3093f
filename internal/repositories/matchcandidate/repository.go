package matchcandidate

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/Ramsey-B/laurel/internal/database"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/tracing"
)

const columns = "id, task_id, wikidata_id, score, status, source, score_breakdown, matched_properties, tags, notes, reviewed_at, created_at, updated_at, deleted_at"

// Repository handles match candidate persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new match candidate repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create creates a single match candidate in suggested state
func (r *Repository) Create(ctx context.Context, candidate *models.MatchCandidate) (*models.MatchCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "matchcandidate.Repository.Create")
	defer span.End()

	if candidate.ID == "" {
		candidate.ID = uuid.New().String()
	}
	candidate.CreatedAt = time.Now().UTC()
	candidate.UpdatedAt = candidate.CreatedAt
	if candidate.Status == "" {
		candidate.Status = models.CandidateStatusSuggested
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("match_candidates")
	sb.Cols("id", "task_id", "wikidata_id", "score", "status", "source", "score_breakdown", "matched_properties", "tags", "notes", "created_at", "updated_at")
	sb.Values(candidate.ID, candidate.TaskID, candidate.WikidataID, candidate.Score, candidate.Status, candidate.Source, candidate.ScoreBreakdown, candidate.MatchedProperties, pq.StringArray(candidate.Tags), candidate.Notes, candidate.CreatedAt, candidate.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"candidate_id": candidate.ID, "task_id": candidate.TaskID}).Error("Failed to create match candidate")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create match candidate")
	}

	return candidate, nil
}

// CreateBatch persists the candidates produced by one scoring run. Plain
// inserts: the same wikidata_id may legitimately appear more than once per
// task, each row being a distinct discovery event.
func (r *Repository) CreateBatch(ctx context.Context, candidates []*models.MatchCandidate) error {
	ctx, span := tracing.StartSpan(ctx, "matchcandidate.Repository.CreateBatch")
	defer span.End()

	if len(candidates) == 0 {
		return nil
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("match_candidates")
	sb.Cols("id", "task_id", "wikidata_id", "score", "status", "source", "score_breakdown", "matched_properties", "tags", "notes", "created_at", "updated_at")

	for _, c := range candidates {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		c.CreatedAt = now
		c.UpdatedAt = now
		if c.Status == "" {
			c.Status = models.CandidateStatusSuggested
		}
		sb.Values(c.ID, c.TaskID, c.WikidataID, c.Score, c.Status, c.Source, c.ScoreBreakdown, c.MatchedProperties, pq.StringArray(c.Tags), c.Notes, c.CreatedAt, c.UpdatedAt)
	}

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create match candidates batch")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create match candidates")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"count": len(candidates)}).Debug("Created match candidates batch")
	return nil
}

// Get retrieves a match candidate by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.MatchCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "matchcandidate.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("match_candidates")
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var candidate models.MatchCandidate
	if err := r.db.GetContext(ctx, &candidate, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("match candidate %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get match candidate")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get match candidate")
	}

	return &candidate, nil
}

// ListByTask retrieves all candidates for a task, best score first
func (r *Repository) ListByTask(ctx context.Context, taskID string, status string) ([]models.MatchCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "matchcandidate.Repository.ListByTask")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("match_candidates")

	where := []string{
		sb.Equal("task_id", taskID),
		sb.IsNull("deleted_at"),
	}
	if status != "" {
		where = append(where, sb.Equal("status", status))
	}
	sb.Where(where...)
	sb.OrderBy("score DESC", "created_at ASC")

	query, args := sb.Build()
	var candidates []models.MatchCandidate
	if err := r.db.SelectContext(ctx, &candidates, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list match candidates by task")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list match candidates")
	}

	return candidates, nil
}

// UpdateStatus transitions a candidate out of suggested state. The status
// precondition rides in the WHERE clause so a concurrent decision loses
// cleanly instead of silently overwriting.
func (r *Repository) UpdateStatus(ctx context.Context, id string, from, to models.CandidateStatus) (*models.MatchCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "matchcandidate.Repository.UpdateStatus")
	defer span.End()

	now := time.Now().UTC()
	query := `
		UPDATE match_candidates
		SET status = $1, reviewed_at = $2, updated_at = $2
		WHERE id = $3 AND status = $4 AND deleted_at IS NULL
		RETURNING ` + columns

	var candidate models.MatchCandidate
	if err := r.db.GetContext(ctx, &candidate, query, to, now, id, from); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("match candidate %s is not in %s state", id, from))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update match candidate status")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update match candidate status")
	}

	return &candidate, nil
}

// ApplyPatch applies a partial update to one candidate
func (r *Repository) ApplyPatch(ctx context.Context, id string, patch models.CandidatePatch) error {
	ctx, span := tracing.StartSpan(ctx, "matchcandidate.Repository.ApplyPatch")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("match_candidates")
	assignments := []string{sb.Assign("updated_at", now)}
	if patch.Status != nil {
		assignments = append(assignments, sb.Assign("status", *patch.Status), sb.Assign("reviewed_at", now))
	}
	if patch.Tags != nil {
		assignments = append(assignments, sb.Assign("tags", pq.StringArray(patch.Tags)))
	}
	if patch.Notes != nil {
		assignments = append(assignments, sb.Assign("notes", *patch.Notes))
	}
	sb.Set(assignments...)
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to patch match candidate")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update match candidate")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("match candidate %s not found", id))
	}

	return nil
}

// CountLiveByIDs reports how many of the given IDs resolve to live
// candidates. Bulk updates use this to fail the whole batch when any ID is
// missing.
func (r *Repository) CountLiveByIDs(ctx context.Context, ids []string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "matchcandidate.Repository.CountLiveByIDs")
	defer span.End()

	if len(ids) == 0 {
		return 0, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("match_candidates")
	sb.Where(
		sb.In("id", idsToAny(ids)...),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count match candidates")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count match candidates")
	}

	return count, nil
}

// BulkPatch applies one partial update to many candidates in a single
// statement. A status change stamps reviewed_at on every affected row.
func (r *Repository) BulkPatch(ctx context.Context, ids []string, patch models.CandidatePatch) error {
	ctx, span := tracing.StartSpan(ctx, "matchcandidate.Repository.BulkPatch")
	defer span.End()

	if len(ids) == 0 || patch.IsEmpty() {
		return nil
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("match_candidates")
	assignments := []string{sb.Assign("updated_at", now)}
	if patch.Status != nil {
		assignments = append(assignments, sb.Assign("status", *patch.Status), sb.Assign("reviewed_at", now))
	}
	if patch.Tags != nil {
		assignments = append(assignments, sb.Assign("tags", pq.StringArray(patch.Tags)))
	}
	if patch.Notes != nil {
		assignments = append(assignments, sb.Assign("notes", *patch.Notes))
	}
	sb.Set(assignments...)
	sb.Where(
		sb.In("id", idsToAny(ids)...),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to bulk patch match candidates")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update match candidates")
	}

	return nil
}

// TaskStats returns the candidate count and highest score for a task,
// used to refresh the task's denormalized summary after candidate writes.
func (r *Repository) TaskStats(ctx context.Context, taskID string) (count int, highest *int, err error) {
	ctx, span := tracing.StartSpan(ctx, "matchcandidate.Repository.TaskStats")
	defer span.End()

	query := `
		SELECT COUNT(*) AS candidate_count, MAX(score) AS highest_score
		FROM match_candidates
		WHERE task_id = $1 AND deleted_at IS NULL
	`

	var row struct {
		CandidateCount int  `db:"candidate_count"`
		HighestScore   *int `db:"highest_score"`
	}
	if err := r.db.GetContext(ctx, &row, query, taskID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to aggregate candidate stats for task")
		return 0, nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to aggregate candidate stats")
	}

	return row.CandidateCount, row.HighestScore, nil
}

// ProjectStats aggregates candidate decisions across a whole project in a
// single pass.
func (r *Repository) ProjectStats(ctx context.Context, projectID string) (models.CandidateStats, *float64, error) {
	ctx, span := tracing.StartSpan(ctx, "matchcandidate.Repository.ProjectStats")
	defer span.End()

	query := `
		SELECT
			COUNT(mc.id) AS total,
			COUNT(CASE WHEN mc.status = 'accepted' THEN 1 END) AS accepted,
			COUNT(CASE WHEN mc.status = 'rejected' THEN 1 END) AS rejected,
			AVG(CASE WHEN mc.status = 'accepted' THEN mc.score END) AS avg_accepted_score
		FROM match_candidates mc
		JOIN tasks t ON t.id = mc.task_id
		WHERE t.project_id = $1 AND mc.deleted_at IS NULL AND t.deleted_at IS NULL
	`

	var row struct {
		Total            int      `db:"total"`
		Accepted         int      `db:"accepted"`
		Rejected         int      `db:"rejected"`
		AvgAcceptedScore *float64 `db:"avg_accepted_score"`
	}
	if err := r.db.GetContext(ctx, &row, query, projectID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"project_id": projectID}).Error("Failed to aggregate candidate stats for project")
		return models.CandidateStats{}, nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to aggregate candidate stats")
	}

	stats := models.CandidateStats{
		Total:    row.Total,
		Accepted: row.Accepted,
		Rejected: row.Rejected,
	}
	return stats, row.AvgAcceptedScore, nil
}

// SoftDeleteByTaskIDs soft deletes all candidates belonging to the given
// tasks, as part of a project delete cascade.
func (r *Repository) SoftDeleteByTaskIDs(ctx context.Context, taskIDs []string) error {
	ctx, span := tracing.StartSpan(ctx, "matchcandidate.Repository.SoftDeleteByTaskIDs")
	defer span.End()

	if len(taskIDs) == 0 {
		return nil
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("match_candidates")
	sb.Set(
		sb.Assign("deleted_at", now),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.In("task_id", idsToAny(taskIDs)...),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to soft delete match candidates")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete match candidates")
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

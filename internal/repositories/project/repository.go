// Package project persists reconciliation projects and their denormalized
// progress counters.
package project

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

const columns = "id, dataset_id, name, notes, status, task_count, tasks_completed, tasks_with_candidates, config, started_at, completed_at, created_at, updated_at, deleted_at"

// Repository handles project persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new project repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new project in draft state
func (r *Repository) Create(ctx context.Context, req models.CreateProjectRequest) (*models.Project, error) {
	ctx, span := tracing.StartSpan(ctx, "project.Repository.Create")
	defer span.End()

	now := time.Now().UTC()
	project := &models.Project{
		ID:        uuid.New().String(),
		DatasetID: req.DatasetID,
		Name:      req.Name,
		Notes:     req.Notes,
		Status:    models.ProjectStatusDraft,
		Config:    req.Config,
	}
	project.CreatedAt = now
	project.UpdatedAt = now

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("projects")
	sb.Cols("id", "dataset_id", "name", "notes", "status", "config", "created_at", "updated_at")
	sb.Values(project.ID, project.DatasetID, project.Name, project.Notes, project.Status, project.Config, project.CreatedAt, project.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"dataset_id": req.DatasetID}).Error("Failed to create project")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create project")
	}

	return project, nil
}

// Get retrieves a project by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Project, error) {
	ctx, span := tracing.StartSpan(ctx, "project.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("projects")
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var project models.Project
	if err := r.db.GetContext(ctx, &project, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("project %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get project")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get project")
	}

	return &project, nil
}

// List retrieves projects, newest first
func (r *Repository) List(ctx context.Context, datasetID string, page, pageSize int) ([]models.Project, int, error) {
	ctx, span := tracing.StartSpan(ctx, "project.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	where := func(sb *sqlbuilder.SelectBuilder) []string {
		conds := []string{sb.IsNull("deleted_at")}
		if datasetID != "" {
			conds = append(conds, sb.Equal("dataset_id", datasetID))
		}
		return conds
	}

	countSB := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSB.Select("COUNT(*)")
	countSB.From("projects")
	countSB.Where(where(countSB)...)

	countQuery, countArgs := countSB.Build()
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count projects")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count projects")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("projects")
	sb.Where(where(sb)...)
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args := sb.Build()
	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list projects")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list projects")
	}

	return projects, total, nil
}

// UpdateStatus moves the project through its lifecycle. StartedAt is stamped
// the first time the project leaves draft.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status models.ProjectStatus) error {
	ctx, span := tracing.StartSpan(ctx, "project.Repository.UpdateStatus")
	defer span.End()

	now := time.Now().UTC()
	var query string
	switch status {
	case models.ProjectStatusPendingSearch:
		query = `
			UPDATE projects
			SET status = $1, started_at = COALESCE(started_at, $2), updated_at = $2
			WHERE id = $3 AND deleted_at IS NULL
		`
	case models.ProjectStatusCompleted:
		query = `
			UPDATE projects
			SET status = $1, completed_at = $2, updated_at = $2
			WHERE id = $3 AND deleted_at IS NULL
		`
	default:
		query = `
			UPDATE projects
			SET status = $1, updated_at = $2
			WHERE id = $3 AND deleted_at IS NULL
		`
	}

	result, err := r.db.ExecContext(ctx, query, status, now, id)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"project_id": id, "status": status}).Error("Failed to update project status")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update project status")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("project %s not found", id))
	}

	return nil
}

// RefreshCounters recomputes the denormalized task counters from the tasks
// table in one statement. Completed means any terminal review outcome.
func (r *Repository) RefreshCounters(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "project.Repository.RefreshCounters")
	defer span.End()

	now := time.Now().UTC()
	query := `
		UPDATE projects p
		SET task_count = agg.total,
		    tasks_completed = agg.completed,
		    tasks_with_candidates = agg.with_candidates,
		    updated_at = $1
		FROM (
			SELECT
				COUNT(*) AS total,
				COUNT(CASE WHEN status IN ('reviewed', 'auto_confirmed', 'skipped', 'knowledge_based', 'no_candidates_found') THEN 1 END) AS completed,
				COUNT(CASE WHEN candidate_count > 0 THEN 1 END) AS with_candidates
			FROM tasks
			WHERE project_id = $2 AND deleted_at IS NULL
		) agg
		WHERE p.id = $2
	`

	if _, err := r.db.ExecContext(ctx, query, now, id); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"project_id": id}).Error("Failed to refresh project counters")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to refresh project counters")
	}

	return nil
}

// SoftDelete soft deletes the project row; the workflow layer cascades to
// tasks and candidates.
func (r *Repository) SoftDelete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "project.Repository.SoftDelete")
	defer span.End()

	now := time.Now().UTC()
	query := `
		UPDATE projects
		SET deleted_at = $1, updated_at = $1
		WHERE id = $2 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, now, id)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to soft delete project")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete project")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("project %s not found", id))
	}

	return nil
}

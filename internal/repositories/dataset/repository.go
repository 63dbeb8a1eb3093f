// Package dataset persists datasets, the imported batches of source records
// that projects reconcile.
package dataset

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

const columns = "id, name, description, source_type, source_url, entry_count, created_at, updated_at, deleted_at"

// Repository handles dataset persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new dataset repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new dataset
func (r *Repository) Create(ctx context.Context, dataset *models.Dataset) (*models.Dataset, error) {
	ctx, span := tracing.StartSpan(ctx, "dataset.Repository.Create")
	defer span.End()

	if dataset.ID == "" {
		dataset.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	dataset.CreatedAt = now
	dataset.UpdatedAt = now

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("datasets")
	sb.Cols("id", "name", "description", "source_type", "source_url", "created_at", "updated_at")
	sb.Values(dataset.ID, dataset.Name, dataset.Description, dataset.SourceType, dataset.SourceURL, dataset.CreatedAt, dataset.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"name": dataset.Name}).Error("Failed to create dataset")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create dataset")
	}

	return dataset, nil
}

// Get retrieves a dataset by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Dataset, error) {
	ctx, span := tracing.StartSpan(ctx, "dataset.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("datasets")
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var dataset models.Dataset
	if err := r.db.GetContext(ctx, &dataset, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("dataset %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get dataset")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get dataset")
	}

	return &dataset, nil
}

// List retrieves all live datasets, newest first
func (r *Repository) List(ctx context.Context) ([]models.Dataset, error) {
	ctx, span := tracing.StartSpan(ctx, "dataset.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("datasets")
	sb.Where(sb.IsNull("deleted_at"))
	sb.OrderBy("created_at DESC")

	query, args := sb.Build()
	var datasets []models.Dataset
	if err := r.db.SelectContext(ctx, &datasets, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list datasets")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list datasets")
	}

	return datasets, nil
}

// RefreshEntryCount recomputes the denormalized entry counter
func (r *Repository) RefreshEntryCount(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "dataset.Repository.RefreshEntryCount")
	defer span.End()

	now := time.Now().UTC()
	query := `
		UPDATE datasets d
		SET entry_count = (SELECT COUNT(*) FROM dataset_entries e WHERE e.dataset_id = d.id AND e.deleted_at IS NULL),
		    updated_at = $1
		WHERE d.id = $2
	`

	if _, err := r.db.ExecContext(ctx, query, now, id); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"dataset_id": id}).Error("Failed to refresh dataset entry count")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to refresh dataset entry count")
	}

	return nil
}

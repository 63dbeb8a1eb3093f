// Package datasetentry persists dataset entries and their typed properties.
package datasetentry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/laurel/internal/database"
	"github.com/Ramsey-B/laurel/pkg/fingerprint"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/tracing"
)

const columns = "id, dataset_id, external_id, display_name, name, date_of_birth, data, fingerprint, created_at, updated_at, deleted_at"

// Repository handles dataset entry persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new dataset entry repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// UpsertBatch inserts or refreshes entries keyed by (dataset_id,
// external_id). Rows whose fingerprint is unchanged are left untouched so
// re-imports do not churn updated_at.
func (r *Repository) UpsertBatch(ctx context.Context, datasetID string, entries []*models.DatasetEntry) error {
	ctx, span := tracing.StartSpan(ctx, "datasetentry.Repository.UpsertBatch")
	defer span.End()

	if len(entries) == 0 {
		return nil
	}

	now := time.Now().UTC()
	ib := database.NewInsertBuilder()
	ib.InsertInto("dataset_entries")
	ib.Cols("id", "dataset_id", "external_id", "display_name", "name", "date_of_birth", "data", "fingerprint", "created_at", "updated_at")

	for _, e := range entries {
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		e.DatasetID = datasetID
		if e.Fingerprint == "" && len(e.Data) > 0 {
			fp, err := fingerprint.GenerateFromJSON(e.Data)
			if err != nil {
				return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid entry data for %s: %v", e.ExternalID, err)
			}
			e.Fingerprint = fp
		}
		ib.Values(e.ID, e.DatasetID, e.ExternalID, e.DisplayName, e.Name, e.DateOfBirth, e.Data, e.Fingerprint, now, now)
	}

	ub := ib.OnConflict("dataset_id", "external_id")
	ub.Set(
		ub.Assign("display_name", database.Excluded("display_name")),
		ub.Assign("name", database.Excluded("name")),
		ub.Assign("date_of_birth", database.Excluded("date_of_birth")),
		ub.Assign("data", database.Excluded("data")),
		ub.Assign("fingerprint", database.Excluded("fingerprint")),
		ub.Assign("updated_at", database.Excluded("updated_at")),
	)
	ub.Where("dataset_entries.fingerprint IS DISTINCT FROM EXCLUDED.fingerprint")

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"dataset_id": datasetID, "count": len(entries)}).Error("Failed to upsert dataset entries")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert dataset entries")
	}

	return nil
}

// Get retrieves an entry by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.DatasetEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "datasetentry.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("dataset_entries")
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var entry models.DatasetEntry
	if err := r.db.GetContext(ctx, &entry, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("dataset entry %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get dataset entry")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get dataset entry")
	}

	return &entry, nil
}

// GetByExternalID retrieves an entry by its source identifier. Needed after
// upserts, where the incoming row's generated ID is discarded when the entry
// already existed.
func (r *Repository) GetByExternalID(ctx context.Context, datasetID, externalID string) (*models.DatasetEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "datasetentry.Repository.GetByExternalID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("dataset_entries")
	sb.Where(
		sb.Equal("dataset_id", datasetID),
		sb.Equal("external_id", externalID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var entry models.DatasetEntry
	if err := r.db.GetContext(ctx, &entry, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("dataset entry %s not found", externalID))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get dataset entry by external id")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get dataset entry")
	}

	return &entry, nil
}

// List retrieves entries for a dataset, paginated
func (r *Repository) List(ctx context.Context, datasetID string, page, pageSize int) ([]models.DatasetEntry, int, error) {
	ctx, span := tracing.StartSpan(ctx, "datasetentry.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	countQuery := `SELECT COUNT(*) FROM dataset_entries WHERE dataset_id = $1 AND deleted_at IS NULL`
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, datasetID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count dataset entries")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count dataset entries")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("dataset_entries")
	sb.Where(
		sb.Equal("dataset_id", datasetID),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("external_id ASC")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args := sb.Build()
	var entries []models.DatasetEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list dataset entries")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list dataset entries")
	}

	return entries, total, nil
}

// IterateIDs streams all live entry IDs for a dataset through fn without
// materializing the whole set. Bulk task generation rides on this so a
// million-entry dataset never loads into memory at once.
func (r *Repository) IterateIDs(ctx context.Context, datasetID string, fn func(id string) error) error {
	ctx, span := tracing.StartSpan(ctx, "datasetentry.Repository.IterateIDs")
	defer span.End()

	query := `SELECT id FROM dataset_entries WHERE dataset_id = $1 AND deleted_at IS NULL ORDER BY external_id ASC`

	rows, err := r.db.QueryxContext(ctx, query, datasetID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"dataset_id": datasetID}).Error("Failed to iterate dataset entry ids")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to iterate dataset entries")
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("Failed to scan dataset entry id")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to iterate dataset entries")
		}
		if err := fn(id); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Row iteration failed for dataset entry ids")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to iterate dataset entries")
	}

	return nil
}

// CountByDataset counts the live entries of a dataset
func (r *Repository) CountByDataset(ctx context.Context, datasetID string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "datasetentry.Repository.CountByDataset")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("dataset_entries")
	sb.Where(
		sb.Equal("dataset_id", datasetID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"dataset_id": datasetID}).Error("Failed to count dataset entries")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count dataset entries")
	}

	return count, nil
}

// FilterIDsByDataset returns the subset of ids that belong to the dataset
// and are live. Callers use it to validate explicit entry selections.
func (r *Repository) FilterIDsByDataset(ctx context.Context, datasetID string, ids []string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "datasetentry.Repository.FilterIDsByDataset")
	defer span.End()

	if len(ids) == 0 {
		return nil, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id")
	sb.From("dataset_entries")
	sb.Where(
		sb.Equal("dataset_id", datasetID),
		sb.In("id", idsToAny(ids)...),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var found []string
	if err := r.db.SelectContext(ctx, &found, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to filter dataset entry ids")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to filter dataset entries")
	}

	return found, nil
}

// ReplaceProperties swaps all typed properties for an entry
func (r *Repository) ReplaceProperties(ctx context.Context, entryID string, props []models.EntryProperty) error {
	ctx, span := tracing.StartSpan(ctx, "datasetentry.Repository.ReplaceProperties")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("entry_properties")
	db.Where(db.Equal("entry_id", entryID))
	query, args := db.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entry_id": entryID}).Error("Failed to delete entry properties")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace entry properties")
	}

	if len(props) > 0 {
		ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
		ib.InsertInto("entry_properties")
		ib.Cols("id", "entry_id", "property_id", "value", "data_type", "confidence")
		for _, p := range props {
			id := p.ID
			if id == "" {
				id = uuid.New().String()
			}
			ib.Values(id, entryID, p.PropertyID, p.Value, p.DataType, p.Confidence)
		}
		query, args := ib.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entry_id": entryID}).Error("Failed to insert entry properties")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace entry properties")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}
	return nil
}

// ListProperties retrieves all typed properties for an entry
func (r *Repository) ListProperties(ctx context.Context, entryID string) ([]models.EntryProperty, error) {
	ctx, span := tracing.StartSpan(ctx, "datasetentry.Repository.ListProperties")
	defer span.End()

	query := `
		SELECT id, entry_id, property_id, value, data_type, confidence
		FROM entry_properties
		WHERE entry_id = $1
		ORDER BY property_id ASC
	`

	var props []models.EntryProperty
	if err := r.db.SelectContext(ctx, &props, query, entryID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list entry properties")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list entry properties")
	}

	return props, nil
}

// GetEntryData assembles the flattened shape the score calculator consumes:
// column values first, then any name or dob fields buried in the raw data
// payload, plus the typed properties.
func (r *Repository) GetEntryData(ctx context.Context, entryID string) (models.EntryData, error) {
	ctx, span := tracing.StartSpan(ctx, "datasetentry.Repository.GetEntryData")
	defer span.End()

	entry, err := r.Get(ctx, entryID)
	if err != nil {
		return models.EntryData{}, err
	}

	data := models.EntryData{
		DisplayName: entry.DisplayName,
	}
	if entry.Name != nil {
		data.Name = *entry.Name
	}
	if entry.DateOfBirth != nil {
		data.DateOfBirth = *entry.DateOfBirth
	}

	if len(entry.Data) > 0 {
		var raw struct {
			Name string `json:"name"`
			DOB  string `json:"dob"`
		}
		// Best effort; malformed payloads just mean no fallback fields
		if err := json.Unmarshal(entry.Data, &raw); err == nil {
			if data.Name == "" {
				data.Name = raw.Name
			}
			data.DOB = raw.DOB
		}
	}

	props, err := r.ListProperties(ctx, entryID)
	if err != nil {
		return models.EntryData{}, err
	}
	data.Properties = props

	return data, nil
}

func idsToAny(ids []string) []any {
	result := make([]any, len(ids))
	for i, id := range ids {
		result[i] = id
	}
	return result
}

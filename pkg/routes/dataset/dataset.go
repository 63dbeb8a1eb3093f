// Package dataset exposes dataset and entry import endpoints
package dataset

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	datasetrepo "github.com/Ramsey-B/laurel/internal/repositories/dataset"
	entryrepo "github.com/Ramsey-B/laurel/internal/repositories/datasetentry"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/tracing"
)

var validate = validator.New()

// Register registers dataset routes
func Register(g *echo.Group) {
	g.POST("", Create)
	g.GET("", List)
	g.GET("/:id", Get)
	g.POST("/:id/entries", ImportEntries)
	g.GET("/:id/entries", ListEntries)
	g.GET("/:id/entries/:entryId", GetEntry)
}

// Create creates a new dataset
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "dataset_handler.Create")
	defer span.End()

	var req models.CreateDatasetRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*datasetrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	created, err := repo.Create(ctx, &models.Dataset{
		Name:        req.Name,
		Description: req.Description,
		SourceType:  req.SourceType,
		SourceURL:   req.SourceURL,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

// List lists all datasets
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "dataset_handler.List")
	defer span.End()

	ctx, repo, err := ectoinject.GetContext[*datasetrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	datasets, err := repo.List(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, datasets)
}

// Get returns one dataset
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "dataset_handler.Get")
	defer span.End()

	ctx, repo, err := ectoinject.GetContext[*datasetrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	ds, err := repo.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ds)
}

// ImportEntries bulk imports entries into a dataset. Entries are upserted by
// external_id; unchanged rows (same fingerprint) are left untouched.
func ImportEntries(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "dataset_handler.ImportEntries")
	defer span.End()

	datasetID := c.Param("id")

	var req models.ImportEntriesRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, datasets, err := ectoinject.GetContext[*datasetrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, entries, err := ectoinject.GetContext[*entryrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	ds, err := datasets.Get(ctx, datasetID)
	if err != nil {
		return err
	}

	batch := make([]*models.DatasetEntry, len(req.Entries))
	for i, in := range req.Entries {
		batch[i] = &models.DatasetEntry{
			DatasetID:   ds.ID,
			ExternalID:  in.ExternalID,
			DisplayName: in.DisplayName,
			Name:        in.Name,
			DateOfBirth: in.DateOfBirth,
			Data:        in.Data,
		}
	}
	if err := entries.UpsertBatch(ctx, ds.ID, batch); err != nil {
		return err
	}

	// Typed properties ride separately; the upsert may have kept an existing
	// row ID so resolve each entry by external_id first.
	for _, in := range req.Entries {
		if len(in.Properties) == 0 {
			continue
		}
		entry, err := entries.GetByExternalID(ctx, ds.ID, in.ExternalID)
		if err != nil {
			return err
		}
		if err := entries.ReplaceProperties(ctx, entry.ID, in.Properties); err != nil {
			return err
		}
	}

	if err := datasets.RefreshEntryCount(ctx, ds.ID); err != nil {
		return err
	}
	refreshed, err := datasets.Get(ctx, ds.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.ImportEntriesResponse{
		EntriesImported: len(req.Entries),
		EntryCount:      refreshed.EntryCount,
	})
}

// ListEntries lists entries for a dataset, paginated
func ListEntries(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "dataset_handler.ListEntries")
	defer span.End()

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))

	ctx, entries, err := ectoinject.GetContext[*entryrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	items, total, err := entries.List(ctx, c.Param("id"), page, pageSize)
	if err != nil {
		return err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	return c.JSON(http.StatusOK, models.DatasetEntryListResponse{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	})
}

// GetEntry returns one dataset entry with its typed properties
func GetEntry(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "dataset_handler.GetEntry")
	defer span.End()

	ctx, entries, err := ectoinject.GetContext[*entryrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	entry, err := entries.Get(ctx, c.Param("entryId"))
	if err != nil {
		return err
	}
	props, err := entries.ListProperties(ctx, entry.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"entry":      entry,
		"properties": props,
	})
}

// Package graph exposes the graph export endpoints
package graph

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	graphpkg "github.com/Ramsey-B/laurel/pkg/graph"
	"github.com/Ramsey-B/laurel/pkg/tracing"
	"github.com/Ramsey-B/laurel/pkg/workflow"
)

// Register registers the graph export routes
func Register(g *echo.Group) {
	g.POST("/projects/:id/sync", SyncProject)
	g.GET("/projects/:id", ProjectStatus)
	g.DELETE("/projects/:id", RemoveProject)
}

func requireExportService(c echo.Context) (*graphpkg.ExportService, error) {
	ctx := c.Request().Context()
	_, svc, err := ectoinject.GetContext[*graphpkg.ExportService](ctx)
	if err != nil || svc == nil {
		// 503 because the graph database is an optional dependency
		return nil, httperror.NewHTTPError(http.StatusServiceUnavailable, "graph export service unavailable")
	}
	return svc, nil
}

// SyncProject mirrors the project's accepted matches into the graph
func SyncProject(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "graph_handler.SyncProject")
	defer span.End()

	exporter, err := requireExportService(c)
	if err != nil {
		return err
	}

	ctx, svc, err := ectoinject.GetContext[*workflow.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	projectID := c.Param("id")
	matches, err := svc.ApprovedMatches(ctx, projectID)
	if err != nil {
		return err
	}

	if err := exporter.SyncProject(ctx, projectID, matches); err != nil {
		return httperror.NewHTTPError(http.StatusBadGateway, "graph sync failed")
	}

	return c.JSON(http.StatusOK, map[string]any{"synced": len(matches)})
}

// ProjectStatus reports how many edges the project has in the graph
func ProjectStatus(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "graph_handler.ProjectStatus")
	defer span.End()

	exporter, err := requireExportService(c)
	if err != nil {
		return err
	}

	count, err := exporter.CountSameAs(ctx, c.Param("id"))
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadGateway, "graph query failed")
	}

	return c.JSON(http.StatusOK, map[string]any{"same_as_edges": count})
}

// RemoveProject deletes the project's edges from the graph
func RemoveProject(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "graph_handler.RemoveProject")
	defer span.End()

	exporter, err := requireExportService(c)
	if err != nil {
		return err
	}

	if err := exporter.RemoveProject(ctx, c.Param("id")); err != nil {
		return httperror.NewHTTPError(http.StatusBadGateway, "graph delete failed")
	}

	return c.NoContent(http.StatusNoContent)
}

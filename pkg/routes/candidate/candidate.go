// Package candidate exposes cross-task candidate endpoints
package candidate

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	candidaterepo "github.com/Ramsey-B/laurel/internal/repositories/matchcandidate"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/tracing"
	"github.com/Ramsey-B/laurel/pkg/workflow"
)

var validate = validator.New()

// Register registers candidate routes
func Register(g *echo.Group) {
	g.GET("/:id", Get)
	g.PATCH("/:id", Patch)
	g.POST("/bulk", BulkUpdate)
}

// Get returns one match candidate
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "candidate_handler.Get")
	defer span.End()

	ctx, repo, err := ectoinject.GetContext[*candidaterepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	candidate, err := repo.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, candidate)
}

// Patch applies a partial update to one candidate. Accept and reject have
// their own endpoints; a status change here bypasses the review flow and is
// rejected.
func Patch(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "candidate_handler.Patch")
	defer span.End()

	var patch models.CandidatePatch
	if err := c.Bind(&patch); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if patch.IsEmpty() {
		return httperror.NewHTTPError(http.StatusBadRequest, "patch must change at least one field")
	}
	if patch.Status != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "status changes must go through accept or reject")
	}

	ctx, repo, err := ectoinject.GetContext[*candidaterepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.ApplyPatch(ctx, c.Param("id"), patch); err != nil {
		return err
	}

	updated, err := repo.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, updated)
}

// BulkUpdate applies one patch to many candidates, all or nothing
func BulkUpdate(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "candidate_handler.BulkUpdate")
	defer span.End()

	var req models.BulkUpdateCandidatesRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, svc, err := ectoinject.GetContext[*workflow.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := svc.BulkUpdateCandidates(ctx, req); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"updated": len(req.CandidateIDs)})
}

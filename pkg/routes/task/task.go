// Package task exposes task review endpoints: candidates, accept, reject,
// skip.
package task

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	candidaterepo "github.com/Ramsey-B/laurel/internal/repositories/matchcandidate"
	taskrepo "github.com/Ramsey-B/laurel/internal/repositories/task"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/tracing"
	"github.com/Ramsey-B/laurel/pkg/workflow"
)

var validate = validator.New()

// Register registers task routes
func Register(g *echo.Group) {
	g.GET("/:id", Get)
	g.GET("/:id/candidates", ListCandidates)
	g.POST("/:id/candidates", AddCandidate)
	g.POST("/:id/candidates/:candidateId/accept", AcceptCandidate)
	g.POST("/:id/candidates/:candidateId/reject", RejectCandidate)
	g.POST("/:id/skip", Skip)
}

// Get returns one task
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "task_handler.Get")
	defer span.End()

	ctx, repo, err := ectoinject.GetContext[*taskrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	tk, err := repo.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tk)
}

// ListCandidates lists a task's candidates, best score first
func ListCandidates(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "task_handler.ListCandidates")
	defer span.End()

	status := c.QueryParam("status")
	if status != "" && !models.CandidateStatus(status).IsValid() {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown candidate status %q", status)
	}

	ctx, repo, err := ectoinject.GetContext[*candidaterepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	candidates, err := repo.ListByTask(ctx, c.Param("id"), status)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, candidates)
}

// AddCandidate records a manually discovered candidate on a task
func AddCandidate(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "task_handler.AddCandidate")
	defer span.End()

	var req models.CreateCandidateRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.TaskID = c.Param("id")
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, svc, err := ectoinject.GetContext[*workflow.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	created, err := svc.AddCandidate(ctx, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

// AcceptCandidate accepts a candidate and resolves the task
func AcceptCandidate(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "task_handler.AcceptCandidate")
	defer span.End()

	ctx, svc, err := ectoinject.GetContext[*workflow.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	resp, err := svc.AcceptCandidate(ctx, c.Param("id"), c.Param("candidateId"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// RejectCandidate rejects a suggested candidate
func RejectCandidate(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "task_handler.RejectCandidate")
	defer span.End()

	ctx, svc, err := ectoinject.GetContext[*workflow.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	rejected, err := svc.RejectCandidate(ctx, c.Param("id"), c.Param("candidateId"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, rejected)
}

// SkipRequest carries the optional reviewer note for a skip
type SkipRequest struct {
	Notes *string `json:"notes,omitempty"`
}

// Skip marks a task as skipped
func Skip(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "task_handler.Skip")
	defer span.End()

	var req SkipRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, svc, err := ectoinject.GetContext[*workflow.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	tk, err := svc.SkipTask(ctx, c.Param("id"), req.Notes)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tk)
}

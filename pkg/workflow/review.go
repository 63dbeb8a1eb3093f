package workflow

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/Ramsey-B/laurel/pkg/events"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/tracing"
)

// AcceptCandidate accepts one candidate for a task. The candidate moves to
// accepted and the task records the decision and moves to reviewed, both in
// one transaction. Other candidates on the task are left as suggested so a
// later un-accept flow keeps its options. The status precondition on the
// candidate update makes a concurrent double-decide fail as an invalid
// transition.
func (s *Service) AcceptCandidate(ctx context.Context, taskID, candidateID string) (*models.AcceptCandidateResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "workflow.Service.AcceptCandidate")
	defer span.End()

	candidate, err := s.candidates.Get(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if candidate.TaskID != taskID {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "candidate %s does not belong to task %s", candidateID, taskID)
	}

	tk, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	ctxTx, tx, err := s.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctxTx)

	accepted, err := s.candidates.UpdateStatus(ctxTx, candidateID, models.CandidateStatusSuggested, models.CandidateStatusAccepted)
	if err != nil {
		return nil, err
	}

	if err := s.tasks.SetAccepted(ctxTx, taskID, accepted.ID, accepted.WikidataID, models.TaskStatusReviewed); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctxTx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}

	if err := s.projects.RefreshCounters(ctx, tk.ProjectID); err != nil {
		return nil, err
	}

	updated, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if s.emitter != nil {
		if err := s.emitter.EmitMatchAccepted(ctx, updated, accepted); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to emit match accepted event")
		}
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{"task_id": taskID, "candidate_id": candidateID, "wikidata_id": accepted.WikidataID}).Info("Accepted match candidate")
	return &models.AcceptCandidateResponse{
		Candidate: *accepted,
		Task:      *updated,
	}, nil
}

// RejectCandidate marks one suggested candidate as rejected. The task keeps
// its current status; rejecting every candidate does not resolve the task.
func (s *Service) RejectCandidate(ctx context.Context, taskID, candidateID string) (*models.MatchCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "workflow.Service.RejectCandidate")
	defer span.End()

	candidate, err := s.candidates.Get(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if candidate.TaskID != taskID {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "candidate %s does not belong to task %s", candidateID, taskID)
	}

	rejected, err := s.candidates.UpdateStatus(ctx, candidateID, models.CandidateStatusSuggested, models.CandidateStatusRejected)
	if err != nil {
		return nil, err
	}

	if s.emitter != nil {
		if err := s.emitter.EmitMatchRejected(ctx, taskID, rejected); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to emit match rejected event")
		}
	}

	return rejected, nil
}

// SkipTask marks a task as skipped, from any state, without touching its
// candidates.
func (s *Service) SkipTask(ctx context.Context, taskID string, notes *string) (*models.Task, error) {
	ctx, span := tracing.StartSpan(ctx, "workflow.Service.SkipTask")
	defer span.End()

	tk, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if err := s.tasks.Skip(ctx, taskID, notes); err != nil {
		return nil, err
	}

	if err := s.projects.RefreshCounters(ctx, tk.ProjectID); err != nil {
		return nil, err
	}

	updated, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if s.emitter != nil {
		if err := s.emitter.EmitTaskResolved(ctx, events.EventTypeTaskSkipped, updated); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to emit task skipped event")
		}
	}

	return updated, nil
}

// BulkUpdateCandidates applies one patch to many candidates, all or
// nothing. Every ID must resolve to a live candidate or the whole batch
// fails with not found.
func (s *Service) BulkUpdateCandidates(ctx context.Context, req models.BulkUpdateCandidatesRequest) error {
	ctx, span := tracing.StartSpan(ctx, "workflow.Service.BulkUpdateCandidates")
	defer span.End()

	if req.Patch.IsEmpty() {
		return httperror.NewHTTPError(http.StatusBadRequest, "patch must change at least one field")
	}
	if req.Patch.Status != nil && !req.Patch.Status.IsValid() {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown candidate status %q", *req.Patch.Status)
	}

	ctxTx, tx, err := s.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctxTx)

	count, err := s.candidates.CountLiveByIDs(ctxTx, req.CandidateIDs)
	if err != nil {
		return err
	}
	if count != len(req.CandidateIDs) {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "%d of %d candidates not found", len(req.CandidateIDs)-count, len(req.CandidateIDs))
	}

	if err := s.candidates.BulkPatch(ctxTx, req.CandidateIDs, req.Patch); err != nil {
		return err
	}

	if err := tx.Commit(ctxTx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{"count": len(req.CandidateIDs)}).Info("Bulk updated match candidates")
	return nil
}

// AddCandidate records a manually discovered candidate and refreshes the
// task's denormalized candidate summary.
func (s *Service) AddCandidate(ctx context.Context, req models.CreateCandidateRequest) (*models.MatchCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "workflow.Service.AddCandidate")
	defer span.End()

	if !req.Source.IsValid() {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown candidate source %q", req.Source)
	}
	if _, err := s.tasks.Get(ctx, req.TaskID); err != nil {
		return nil, err
	}

	candidate := &models.MatchCandidate{
		TaskID:            req.TaskID,
		WikidataID:        req.WikidataID,
		Score:             req.Score,
		Status:            models.CandidateStatusSuggested,
		Source:            req.Source,
		ScoreBreakdown:    req.ScoreBreakdown,
		MatchedProperties: req.MatchedProperties,
		Tags:              req.Tags,
	}

	created, err := s.candidates.Create(ctx, candidate)
	if err != nil {
		return nil, err
	}

	if err := s.RefreshTaskCandidateSummary(ctx, req.TaskID); err != nil {
		return nil, err
	}

	return created, nil
}

// RefreshTaskCandidateSummary recomputes candidate_count and highest_score
// on the task after any candidate write.
func (s *Service) RefreshTaskCandidateSummary(ctx context.Context, taskID string) error {
	ctx, span := tracing.StartSpan(ctx, "workflow.Service.RefreshTaskCandidateSummary")
	defer span.End()

	count, highest, err := s.candidates.TaskStats(ctx, taskID)
	if err != nil {
		return err
	}
	return s.tasks.UpdateCandidateSummary(ctx, taskID, count, highest)
}

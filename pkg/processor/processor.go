// Package processor consumes search result batches and turns them into
// scored match candidates. It owns the task side of the pipeline: scoring,
// candidate persistence, auto confirmation, and terminal task statuses.
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/laurel/internal/database"
	"github.com/Ramsey-B/laurel/internal/repositories/datasetentry"
	"github.com/Ramsey-B/laurel/internal/repositories/matchcandidate"
	"github.com/Ramsey-B/laurel/internal/repositories/project"
	"github.com/Ramsey-B/laurel/internal/repositories/task"
	"github.com/Ramsey-B/laurel/pkg/events"
	"github.com/Ramsey-B/laurel/pkg/kafka"
	"github.com/Ramsey-B/laurel/pkg/matching"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/tracing"
)

const defaultMaxCandidates = 25
const defaultParallelism = 4

// Processor scores incoming search results against dataset entries
type Processor struct {
	logger        ectologger.Logger
	db            database.DB
	settings      matching.Settings
	projectRepo   *project.Repository
	entryRepo     *datasetentry.Repository
	taskRepo      *task.Repository
	candidateRepo *matchcandidate.Repository
	emitter       *events.Emitter
}

// NewProcessor creates a new scoring processor. The emitter may be nil when
// event publishing is disabled.
func NewProcessor(
	logger ectologger.Logger,
	db database.DB,
	settings matching.Settings,
	projectRepo *project.Repository,
	entryRepo *datasetentry.Repository,
	taskRepo *task.Repository,
	candidateRepo *matchcandidate.Repository,
	emitter *events.Emitter,
) *Processor {
	return &Processor{
		logger:        logger,
		db:            db,
		settings:      settings,
		projectRepo:   projectRepo,
		entryRepo:     entryRepo,
		taskRepo:      taskRepo,
		candidateRepo: candidateRepo,
		emitter:       emitter,
	}
}

// HandleMessage is the kafka consumer entrypoint
func (p *Processor) HandleMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.HandleMessage")
	defer span.End()

	if msg.SearchResult == nil {
		if msg.IsSearchCompleted() {
			return p.handleSearchCompleted(ctx, msg)
		}
		p.logger.WithContext(ctx).WithFields(map[string]any{"key": msg.Key}).Warn("Skipping unrecognized message")
		return nil
	}

	return p.ProcessSearchResult(ctx, msg.SearchResult)
}

// handleSearchCompleted advances the project when the search service
// reports it has finished the whole project.
func (p *Processor) handleSearchCompleted(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.handleSearchCompleted")
	defer span.End()

	evt, err := msg.ParseSearchCompleted()
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to parse search completed event")
		return nil
	}

	log := p.logger.WithContext(ctx).WithFields(map[string]any{"project_id": evt.ProjectID, "status": evt.Status})

	status := models.ProjectStatusSearchCompleted
	if evt.Status == "failed" {
		status = models.ProjectStatusProcessingFailed
	}
	if err := p.projectRepo.UpdateStatus(ctx, evt.ProjectID, status); err != nil {
		return err
	}
	if err := p.projectRepo.RefreshCounters(ctx, evt.ProjectID); err != nil {
		return err
	}

	log.Info("Search completed for project")
	return nil
}

// ProcessSearchResult scores one task's entity batch and persists the
// outcome. Scoring failures for individual entities are skipped; failures
// that prevent any outcome mark the task failed so a rerun can pick it up.
func (p *Processor) ProcessSearchResult(ctx context.Context, result *models.SearchResultMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.ProcessSearchResult")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"task_id":  result.TaskID,
		"entities": len(result.Entities),
	})

	tk, err := p.taskRepo.Get(ctx, result.TaskID)
	if err != nil {
		return err
	}

	if err := p.taskRepo.MarkProcessing(ctx, tk.ID); err != nil {
		return err
	}

	proj, err := p.projectRepo.Get(ctx, tk.ProjectID)
	if err != nil {
		return err
	}
	settings, maxCandidates, parallelism := p.projectSettings(ctx, proj)

	entry, err := p.entryRepo.GetEntryData(ctx, tk.DatasetEntryID)
	if err != nil {
		return p.failTask(ctx, tk, fmt.Sprintf("failed to load entry data: %v", err))
	}

	candidates := p.scoreEntities(ctx, tk.ID, entry, result.Entities, settings, parallelism)
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}

	if len(candidates) == 0 {
		if err := p.taskRepo.FinishProcessing(ctx, tk.ID, models.TaskStatusNoCandidatesFound, nil); err != nil {
			return err
		}
		p.emitResolved(ctx, events.EventTypeTaskNoCandidates, tk)
		if err := p.projectRepo.RefreshCounters(ctx, tk.ProjectID); err != nil {
			return err
		}
		log.Info("No candidates found for task")
		return nil
	}

	if err := p.candidateRepo.CreateBatch(ctx, candidates); err != nil {
		return p.failTask(ctx, tk, "failed to persist candidates")
	}

	count, highest, err := p.candidateRepo.TaskStats(ctx, tk.ID)
	if err != nil {
		return err
	}
	if err := p.taskRepo.UpdateCandidateSummary(ctx, tk.ID, count, highest); err != nil {
		return err
	}

	best := candidates[0]
	if best.Score >= settings.AutoAcceptThreshold {
		if err := p.autoConfirm(ctx, tk, best); err != nil {
			return err
		}
		log.WithFields(map[string]any{"wikidata_id": best.WikidataID, "score": best.Score}).Info("Auto confirmed task")
	} else {
		if err := p.taskRepo.FinishProcessing(ctx, tk.ID, models.TaskStatusAwaitingReview, nil); err != nil {
			return err
		}
		log.WithFields(map[string]any{"candidates": len(candidates)}).Info("Task awaiting review")
	}

	return p.projectRepo.RefreshCounters(ctx, tk.ProjectID)
}

// scoreEntities scores the batch with a bounded fan-out and returns
// candidates ordered best first. Entities that score zero are dropped.
func (p *Processor) scoreEntities(ctx context.Context, taskID string, entry models.EntryData, entities []models.WikidataEntity, settings matching.Settings, parallelism int) []*models.MatchCandidate {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.scoreEntities")
	defer span.End()

	calc := matching.NewScoreCalculator(settings)

	if parallelism < 1 {
		parallelism = 1
	}
	sem := make(chan struct{}, parallelism)
	results := make([]*models.MatchCandidate, len(entities))
	var wg sync.WaitGroup

	for i := range entities {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			entity := &entities[i]
			composite := calc.Calculate(entry, entity)
			if composite.TotalScore <= 0 {
				return
			}

			breakdown, err := json.Marshal(composite)
			if err != nil {
				p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"wikidata_id": entity.ID}).Warn("Failed to marshal score breakdown")
				breakdown = nil
			}

			results[i] = &models.MatchCandidate{
				TaskID:         taskID,
				WikidataID:     entity.ID,
				Score:          composite.TotalScore,
				Status:         models.CandidateStatusSuggested,
				Source:         models.CandidateSourceAutomatedSearch,
				ScoreBreakdown: breakdown,
			}
		}(i)
	}
	wg.Wait()

	candidates := make([]*models.MatchCandidate, 0, len(entities))
	for _, c := range results {
		if c != nil {
			candidates = append(candidates, c)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

// autoConfirm accepts the best candidate and closes the task without human
// review, in one transaction.
func (p *Processor) autoConfirm(ctx context.Context, tk *models.Task, best *models.MatchCandidate) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.autoConfirm")
	defer span.End()

	ctxTx, tx, err := p.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctxTx)

	accepted, err := p.candidateRepo.UpdateStatus(ctxTx, best.ID, models.CandidateStatusSuggested, models.CandidateStatusAccepted)
	if err != nil {
		return err
	}
	if err := p.taskRepo.FinishProcessing(ctxTx, tk.ID, models.TaskStatusAutoConfirmed, nil); err != nil {
		return err
	}
	if err := p.taskRepo.SetAccepted(ctxTx, tk.ID, accepted.ID, accepted.WikidataID, models.TaskStatusAutoConfirmed); err != nil {
		return err
	}

	if err := tx.Commit(ctxTx); err != nil {
		return err
	}

	updated, err := p.taskRepo.Get(ctx, tk.ID)
	if err != nil {
		return err
	}
	p.emitResolved(ctx, events.EventTypeTaskAutoConfirmed, updated)
	return nil
}

// failTask records a terminal failure so the task shows up under the failed
// rerun criteria. The message is committed; reruns are explicit.
func (p *Processor) failTask(ctx context.Context, tk *models.Task, reason string) error {
	p.logger.WithContext(ctx).WithFields(map[string]any{"task_id": tk.ID, "reason": reason}).Error("Task processing failed")

	if err := p.taskRepo.FinishProcessing(ctx, tk.ID, models.TaskStatusFailed, &reason); err != nil {
		return err
	}
	p.emitResolved(ctx, events.EventTypeTaskFailed, tk)
	return p.projectRepo.RefreshCounters(ctx, tk.ProjectID)
}

func (p *Processor) emitResolved(ctx context.Context, eventType events.EventType, tk *models.Task) {
	if p.emitter == nil {
		return
	}
	if err := p.emitter.EmitTaskResolved(ctx, eventType, tk); err != nil {
		p.logger.WithContext(ctx).WithError(err).Warn("Failed to emit task event")
	}
}

// projectSettings applies per-project config overrides on top of the
// service defaults. Bad config JSON falls back to defaults; the project was
// validated on create so this only guards legacy rows.
func (p *Processor) projectSettings(ctx context.Context, proj *models.Project) (matching.Settings, int, int) {
	settings := p.settings
	maxCandidates := defaultMaxCandidates
	parallelism := defaultParallelism

	if len(proj.Config) == 0 {
		return settings, maxCandidates, parallelism
	}

	var cfg models.ProjectConfig
	if err := json.Unmarshal(proj.Config, &cfg); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"project_id": proj.ID}).Warn("Ignoring invalid project config")
		return settings, maxCandidates, parallelism
	}

	if cfg.NameWeight != nil {
		settings.NameWeight = *cfg.NameWeight
	}
	if cfg.DateWeight != nil {
		settings.DateWeight = *cfg.DateWeight
	}
	if cfg.AutoAccept != nil {
		settings.AutoAcceptThreshold = *cfg.AutoAccept
	}
	if cfg.MaxCandidates > 0 {
		maxCandidates = cfg.MaxCandidates
	}
	if cfg.Parallelism > 0 {
		parallelism = cfg.Parallelism
	}

	return settings, maxCandidates, parallelism
}

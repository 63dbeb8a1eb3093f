// Package workflow orchestrates the reconciliation lifecycle: project
// creation, bulk task generation, review decisions, reruns, and project
// statistics.
package workflow

import (
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/laurel/internal/database"
	"github.com/Ramsey-B/laurel/internal/repositories/dataset"
	"github.com/Ramsey-B/laurel/internal/repositories/datasetentry"
	"github.com/Ramsey-B/laurel/internal/repositories/matchcandidate"
	"github.com/Ramsey-B/laurel/internal/repositories/project"
	"github.com/Ramsey-B/laurel/internal/repositories/task"
	"github.com/Ramsey-B/laurel/pkg/events"
)

// Service coordinates the repositories behind every reconciliation
// operation. Multi-table writes run inside a single transaction obtained
// from the database layer.
type Service struct {
	db         database.DB
	logger     ectologger.Logger
	projects   *project.Repository
	datasets   *dataset.Repository
	entries    *datasetentry.Repository
	tasks      *task.Repository
	candidates *matchcandidate.Repository
	emitter    *events.Emitter
}

// NewService creates a new workflow service. The emitter may be nil when
// event publishing is disabled.
func NewService(
	db database.DB,
	logger ectologger.Logger,
	projects *project.Repository,
	datasets *dataset.Repository,
	entries *datasetentry.Repository,
	tasks *task.Repository,
	candidates *matchcandidate.Repository,
	emitter *events.Emitter,
) *Service {
	return &Service{
		db:         db,
		logger:     logger,
		projects:   projects,
		datasets:   datasets,
		entries:    entries,
		tasks:      tasks,
		candidates: candidates,
		emitter:    emitter,
	}
}

// Package events handles event emission for review lifecycle changes
package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/laurel/pkg/kafka"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes review lifecycle events downstream
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitMatchAccepted emits an event for an accepted match
func (e *Emitter) EmitMatchAccepted(ctx context.Context, task *models.Task, candidate *models.MatchCandidate) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMatchAccepted")
	defer span.End()

	event := &kafka.ReviewEvent{
		EventType:   string(EventTypeMatchAccepted),
		ProjectID:   task.ProjectID,
		TaskID:      task.ID,
		CandidateID: candidate.ID,
		WikidataID:  candidate.WikidataID,
		Score:       candidate.Score,
		Payload:     candidate.ScoreBreakdown,
	}

	return e.producer.PublishReviewEvent(ctx, event)
}

// EmitMatchRejected emits an event for a rejected candidate
func (e *Emitter) EmitMatchRejected(ctx context.Context, taskID string, candidate *models.MatchCandidate) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMatchRejected")
	defer span.End()

	event := &kafka.ReviewEvent{
		EventType:   string(EventTypeMatchRejected),
		TaskID:      taskID,
		CandidateID: candidate.ID,
		WikidataID:  candidate.WikidataID,
		Score:       candidate.Score,
	}

	return e.producer.PublishReviewEvent(ctx, event)
}

// EmitTaskResolved emits a pipeline event for a task that left processing
// without human review: auto confirmed, no candidates, or failed.
func (e *Emitter) EmitTaskResolved(ctx context.Context, eventType EventType, task *models.Task) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitTaskResolved")
	defer span.End()

	event := &kafka.ReviewEvent{
		EventType: string(eventType),
		ProjectID: task.ProjectID,
		TaskID:    task.ID,
	}
	if task.AcceptedWikidataID != nil {
		event.WikidataID = *task.AcceptedWikidataID
	}
	if task.HighestScore != nil {
		event.Score = *task.HighestScore
	}

	return e.producer.PublishReviewEvent(ctx, event)
}

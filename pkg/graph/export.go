package graph

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/tracing"
)

// ExportService projects accepted matches into the graph as
// (:Entry)-[:SAME_AS]->(:WikidataEntity) edges.
type ExportService struct {
	client *Client
	logger ectologger.Logger
}

// NewExportService creates a new export service
func NewExportService(client *Client, logger ectologger.Logger) *ExportService {
	return &ExportService{
		client: client,
		logger: logger,
	}
}

// SyncProject replaces the project's SAME_AS edges with the current set of
// accepted matches. Nodes are merged by stable keys so repeated exports
// never duplicate them.
func (s *ExportService) SyncProject(ctx context.Context, projectID string, matches []models.ApprovedMatch) error {
	ctx, span := tracing.StartSpan(ctx, "graph.ExportService.SyncProject")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"project_id": projectID,
		"matches":    len(matches),
	})

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		// Drop stale edges first; accepted sets shrink on rerun
		if _, err := tx.Run(ctx, `
			MATCH (:Entry)-[r:SAME_AS {project_id: $project_id}]->(:WikidataEntity)
			DELETE r
		`, map[string]any{"project_id": projectID}); err != nil {
			return nil, err
		}

		for _, m := range matches {
			if _, err := tx.Run(ctx, `
				MERGE (e:Entry {external_id: $external_id})
				SET e.display_name = $display_name
				MERGE (w:WikidataEntity {qid: $qid})
				MERGE (e)-[r:SAME_AS {project_id: $project_id}]->(w)
				SET r.score = $score, r.task_id = $task_id
			`, map[string]any{
				"external_id":  m.EntryExternalID,
				"display_name": m.EntryDisplayName,
				"qid":          m.WikidataID,
				"project_id":   projectID,
				"score":        m.Score,
				"task_id":      m.TaskID,
			}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		log.WithError(err).Error("Failed to sync project to graph")
		return fmt.Errorf("failed to sync project to graph: %w", err)
	}

	log.Info("Synced approved matches to graph")
	return nil
}

// RemoveProject deletes the project's SAME_AS edges and any nodes left
// orphaned by the removal.
func (s *ExportService) RemoveProject(ctx context.Context, projectID string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.ExportService.RemoveProject")
	defer span.End()

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
			MATCH (:Entry)-[r:SAME_AS {project_id: $project_id}]->(:WikidataEntity)
			DELETE r
		`, map[string]any{"project_id": projectID}); err != nil {
			return nil, err
		}
		if _, err := tx.Run(ctx, `
			MATCH (n)
			WHERE (n:Entry OR n:WikidataEntity) AND NOT (n)--()
			DELETE n
		`, nil); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"project_id": projectID}).Error("Failed to remove project from graph")
		return fmt.Errorf("failed to remove project from graph: %w", err)
	}

	return nil
}

// CountSameAs returns how many SAME_AS edges a project has in the graph
func (s *ExportService) CountSameAs(ctx context.Context, projectID string) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.ExportService.CountSameAs")
	defer span.End()

	res, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
			MATCH (:Entry)-[r:SAME_AS {project_id: $project_id}]->(:WikidataEntity)
			RETURN count(r) AS count
		`, map[string]any{"project_id": projectID})
		if err != nil {
			return nil, err
		}
		if !result.Next(ctx) {
			return int64(0), result.Err()
		}
		count, _ := result.Record().Get("count")
		return count, nil
	})
	if err != nil {
		return 0, err
	}
	count, _ := res.(int64)
	return count, nil
}

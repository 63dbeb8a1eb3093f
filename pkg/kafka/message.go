package kafka

import (
	"encoding/json"
	"time"

	"github.com/Ramsey-B/laurel/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Trace context (extracted from Kafka headers)
	TraceParent string
	TraceState  string

	// Parsed content
	SearchResult *models.SearchResultMessage
}

// ParseSearchResult parses the message value as a search result batch
func (m *IncomingMessage) ParseSearchResult() error {
	var msg models.SearchResultMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		return err
	}
	m.SearchResult = &msg
	return nil
}

// GetTaskID returns the task ID the search results belong to
func (m *IncomingMessage) GetTaskID() string {
	if m.SearchResult != nil {
		return m.SearchResult.TaskID
	}
	// Fallback to key; the search service keys messages by task
	return m.Key
}

// GetProjectID returns the project ID from the message or headers
func (m *IncomingMessage) GetProjectID() string {
	if m.SearchResult != nil && m.SearchResult.ProjectID != "" {
		return m.SearchResult.ProjectID
	}
	return m.Headers["project_id"]
}

// SearchCompletedMessage signals that the search service finished a whole
// project, used for pipeline coordination rather than scoring.
type SearchCompletedMessage struct {
	Type      string      `json:"type"` // "search.completed"
	ProjectID string      `json:"project_id"`
	Status    string      `json:"status"` // "success", "partial", "failed"
	Timestamp time.Time   `json:"timestamp"`
	Stats     SearchStats `json:"stats,omitempty"`
}

// SearchStats contains statistics about the search run
type SearchStats struct {
	TasksSearched  int   `json:"tasks_searched"`
	TasksFailed    int   `json:"tasks_failed"`
	EntitiesFound  int   `json:"entities_found"`
	DurationMillis int64 `json:"duration_ms"`
}

// IsSearchCompleted checks if the message is a search.completed event
func (m *IncomingMessage) IsSearchCompleted() bool {
	if msgType := m.Headers["type"]; msgType == "search.completed" {
		return true
	}

	var evt SearchCompletedMessage
	if err := json.Unmarshal(m.Value, &evt); err == nil {
		return evt.Type == "search.completed"
	}

	return false
}

// ParseSearchCompleted parses the message as a search.completed event
func (m *IncomingMessage) ParseSearchCompleted() (*SearchCompletedMessage, error) {
	var evt SearchCompletedMessage
	if err := json.Unmarshal(m.Value, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}

package events

import "time"

// EventType defines the type of event
type EventType string

const (
	// Review events
	EventTypeMatchAccepted EventType = "match.accepted"
	EventTypeMatchRejected EventType = "match.rejected"
	EventTypeTaskSkipped   EventType = "task.skipped"

	// Pipeline events
	EventTypeTaskAutoConfirmed EventType = "task.auto_confirmed"
	EventTypeTaskNoCandidates  EventType = "task.no_candidates"
	EventTypeTaskFailed        EventType = "task.failed"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	ProjectID     string    `json:"project_id"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

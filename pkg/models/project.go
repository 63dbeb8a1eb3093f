package models

import (
	"encoding/json"
	"time"
)

// ProjectStatus is the lifecycle state of a reconciliation project.
//
// State machine:
// draft -> active -> pending_search -> search_in_progress -> search_completed
//
//	-> pending_processing -> processing -> review_ready -> completed
//	                      -> processing_failed (retry -> processing)
//
// Any state -> archived
type ProjectStatus string

const (
	ProjectStatusDraft            ProjectStatus = "draft"
	ProjectStatusActive           ProjectStatus = "active"
	ProjectStatusPendingSearch    ProjectStatus = "pending_search"
	ProjectStatusSearchInProgress ProjectStatus = "search_in_progress"
	ProjectStatusSearchCompleted  ProjectStatus = "search_completed"
	ProjectStatusPendingProcess   ProjectStatus = "pending_processing"
	ProjectStatusProcessing       ProjectStatus = "processing"
	ProjectStatusProcessingFailed ProjectStatus = "processing_failed"
	ProjectStatusReviewReady      ProjectStatus = "review_ready"
	ProjectStatusCompleted        ProjectStatus = "completed"
	ProjectStatusArchived         ProjectStatus = "archived"
)

// IsValid reports whether the status is a known project state. Statuses are
// validated where external input enters the system, not by the database.
func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectStatusDraft, ProjectStatusActive, ProjectStatusPendingSearch,
		ProjectStatusSearchInProgress, ProjectStatusSearchCompleted,
		ProjectStatusPendingProcess, ProjectStatusProcessing,
		ProjectStatusProcessingFailed, ProjectStatusReviewReady,
		ProjectStatusCompleted, ProjectStatusArchived:
		return true
	}
	return false
}

// ProjectConfig holds per-project matching configuration overrides
// (stored as JSONB on the project row).
type ProjectConfig struct {
	TargetEntityTypes []string `json:"target_entity_types,omitempty"` // Wikidata instance-of filters (e.g. ["Q5"])
	MaxCandidates     int      `json:"max_candidates,omitempty"`      // Max candidates persisted per task
	Parallelism       int      `json:"parallelism,omitempty"`         // Hint for the scoring worker fan-out
	NameWeight        *float64 `json:"name_weight,omitempty"`
	DateWeight        *float64 `json:"date_weight,omitempty"`
	AutoAccept        *int     `json:"auto_accept_threshold,omitempty"`
}

// Project groups a batch of reconciliation work against one dataset
type Project struct {
	ID        string  `json:"id" db:"id"`
	DatasetID string  `json:"dataset_id" db:"dataset_id"`
	Name      string  `json:"name" db:"name"`
	Notes     *string `json:"notes,omitempty" db:"notes"`

	Status ProjectStatus `json:"status" db:"status"`

	// Denormalized task counters, maintained by the workflow layer
	TaskCount          int `json:"task_count" db:"task_count"`
	TasksCompleted     int `json:"tasks_completed" db:"tasks_completed"`
	TasksWithCandidate int `json:"tasks_with_candidates" db:"tasks_with_candidates"`

	Config json.RawMessage `json:"config,omitempty" db:"config"`

	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`

	Lifecycle
}

// CreateProjectRequest is the request body for creating a project
type CreateProjectRequest struct {
	DatasetID string          `json:"dataset_id" validate:"required,uuid4"`
	Name      string          `json:"name" validate:"required"`
	Notes     *string         `json:"notes,omitempty"`
	Config    json.RawMessage `json:"config,omitempty"`
}

// StartProjectRequest selects which dataset entries get tasks. Exactly one of
// EntryIDs or AllEntries must be provided.
type StartProjectRequest struct {
	EntryIDs   []string `json:"entry_ids,omitempty" validate:"omitempty,dive,uuid4"`
	AllEntries bool     `json:"all_entries,omitempty"`
}

// StartProjectResponse reports the outcome of bulk task generation
type StartProjectResponse struct {
	TasksCreated int           `json:"tasks_created"`
	Status       ProjectStatus `json:"status"`
}

// RerunTasksRequest selects tasks to reset for reprocessing. Exactly one of
// Criteria or TaskIDs must be provided.
type RerunTasksRequest struct {
	Criteria string   `json:"criteria,omitempty"`
	TaskIDs  []string `json:"task_ids,omitempty" validate:"omitempty,dive,uuid4"`
}

// RerunTasksResponse reports how many tasks were reset
type RerunTasksResponse struct {
	TasksReset int `json:"tasks_reset"`
}

// CandidateStats is the candidate portion of project statistics
type CandidateStats struct {
	Total    int `json:"total"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// ProjectStats is the on-the-fly statistics response for a project
type ProjectStats struct {
	TotalTasks      int            `json:"total_tasks"`
	ByStatus        map[string]int `json:"by_status"`
	Candidates      CandidateStats `json:"candidates"`
	AvgScore        *float64       `json:"avg_score"` // Accepted candidates only, 1-decimal; null if none accepted
	ProgressPercent float64        `json:"progress_percent"`
}

// ApprovedMatch is one row of the accepted-matches export for a project
type ApprovedMatch struct {
	TaskID           string `json:"task_id" db:"task_id"`
	EntryExternalID  string `json:"entry_external_id" db:"entry_external_id"`
	EntryDisplayName string `json:"entry_display_name" db:"entry_display_name"`
	WikidataID       string `json:"wikidata_id" db:"wikidata_id"`
	Score            int    `json:"score" db:"score"`
}

// ProjectListResponse is the response for listing projects
type ProjectListResponse struct {
	Items      []Project `json:"items"`
	TotalCount int       `json:"total_count"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
}

package models

import (
	"encoding/json"
	"time"
)

// TaskStatus is the processing state of a task.
//
// State machine:
// new -> queued_for_processing -> processing -> awaiting_review -> reviewed
//
//	-> no_candidates_found
//	-> failed (retry -> queued_for_processing)
//	-> auto_confirmed
//	-> knowledge_based
//
// awaiting_review -> skipped
type TaskStatus string

const (
	TaskStatusNew               TaskStatus = "new"
	TaskStatusQueued            TaskStatus = "queued_for_processing"
	TaskStatusProcessing        TaskStatus = "processing"
	TaskStatusFailed            TaskStatus = "failed"
	TaskStatusNoCandidatesFound TaskStatus = "no_candidates_found"
	TaskStatusAwaitingReview    TaskStatus = "awaiting_review"
	TaskStatusReviewed          TaskStatus = "reviewed"
	TaskStatusAutoConfirmed     TaskStatus = "auto_confirmed"
	TaskStatusSkipped           TaskStatus = "skipped"
	TaskStatusKnowledgeBased    TaskStatus = "knowledge_based"
)

// IsValid reports whether the status is a known task state.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusNew, TaskStatusQueued, TaskStatusProcessing, TaskStatusFailed,
		TaskStatusNoCandidatesFound, TaskStatusAwaitingReview, TaskStatusReviewed,
		TaskStatusAutoConfirmed, TaskStatusSkipped, TaskStatusKnowledgeBased:
		return true
	}
	return false
}

// RerunCriteria names a bulk task reset selection
type RerunCriteria string

const (
	RerunCriteriaFailed       RerunCriteria = "failed"
	RerunCriteriaNoCandidates RerunCriteria = "no_candidates"
	RerunCriteriaNoAccepted   RerunCriteria = "no_accepted"
)

// Task is one unit of work: match one dataset entry to Wikidata within a
// project. Unique per (project_id, dataset_entry_id); the database constraint
// is the authoritative guard against duplicates under concurrent starts.
type Task struct {
	ID             string `json:"id" db:"id"`
	ProjectID      string `json:"project_id" db:"project_id"`
	DatasetEntryID string `json:"dataset_entry_id" db:"dataset_entry_id"`

	Status TaskStatus `json:"status" db:"status"`

	// Accepted match, denormalized so list views and exports never join
	// through match_candidates
	AcceptedCandidateID *string `json:"accepted_candidate_id,omitempty" db:"accepted_candidate_id"`
	AcceptedWikidataID  *string `json:"accepted_wikidata_id,omitempty" db:"accepted_wikidata_id"`

	// Candidate summary, recomputed by the review service on every
	// candidate write
	CandidateCount int  `json:"candidate_count" db:"candidate_count"`
	HighestScore   *int `json:"highest_score,omitempty" db:"highest_score"`

	ProcessingStartedAt   *time.Time `json:"processing_started_at,omitempty" db:"processing_started_at"`
	ProcessingCompletedAt *time.Time `json:"processing_completed_at,omitempty" db:"processing_completed_at"`

	ReviewedAt *time.Time `json:"reviewed_at,omitempty" db:"reviewed_at"`
	Notes      *string    `json:"notes,omitempty" db:"notes"`

	ErrorMessage *string `json:"error_message,omitempty" db:"error_message"`

	ExtraData json.RawMessage `json:"extra_data,omitempty" db:"extra_data"`

	Lifecycle
}

// TaskFilter holds optional SQL-level filters for task listings
type TaskFilter struct {
	Status        *TaskStatus
	HasCandidates *bool
	HasAccepted   *bool
	MinScore      *int
}

// TaskListResponse is the response for listing tasks
type TaskListResponse struct {
	Items      []Task `json:"items"`
	TotalCount int    `json:"total_count"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
}

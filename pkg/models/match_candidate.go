package models

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// CandidateStatus is the decision state of a match candidate. Both decided
// states are terminal; re-deciding an already-decided candidate is a
// validation error, never a silent no-op.
type CandidateStatus string

const (
	CandidateStatusSuggested CandidateStatus = "suggested"
	CandidateStatusAccepted  CandidateStatus = "accepted"
	CandidateStatusRejected  CandidateStatus = "rejected"
)

// IsValid reports whether the status is a known candidate state.
func (s CandidateStatus) IsValid() bool {
	switch s {
	case CandidateStatusSuggested, CandidateStatusAccepted, CandidateStatusRejected:
		return true
	}
	return false
}

// CandidateSource records how a candidate was discovered
type CandidateSource string

const (
	CandidateSourceAutomatedSearch CandidateSource = "automated_search"
	CandidateSourceManual          CandidateSource = "manual"
	CandidateSourceFileImport      CandidateSource = "file_import"
	CandidateSourceAISuggestion    CandidateSource = "ai_suggestion"
	CandidateSourceKnowledgeBase   CandidateSource = "knowledge_base"
)

// IsValid reports whether the source is a known discovery channel.
func (s CandidateSource) IsValid() bool {
	switch s {
	case CandidateSourceAutomatedSearch, CandidateSourceManual, CandidateSourceFileImport,
		CandidateSourceAISuggestion, CandidateSourceKnowledgeBase:
		return true
	}
	return false
}

// MatchCandidate is a potential Wikidata match for a task.
//
// The same wikidata_id may appear multiple times for one task. Each row is a
// distinct discovery event and the duplication keeps the audit trail of how
// candidates were found.
type MatchCandidate struct {
	ID     string `json:"id" db:"id"`
	TaskID string `json:"task_id" db:"task_id"`

	// Just the QID; entity details are fetched fresh at display time
	WikidataID string `json:"wikidata_id" db:"wikidata_id"`

	Score  int             `json:"score" db:"score"` // 0-100
	Status CandidateStatus `json:"status" db:"status"`
	Source CandidateSource `json:"source" db:"source"`

	// Scoring evidence for review and debugging
	ScoreBreakdown    json.RawMessage `json:"score_breakdown,omitempty" db:"score_breakdown"`
	MatchedProperties json.RawMessage `json:"matched_properties,omitempty" db:"matched_properties"`

	Tags  pq.StringArray `json:"tags,omitempty" db:"tags"`
	Notes *string        `json:"notes,omitempty" db:"notes"`

	ReviewedAt *time.Time `json:"reviewed_at,omitempty" db:"reviewed_at"`

	Lifecycle
}

// CreateCandidateRequest is the request body for creating a candidate
type CreateCandidateRequest struct {
	TaskID            string          `json:"task_id" validate:"required,uuid4"`
	WikidataID        string          `json:"wikidata_id" validate:"required"`
	Score             int             `json:"score" validate:"gte=0,lte=100"`
	Source            CandidateSource `json:"source" validate:"required"`
	ScoreBreakdown    json.RawMessage `json:"score_breakdown,omitempty"`
	MatchedProperties json.RawMessage `json:"matched_properties,omitempty"`
	Tags              []string        `json:"tags,omitempty"`
}

// CandidatePatch is a partial update applied to one or many candidates.
// Nil fields are left untouched.
type CandidatePatch struct {
	Status *CandidateStatus `json:"status,omitempty"`
	Tags   []string         `json:"tags,omitempty"`
	Notes  *string          `json:"notes,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p CandidatePatch) IsEmpty() bool {
	return p.Status == nil && p.Tags == nil && p.Notes == nil
}

// BulkUpdateCandidatesRequest applies one patch to many candidates
type BulkUpdateCandidatesRequest struct {
	CandidateIDs []string       `json:"candidate_ids" validate:"required,min=1,dive,uuid4"`
	Patch        CandidatePatch `json:"patch"`
}

// AcceptCandidateResponse returns both records updated by an accept
type AcceptCandidateResponse struct {
	Candidate MatchCandidate `json:"candidate"`
	Task      Task           `json:"task"`
}

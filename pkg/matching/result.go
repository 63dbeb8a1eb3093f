package matching

// MatchType identifies which field a MatchScore was computed for
type MatchType string

const (
	MatchTypeName     MatchType = "name"
	MatchTypeDate     MatchType = "date"
	MatchTypeProperty MatchType = "property"
)

// Confidence is the review-priority tier derived from a composite score
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// MatchScore is the outcome of comparing one field pair. Details carries
// evidence for reviewers (what matched, against which value, or why the
// score is 0) and is persisted verbatim in the candidate's score breakdown.
type MatchScore struct {
	Type    MatchType      `json:"type"`
	Score   int            `json:"score"` // 0-100
	Weight  float64        `json:"weight"`
	Details map[string]any `json:"details,omitempty"`
}

// CompositeScore is the weighted aggregate over all field scores for one
// (entry, entity) pair.
type CompositeScore struct {
	TotalScore    int          `json:"total_score"` // 0-100
	Scores        []MatchScore `json:"scores"`
	Confidence    Confidence   `json:"confidence"`
	MatchedFields []string     `json:"matched_fields"`
}

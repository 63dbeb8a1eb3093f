package matching

import (
	"math"

	"github.com/Ramsey-B/laurel/pkg/models"
)

// WikidataPropertyDOB is the Wikidata property for date of birth
const WikidataPropertyDOB = "P569"

// ScoreCalculator combines the per-field matchers into one composite score
// for an (entry, entity) pair. It is pure: no I/O, safe for any number of
// concurrent callers.
type ScoreCalculator struct {
	settings Settings
	names    *NameMatcher
	dates    *DateMatcher
}

// NewScoreCalculator creates a new ScoreCalculator
func NewScoreCalculator(settings Settings) *ScoreCalculator {
	return &ScoreCalculator{
		settings: settings,
		names:    NewNameMatcher(settings),
		dates:    NewDateMatcher(settings),
	}
}

// Calculate scores an entry against one Wikidata entity. The name matcher
// runs only when both sides carry a name; the date matcher runs when either
// side has a birth-date-like value, so a one-sided date still contributes a
// weighted zero.
func (c *ScoreCalculator) Calculate(entry models.EntryData, entity *models.WikidataEntity) CompositeScore {
	result := CompositeScore{
		Confidence:    ConfidenceNone,
		MatchedFields: []string{},
	}
	if entity == nil {
		return result
	}

	entryName := entry.BestName()
	if entryName != "" && entity.Label != "" {
		score := c.names.Compare(entryName, entity.Label, entity.Aliases)
		result.Scores = append(result.Scores, score)
		if score.Score >= c.settings.NameFuzzyThreshold {
			result.MatchedFields = append(result.MatchedFields, "name")
		}
	}

	entryDOB := entry.BestBirthDate()
	entityDOB, _ := entity.ClaimTime(WikidataPropertyDOB)
	if entryDOB != "" || entityDOB != "" {
		score := c.dates.Compare(entryDOB, entityDOB)
		result.Scores = append(result.Scores, score)
		if score.Score > 0 {
			result.MatchedFields = append(result.MatchedFields, "dob")
		}
	}

	if len(result.Scores) == 0 {
		return result
	}

	var weightedSum, totalWeight float64
	for _, s := range result.Scores {
		weightedSum += float64(s.Score) * s.Weight
		totalWeight += s.Weight
	}
	if totalWeight > 0 {
		result.TotalScore = int(math.Round(weightedSum / totalWeight))
	}

	result.Confidence = c.confidence(result.TotalScore, len(result.MatchedFields))
	return result
}

// confidence tiers a composite score for review prioritization. In the band
// between the high confidence and auto accept thresholds a single matched
// field is only worth medium confidence.
func (c *ScoreCalculator) confidence(totalScore, matchedFields int) Confidence {
	switch {
	case totalScore >= c.settings.AutoAcceptThreshold:
		return ConfidenceHigh
	case totalScore >= c.settings.HighConfidenceThreshold:
		if matchedFields >= 2 {
			return ConfidenceHigh
		}
		return ConfidenceMedium
	case totalScore >= c.settings.LowConfidenceThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

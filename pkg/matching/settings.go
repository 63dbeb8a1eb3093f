// Package matching implements the scoring engine that compares dataset
// entries against Wikidata entities: per-field matchers plus a weighted
// composite calculator.
package matching

// Settings contains all thresholds and weights for the scoring engine.
// Constructed once at startup and passed down explicitly; nothing in this
// package reads the environment.
type Settings struct {
	AutoAcceptThreshold     int // Composite score at or above which a match may be auto-confirmed (default: 95)
	HighConfidenceThreshold int // Lower bound of the high confidence tier (default: 80)
	LowConfidenceThreshold  int // Lower bound of the medium confidence tier (default: 50)

	NameWeight     float64 // Weight of the name score in the composite (default: 0.5)
	DateWeight     float64 // Weight of the date score (default: 0.3)
	PropertyWeight float64 // Weight of the property score (default: 0.2)

	NameExactScore     int // Score for an exact or alias name match (default: 100)
	NameFuzzyThreshold int // Minimum fuzzy score to count as a name match (default: 70)

	DateExactScore    int // Score for a same-day date match (default: 100)
	DateYearOnlyScore int // Score when only the year agrees (default: 80)
	DateToleranceDays int // Max day difference still scored as close (default: 3)
}

// DefaultSettings returns the production defaults
func DefaultSettings() Settings {
	return Settings{
		AutoAcceptThreshold:     95,
		HighConfidenceThreshold: 80,
		LowConfidenceThreshold:  50,
		NameWeight:              0.5,
		DateWeight:              0.3,
		PropertyWeight:          0.2,
		NameExactScore:          100,
		NameFuzzyThreshold:      70,
		DateExactScore:          100,
		DateYearOnlyScore:       80,
		DateToleranceDays:       3,
	}
}

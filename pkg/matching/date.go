package matching

import (
	"strconv"
	"strings"
	"time"
)

// DateMatcher compares birth-date-like values. Either side may be a
// time.Time or one of the string encodings produced by external sources,
// including Wikidata's "+YYYY-MM-DDTHH:MM:SSZ" form and bare years.
type DateMatcher struct {
	settings Settings
}

// NewDateMatcher creates a new DateMatcher
func NewDateMatcher(settings Settings) *DateMatcher {
	return &DateMatcher{settings: settings}
}

// Compare scores two date values. Exact day match scores full, near misses
// decay 5 points per day down to the year-only score, a bare year agreement
// scores year-only, anything else scores 0.
func (m *DateMatcher) Compare(sourceDate, targetDate any) MatchScore {
	result := MatchScore{
		Type:   MatchTypeDate,
		Weight: m.settings.DateWeight,
	}

	if isMissingDate(sourceDate) || isMissingDate(targetDate) {
		result.Details = map[string]any{"reason": "missing_date"}
		return result
	}

	source, okA := coerceDate(sourceDate)
	target, okB := coerceDate(targetDate)
	if !okA || !okB {
		result.Details = map[string]any{"reason": "invalid_date_format"}
		return result
	}

	if source.Equal(target) {
		result.Score = m.settings.DateExactScore
		result.Details = map[string]any{"matched": "exact"}
		return result
	}

	diffDays := int(target.Sub(source).Hours() / 24)
	if diffDays < 0 {
		diffDays = -diffDays
	}

	if diffDays <= m.settings.DateToleranceDays {
		score := m.settings.DateExactScore - 5*diffDays
		if score < m.settings.DateYearOnlyScore {
			score = m.settings.DateYearOnlyScore
		}
		result.Score = score
		result.Details = map[string]any{"matched": "close", "diff_days": diffDays}
		return result
	}

	if source.Year() == target.Year() {
		result.Score = m.settings.DateYearOnlyScore
		result.Details = map[string]any{"matched": "year_only"}
		return result
	}

	diffYears := source.Year() - target.Year()
	if diffYears < 0 {
		diffYears = -diffYears
	}
	result.Details = map[string]any{"matched": "none", "diff_years": diffYears}
	return result
}

func isMissingDate(v any) bool {
	switch d := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(d) == ""
	case time.Time:
		return d.IsZero()
	case *time.Time:
		return d == nil || d.IsZero()
	}
	return false
}

// coerceDate normalizes the supported input shapes to a UTC calendar day
func coerceDate(v any) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), true
	case *time.Time:
		if d == nil {
			return time.Time{}, false
		}
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), true
	case string:
		return parseDateString(d)
	}
	return time.Time{}, false
}

// parseDateString tries the supported string encodings in order:
// "YYYY-MM-DD", "YYYY-MM-DDTHH:MM:SSZ", the first 10 characters as a date,
// and finally the first 4 characters as a bare year. Wikidata times arrive
// with a leading "+" which is stripped first.
func parseDateString(s string) (time.Time, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "+"))
	if s == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02T15:04:05Z", s); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	if len(s) >= 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t, true
		}
	}
	// Year-precision values like "1952-00-00T00:00:00Z" land here
	if len(s) >= 4 {
		if year, err := strconv.Atoi(s[:4]); err == nil && year >= 1 && year <= 9999 {
			return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateMatcher_Compare(t *testing.T) {
	matcher := NewDateMatcher(DefaultSettings())

	t.Run("exact match across encodings", func(t *testing.T) {
		score := matcher.Compare("1952-03-11", "+1952-03-11T00:00:00Z")
		assert.Equal(t, 100, score.Score)
		assert.Equal(t, "exact", score.Details["matched"])
	})

	t.Run("one day apart within tolerance", func(t *testing.T) {
		score := matcher.Compare("1952-03-11", "+1952-03-12T00:00:00Z")
		assert.Equal(t, 95, score.Score)
		assert.Equal(t, "close", score.Details["matched"])
		assert.Equal(t, 1, score.Details["diff_days"])
	})

	t.Run("three days apart stays above year floor", func(t *testing.T) {
		score := matcher.Compare("1952-03-11", "1952-03-14")
		assert.Equal(t, 85, score.Score)
	})

	t.Run("same year beyond tolerance", func(t *testing.T) {
		score := matcher.Compare("1952-03-11", "1952-09-01")
		assert.Equal(t, 80, score.Score)
		assert.Equal(t, "year_only", score.Details["matched"])
	})

	t.Run("year precision value falls back to year match", func(t *testing.T) {
		score := matcher.Compare("1952-03-11", "+1952-00-00T00:00:00Z")
		assert.Equal(t, 80, score.Score)
	})

	t.Run("different years", func(t *testing.T) {
		score := matcher.Compare("1952-03-11", "1960-03-11")
		assert.Equal(t, 0, score.Score)
		assert.Equal(t, "none", score.Details["matched"])
		assert.Equal(t, 8, score.Details["diff_years"])
	})

	t.Run("missing date on either side", func(t *testing.T) {
		score := matcher.Compare("", "1952-03-11")
		assert.Equal(t, 0, score.Score)
		assert.Equal(t, "missing_date", score.Details["reason"])

		score = matcher.Compare("1952-03-11", nil)
		assert.Equal(t, "missing_date", score.Details["reason"])
	})

	t.Run("unparseable date", func(t *testing.T) {
		score := matcher.Compare("circa 1950", "1952-03-11")
		assert.Equal(t, 0, score.Score)
		assert.Equal(t, "invalid_date_format", score.Details["reason"])
	})

	t.Run("structured time input", func(t *testing.T) {
		dob := time.Date(1952, time.March, 11, 14, 30, 0, 0, time.UTC)
		score := matcher.Compare(dob, "1952-03-11")
		assert.Equal(t, 100, score.Score)
	})

	t.Run("timestamp keeps date part only", func(t *testing.T) {
		score := matcher.Compare("1952-03-11T23:59:59Z", "1952-03-11")
		assert.Equal(t, 100, score.Score)
	})
}

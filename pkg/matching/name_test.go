package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameMatcher_Compare(t *testing.T) {
	matcher := NewNameMatcher(DefaultSettings())

	t.Run("exact label match ignores case", func(t *testing.T) {
		score := matcher.Compare("Douglas Adams", "douglas adams", nil)
		assert.Equal(t, 100, score.Score)
		assert.Equal(t, "exact", score.Details["matched"])
		assert.Equal(t, "label", score.Details["against"])
	})

	t.Run("exact alias match", func(t *testing.T) {
		score := matcher.Compare("Douglas Noël Adams", "Douglas Adams", []string{"Douglas Noël Adams"})
		assert.Equal(t, 100, score.Score)
		assert.Equal(t, "exact", score.Details["matched"])
		assert.Equal(t, "alias:Douglas Noël Adams", score.Details["against"])
	})

	t.Run("reversed comma form scores as fuzzy match", func(t *testing.T) {
		score := matcher.Compare("Adams, Douglas", "Douglas Adams", nil)
		assert.GreaterOrEqual(t, score.Score, 80)
		assert.Equal(t, "fuzzy", score.Details["matched"])
	})

	t.Run("missing source name", func(t *testing.T) {
		score := matcher.Compare("  ", "Douglas Adams", nil)
		assert.Equal(t, 0, score.Score)
		assert.Equal(t, "missing_name", score.Details["reason"])
	})

	t.Run("missing target label", func(t *testing.T) {
		score := matcher.Compare("Douglas Adams", "", []string{"alias"})
		assert.Equal(t, 0, score.Score)
		assert.Equal(t, "missing_name", score.Details["reason"])
	})

	t.Run("low fuzzy score is returned, not zeroed", func(t *testing.T) {
		score := matcher.Compare("Terry Pratchett", "Douglas Adams", nil)
		assert.Equal(t, "fuzzy", score.Details["matched"])
		assert.Less(t, score.Score, DefaultSettings().NameFuzzyThreshold)
		assert.Greater(t, score.Score, 0)
	})

	t.Run("punctuation difference is fuzzy, not exact", func(t *testing.T) {
		score := matcher.Compare("J.R. Smith", "JR Smith", nil)
		assert.Equal(t, "fuzzy", score.Details["matched"])
		assert.Less(t, score.Score, 100)
		assert.GreaterOrEqual(t, score.Score, DefaultSettings().NameFuzzyThreshold)
	})

	t.Run("generational suffix difference is fuzzy, not exact", func(t *testing.T) {
		score := matcher.Compare("Martin Luther King Jr", "Martin Luther King", nil)
		assert.Equal(t, "fuzzy", score.Details["matched"])
	})

	t.Run("best alias wins over label", func(t *testing.T) {
		score := matcher.Compare("Dug Adams", "Douglas Noel Adams", []string{"Doug Adams"})
		assert.Equal(t, "fuzzy", score.Details["matched"])
		assert.Equal(t, "alias:Doug Adams", score.Details["against"])
	})

	t.Run("weight comes from settings", func(t *testing.T) {
		score := matcher.Compare("a", "a", nil)
		assert.Equal(t, DefaultSettings().NameWeight, score.Weight)
	})
}

package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScorer_Ratio(t *testing.T) {
	scorer := NewScorer()

	t.Run("identical strings", func(t *testing.T) {
		assert.Equal(t, 100, scorer.Ratio("douglas adams", "douglas adams"))
	})

	t.Run("empty strings", func(t *testing.T) {
		assert.Equal(t, 100, scorer.Ratio("", ""))
	})

	t.Run("transposition", func(t *testing.T) {
		// distance 2 over length 6
		assert.Equal(t, 66, scorer.Ratio("martha", "marhta"))
	})

	t.Run("completely different", func(t *testing.T) {
		assert.Equal(t, 0, scorer.Ratio("abc", "xyz"))
	})
}

func TestScorer_TokenSetRatio(t *testing.T) {
	scorer := NewScorer()

	t.Run("reordered tokens with punctuation", func(t *testing.T) {
		assert.Equal(t, 100, scorer.TokenSetRatio("adams, douglas", "douglas adams"))
	})

	t.Run("subset of tokens", func(t *testing.T) {
		assert.Equal(t, 100, scorer.TokenSetRatio("douglas adams", "douglas noel adams"))
	})

	t.Run("one side empty", func(t *testing.T) {
		assert.Equal(t, 0, scorer.TokenSetRatio("douglas", ""))
	})

	t.Run("disjoint tokens score low", func(t *testing.T) {
		assert.Less(t, scorer.TokenSetRatio("alice smith", "bob jones"), 50)
	})
}

func TestScorer_PartialRatio(t *testing.T) {
	scorer := NewScorer()

	t.Run("substring match", func(t *testing.T) {
		assert.Equal(t, 100, scorer.PartialRatio("adams", "douglas adams"))
	})

	t.Run("no overlap", func(t *testing.T) {
		assert.Equal(t, 0, scorer.PartialRatio("zzz", "douglas adams"))
	})

	t.Run("empty shorter side", func(t *testing.T) {
		assert.Equal(t, 0, scorer.PartialRatio("", "douglas"))
	})
}

func TestScorer_LevenshteinDistance(t *testing.T) {
	scorer := NewScorer()

	tests := []struct {
		name     string
		a, b     string
		expected int
	}{
		{"identical", "kitten", "kitten", 0},
		{"classic", "kitten", "sitting", 3},
		{"empty left", "", "abc", 3},
		{"empty right", "abc", "", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, scorer.LevenshteinDistance(tt.a, tt.b))
		})
	}
}

package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	t.Run("lowercases and trims", func(t *testing.T) {
		assert.Equal(t, "douglas adams", Name("  Douglas ADAMS "))
	})

	t.Run("keeps punctuation", func(t *testing.T) {
		assert.Equal(t, "o'connor, flannery", Name("O'Connor, Flannery"))
	})

	t.Run("keeps generational suffixes", func(t *testing.T) {
		assert.Equal(t, "sammy davis jr.", Name("Sammy Davis Jr."))
	})

	t.Run("keeps internal whitespace", func(t *testing.T) {
		assert.Equal(t, "douglas   adams", Name("Douglas   Adams"))
	})

	t.Run("keeps diacritics", func(t *testing.T) {
		assert.Equal(t, "douglas noël adams", Name("Douglas Noël Adams"))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "", Name("   "))
	})
}

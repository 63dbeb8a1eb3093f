package matching

import (
	"sort"
	"strings"
	"unicode"
)

// Scorer provides the string similarity algorithms used by the matchers.
// All ratios are integers in [0, 100].
type Scorer struct{}

// NewScorer creates a new Scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Ratio calculates character-level similarity between two strings based on
// edit distance. 100 means identical.
func (s *Scorer) Ratio(a, b string) int {
	if a == b {
		return 100
	}
	maxLen := max(len(a), len(b))
	if maxLen == 0 {
		return 100
	}
	distance := s.LevenshteinDistance(a, b)
	return int((1.0 - float64(distance)/float64(maxLen)) * 100)
}

// PartialRatio calculates the best Ratio of the shorter string against every
// equal-length window of the longer string, so a substring match like
// "douglas adams" inside "douglas noel adams" still scores high.
func (s *Scorer) PartialRatio(a, b string) int {
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) == 0 {
		if len(longer) == 0 {
			return 100
		}
		return 0
	}

	best := 0
	for i := 0; i+len(shorter) <= len(longer); i++ {
		window := longer[i : i+len(shorter)]
		if score := s.Ratio(shorter, window); score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

// TokenSetRatio tokenizes both strings and compares the sorted token
// intersection against each side's leftovers. Word order and duplicate
// tokens do not affect the result, so "Adams, Douglas" scores 100
// against "Douglas Adams".
func (s *Scorer) TokenSetRatio(a, b string) int {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)

	if len(tokensA) == 0 || len(tokensB) == 0 {
		if len(tokensA) == 0 && len(tokensB) == 0 {
			return 100
		}
		return 0
	}

	var common, onlyA, onlyB []string
	for tok := range tokensA {
		if _, ok := tokensB[tok]; ok {
			common = append(common, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range tokensB {
		if _, ok := tokensA[tok]; !ok {
			onlyB = append(onlyB, tok)
		}
	}

	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	base := strings.Join(common, " ")
	combinedA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	combinedB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	best := s.Ratio(combinedA, combinedB)
	if score := s.Ratio(base, combinedA); score > best {
		best = score
	}
	if score := s.Ratio(base, combinedB); score > best {
		best = score
	}
	return best
}

// BestFuzzyScore returns the best of the three fuzzy strategies for a pair
// of already-normalized strings.
func (s *Scorer) BestFuzzyScore(a, b string) int {
	best := s.Ratio(a, b)
	if score := s.TokenSetRatio(a, b); score > best {
		best = score
	}
	if score := s.PartialRatio(a, b); score > best {
		best = score
	}
	return best
}

// LevenshteinDistance calculates the edit distance between two strings
func (s *Scorer) LevenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Create two rows for dynamic programming
	row := make([]int, len(b)+1)
	prevRow := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prevRow[j] = j
	}

	for i := 1; i <= len(a); i++ {
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			row[j] = min(min(row[j-1]+1, prevRow[j]+1), prevRow[j-1]+cost)
		}
		row, prevRow = prevRow, row
	}

	return prevRow[len(b)]
}

// tokenSet splits a string into its unique word tokens, dropping punctuation
func tokenSet(s string) map[string]struct{} {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

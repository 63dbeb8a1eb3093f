package matching

import (
	"strings"

	"github.com/Ramsey-B/laurel/pkg/normalizers"
)

// NameMatcher compares an entry's name against an entity's label and aliases
type NameMatcher struct {
	settings Settings
	scorer   *Scorer
}

// NewNameMatcher creates a new NameMatcher
func NewNameMatcher(settings Settings) *NameMatcher {
	return &NameMatcher{
		settings: settings,
		scorer:   NewScorer(),
	}
}

// Compare scores sourceName against the target label and aliases. Both
// sides are normalized first (trimmed and lowercased). Exact matches
// post-normalization win outright; otherwise the
// best of the fuzzy strategies across label and aliases is returned, even
// when it is below the fuzzy threshold.
func (m *NameMatcher) Compare(sourceName, targetLabel string, targetAliases []string) MatchScore {
	result := MatchScore{
		Type:   MatchTypeName,
		Weight: m.settings.NameWeight,
	}

	if strings.TrimSpace(sourceName) == "" || strings.TrimSpace(targetLabel) == "" {
		result.Details = map[string]any{"reason": "missing_name"}
		return result
	}

	source := normalizers.Name(sourceName)
	label := normalizers.Name(targetLabel)

	if source == label {
		result.Score = m.settings.NameExactScore
		result.Details = map[string]any{"matched": "exact", "against": "label"}
		return result
	}

	// First alias hit wins
	for _, alias := range targetAliases {
		if source == normalizers.Name(alias) {
			result.Score = m.settings.NameExactScore
			result.Details = map[string]any{"matched": "exact", "against": "alias:" + alias}
			return result
		}
	}

	best := m.scorer.BestFuzzyScore(source, label)
	bestAgainst := "label"
	for _, alias := range targetAliases {
		if score := m.scorer.BestFuzzyScore(source, normalizers.Name(alias)); score > best {
			best = score
			bestAgainst = "alias:" + alias
		}
	}

	result.Score = best
	result.Details = map[string]any{
		"matched":     "fuzzy",
		"against":     bestAgainst,
		"fuzzy_score": best,
	}
	return result
}

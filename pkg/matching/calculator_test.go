package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/laurel/pkg/models"
)

func entityWithDOB(label, dob string, aliases ...string) *models.WikidataEntity {
	entity := &models.WikidataEntity{
		ID:      "Q42",
		Label:   label,
		Aliases: aliases,
	}
	if dob != "" {
		entity.Claims = map[string][]models.Claim{
			WikidataPropertyDOB: {{
				MainSnak: models.Snak{DataValue: models.DataValue{Value: models.ClaimValue{Time: dob}}},
			}},
		}
	}
	return entity
}

func TestScoreCalculator_Calculate(t *testing.T) {
	calc := NewScoreCalculator(DefaultSettings())

	t.Run("exact name and exact date auto-accept tier", func(t *testing.T) {
		entry := models.EntryData{Name: "Douglas Adams", DOB: "1952-03-11"}
		result := calc.Calculate(entry, entityWithDOB("Douglas Adams", "+1952-03-11T00:00:00Z"))

		// (100*0.5 + 100*0.3) / 0.8
		assert.Equal(t, 100, result.TotalScore)
		assert.Equal(t, ConfidenceHigh, result.Confidence)
		assert.ElementsMatch(t, []string{"name", "dob"}, result.MatchedFields)
	})

	t.Run("exact name with year-only date rounds up", func(t *testing.T) {
		entry := models.EntryData{Name: "Douglas Adams", DOB: "1952-09-01"}
		result := calc.Calculate(entry, entityWithDOB("Douglas Adams", "+1952-03-11T00:00:00Z"))

		// (100*0.5 + 80*0.3) / 0.8 = 92.5
		assert.Equal(t, 93, result.TotalScore)
		assert.Equal(t, ConfidenceHigh, result.Confidence)
		assert.Len(t, result.MatchedFields, 2)
	})

	t.Run("one-sided date contributes weighted zero", func(t *testing.T) {
		entry := models.EntryData{Name: "Douglas Adams", DOB: "1952-03-11"}
		result := calc.Calculate(entry, entityWithDOB("Douglas Adams", ""))

		// (100*0.5 + 0*0.3) / 0.8 = 62.5
		assert.Equal(t, 63, result.TotalScore)
		assert.Equal(t, ConfidenceMedium, result.Confidence)
		assert.Equal(t, []string{"name"}, result.MatchedFields)
	})

	t.Run("name only, no date anywhere", func(t *testing.T) {
		entry := models.EntryData{Name: "Douglas Adams"}
		result := calc.Calculate(entry, entityWithDOB("Douglas Adams", ""))

		assert.Equal(t, 100, result.TotalScore)
		assert.Len(t, result.Scores, 1)
		assert.Equal(t, ConfidenceHigh, result.Confidence)
	})

	t.Run("high band with single matched field is medium", func(t *testing.T) {
		entry := models.EntryData{Name: "Duglas Adams"}
		result := calc.Calculate(entry, entityWithDOB("Douglas Adams", ""))

		assert.GreaterOrEqual(t, result.TotalScore, 80)
		assert.Less(t, result.TotalScore, 95)
		assert.Equal(t, []string{"name"}, result.MatchedFields)
		assert.Equal(t, ConfidenceMedium, result.Confidence)
	})

	t.Run("display name and date_of_birth fallbacks", func(t *testing.T) {
		entry := models.EntryData{DisplayName: "Douglas Adams", DateOfBirth: "1952-03-11"}
		result := calc.Calculate(entry, entityWithDOB("Douglas Adams", "+1952-03-11T00:00:00Z"))

		assert.Equal(t, 100, result.TotalScore)
	})

	t.Run("no comparable data", func(t *testing.T) {
		result := calc.Calculate(models.EntryData{}, &models.WikidataEntity{ID: "Q42"})

		assert.Equal(t, 0, result.TotalScore)
		assert.Equal(t, ConfidenceNone, result.Confidence)
		assert.Empty(t, result.MatchedFields)
		assert.Empty(t, result.Scores)
	})

	t.Run("nil entity", func(t *testing.T) {
		result := calc.Calculate(models.EntryData{Name: "Douglas Adams"}, nil)
		assert.Equal(t, ConfidenceNone, result.Confidence)
	})

	t.Run("unrelated name scores low", func(t *testing.T) {
		entry := models.EntryData{Name: "Terry Pratchett", DOB: "1948-04-28"}
		result := calc.Calculate(entry, entityWithDOB("Douglas Adams", "+1952-03-11T00:00:00Z"))

		assert.Less(t, result.TotalScore, 50)
		assert.Equal(t, ConfidenceLow, result.Confidence)
		assert.Empty(t, result.MatchedFields)
	})

	t.Run("zero weights guard", func(t *testing.T) {
		settings := DefaultSettings()
		settings.NameWeight = 0
		settings.DateWeight = 0
		zeroCalc := NewScoreCalculator(settings)

		entry := models.EntryData{Name: "Douglas Adams", DOB: "1952-03-11"}
		result := zeroCalc.Calculate(entry, entityWithDOB("Douglas Adams", "+1952-03-11T00:00:00Z"))
		assert.Equal(t, 0, result.TotalScore)
	})
}

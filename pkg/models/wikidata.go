package models

import "time"

// WikidataEntity is the shape of a knowledge-base entity as delivered by the
// external search client. Claims are kept loosely typed because Wikidata's
// claim envelope is deeply nested and mostly irrelevant here; ClaimTime is
// the single supported access path.
type WikidataEntity struct {
	ID          string             `json:"id,omitempty"`
	Label       string             `json:"label"`
	Description string             `json:"description,omitempty"`
	Aliases     []string           `json:"aliases,omitempty"`
	Claims      map[string][]Claim `json:"claims,omitempty"`
}

// Claim is one statement about an entity
type Claim struct {
	MainSnak Snak `json:"mainsnak"`
}

// Snak is the value envelope of a claim
type Snak struct {
	DataValue DataValue `json:"datavalue"`
}

// DataValue holds the claim's actual value
type DataValue struct {
	Value ClaimValue `json:"value"`
}

// ClaimValue carries the fields laurel reads from claim values
type ClaimValue struct {
	Time string `json:"time,omitempty"` // Wikidata time format, e.g. "+1952-03-11T00:00:00Z"
}

// SearchResultMessage is one batch of knowledge-base entities the search
// service found for a task, consumed by the scoring pipeline.
type SearchResultMessage struct {
	TaskID     string           `json:"task_id"`
	ProjectID  string           `json:"project_id"`
	Query      string           `json:"query,omitempty"`
	Entities   []WikidataEntity `json:"entities"`
	SearchedAt time.Time        `json:"searched_at,omitempty"`
}

// ClaimTime extracts the time value of the first claim for a property.
// Any structural gap along claims[pid][0].mainsnak.datavalue.value.time is
// "no value", never an error.
func (e *WikidataEntity) ClaimTime(propertyID string) (string, bool) {
	if e == nil || len(e.Claims) == 0 {
		return "", false
	}
	claims, ok := e.Claims[propertyID]
	if !ok || len(claims) == 0 {
		return "", false
	}
	t := claims[0].MainSnak.DataValue.Value.Time
	if t == "" {
		return "", false
	}
	return t, true
}

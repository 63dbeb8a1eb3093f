package models

import "encoding/json"

// DatasetSourceType records how dataset data was obtained
type DatasetSourceType string

const (
	DatasetSourceWebScrape  DatasetSourceType = "web_scrape"
	DatasetSourceAPI        DatasetSourceType = "api"
	DatasetSourceFileImport DatasetSourceType = "file_import"
	DatasetSourceManual     DatasetSourceType = "manual"
)

// Dataset is a batch of source records imported from one external system
type Dataset struct {
	ID          string            `json:"id" db:"id"`
	Name        string            `json:"name" db:"name"`
	Description *string           `json:"description,omitempty" db:"description"`
	SourceType  DatasetSourceType `json:"source_type" db:"source_type"`
	SourceURL   *string           `json:"source_url,omitempty" db:"source_url"`
	EntryCount  int               `json:"entry_count" db:"entry_count"`

	Lifecycle
}

// DatasetEntry is one source record to be reconciled against Wikidata
type DatasetEntry struct {
	ID          string  `json:"id" db:"id"`
	DatasetID   string  `json:"dataset_id" db:"dataset_id"`
	ExternalID  string  `json:"external_id" db:"external_id"`
	DisplayName string  `json:"display_name" db:"display_name"`
	Name        *string `json:"name,omitempty" db:"name"`
	DateOfBirth *string `json:"date_of_birth,omitempty" db:"date_of_birth"`

	// Heterogeneous per-source fields as raw JSON; typed properties live
	// in entry_properties
	Data json.RawMessage `json:"data,omitempty" db:"data"`

	// Hash of Data, used to skip unchanged rows on re-import
	Fingerprint string `json:"fingerprint,omitempty" db:"fingerprint"`

	Lifecycle
}

// CreateDatasetRequest is the request body for creating a dataset
type CreateDatasetRequest struct {
	Name        string            `json:"name" validate:"required"`
	Description *string           `json:"description,omitempty"`
	SourceType  DatasetSourceType `json:"source_type" validate:"required"`
	SourceURL   *string           `json:"source_url,omitempty"`
}

// ImportEntry is one record in a bulk entry import
type ImportEntry struct {
	ExternalID  string          `json:"external_id" validate:"required"`
	DisplayName string          `json:"display_name" validate:"required"`
	Name        *string         `json:"name,omitempty"`
	DateOfBirth *string         `json:"date_of_birth,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	Properties  []EntryProperty `json:"properties,omitempty"`
}

// ImportEntriesRequest bulk imports entries into a dataset
type ImportEntriesRequest struct {
	Entries []ImportEntry `json:"entries" validate:"required,min=1,dive"`
}

// ImportEntriesResponse reports the outcome of a bulk entry import
type ImportEntriesResponse struct {
	EntriesImported int `json:"entries_imported"`
	EntryCount      int `json:"entry_count"`
}

// DatasetEntryListResponse is the response for listing dataset entries
type DatasetEntryListResponse struct {
	Items      []DatasetEntry `json:"items"`
	TotalCount int            `json:"total_count"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
}

// EntryData is the flattened entry shape handed to the score calculator.
// Name falls back to DisplayName, DOB falls back to DateOfBirth.
type EntryData struct {
	Name        string          `json:"name,omitempty"`
	DisplayName string          `json:"display_name,omitempty"`
	DOB         string          `json:"dob,omitempty"`
	DateOfBirth string          `json:"date_of_birth,omitempty"`
	Properties  []EntryProperty `json:"properties,omitempty"`
}

// BestName resolves the entry's name with the documented fallback order.
func (d EntryData) BestName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.DisplayName
}

// BestBirthDate resolves the entry's birth-date-like field with the
// documented fallback order.
func (d EntryData) BestBirthDate() string {
	if d.DOB != "" {
		return d.DOB
	}
	return d.DateOfBirth
}

// EntryProperty is one typed (property, value, confidence) tuple from the
// EAV table. Values are stored as text; DataType is a rendering hint.
type EntryProperty struct {
	ID         string   `json:"id,omitempty" db:"id"`
	EntryID    string   `json:"entry_id,omitempty" db:"entry_id"`
	PropertyID string   `json:"property_id" db:"property_id"` // Wikidata PID, e.g. "P569"
	Value      string   `json:"value" db:"value"`
	DataType   string   `json:"data_type,omitempty" db:"data_type"`
	Confidence *float64 `json:"confidence,omitempty" db:"confidence"`
}

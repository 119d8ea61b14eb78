package analyses

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when no record exists for an analysis ID.
var ErrNotFound = errors.New("analysis not found")

// ErrInvalidInput marks caller mistakes (missing file, empty name).
var ErrInvalidInput = errors.New("invalid input")

// ErrNoUsableData is returned when normalization leaves zero rows or columns.
var ErrNoUsableData = errors.New("CSV processing resulted in no usable data")

// ErrMissingRawPath is returned when a record has no raw CSV storage path.
var ErrMissingRawPath = errors.New("raw CSV storage path missing")

// RecordError is the structured failure recorded next to an error status.
// Status stays a pure state-machine discriminator; the kind/message pair
// carries the diagnostic.
type RecordError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// AnalysisRecord is one uploaded CSV and everything derived from it.
type AnalysisRecord struct {
	AnalysisID            string           `json:"analysisId"`
	AnalysisName          string           `json:"analysisName"`
	OriginalFileName      string           `json:"originalFileName"`
	RawCSVStoragePath     string           `json:"rawCsvStoragePath"`
	CleanedCSVStoragePath string           `json:"cleanedCsvStoragePath,omitempty"`
	Status                Status           `json:"status"`
	RowCount              int              `json:"rowCount"`
	ColumnCount           int              `json:"columnCount"`
	DataSummary           json.RawMessage  `json:"dataSummaryForPrompts,omitempty"`
	DataNatureDescription string           `json:"dataNatureDescription,omitempty"`
	SmallDatasetRawData   []map[string]any `json:"smallDatasetRawData,omitempty"`
	LastError             *RecordError     `json:"lastError,omitempty"`
	CreatedAt             time.Time        `json:"createdAt"`
	LastUpdatedAt         time.Time        `json:"lastUpdatedAt"`
}

// SummaryUpdate carries everything Phase 2 persists in one step.
type SummaryUpdate struct {
	CleanedCSVStoragePath string
	DataSummary           json.RawMessage
	RowCount              int
	ColumnCount           int
	SmallDatasetRawData   []map[string]any
}

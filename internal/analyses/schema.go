package analyses

import (
	"encoding/json"

	"datachat-backend/internal/llm"
)

// ColumnSummary describes one column of the dataset as reported by the AI.
type ColumnSummary struct {
	Name         string         `json:"name"`
	InferredType string         `json:"inferredType"`
	Stats        map[string]any `json:"stats"`
	Description  string         `json:"description"`
}

// RowInsight is one notable row called out by the AI.
type RowInsight struct {
	RowIndexOrIdentifier any      `json:"rowIndexOrIdentifier"`
	Observation          string   `json:"observation"`
	RelevantColumns      []string `json:"relevantColumns"`
}

// DataSummary is the structured summary the AI produces in Phase 2. It is
// validated for shape once, then stored and passed around as raw JSON.
type DataSummary struct {
	Columns             []ColumnSummary `json:"columns"`
	RowInsights         []RowInsight    `json:"rowInsights"`
	GeneralObservations []string        `json:"generalObservations"`
	PotentialProblems   []string        `json:"potentialProblems"`
}

// ParseDataSummary checks that the raw AI response carries the four keys the
// dashboard depends on. A missing key is an incomplete-response error.
func ParseDataSummary(raw json.RawMessage) (DataSummary, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return DataSummary{}, llm.NewResponseMalformed(string(raw), err)
	}
	for _, required := range []string{"columns", "rowInsights", "generalObservations", "potentialProblems"} {
		if _, ok := keys[required]; !ok {
			return DataSummary{}, llm.NewResponseIncomplete(required)
		}
	}
	var summary DataSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return DataSummary{}, llm.NewResponseMalformed(string(raw), err)
	}
	return summary, nil
}

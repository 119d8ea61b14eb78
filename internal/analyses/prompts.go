package analyses

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"datachat-backend/internal/csvdata"
)

const (
	// Up to this many rows of the cleaned table are embedded in the
	// summary prompt, with long cells truncated.
	promptSampleRows   = 13
	promptMaxCellChars = 100
)

func buildSummaryPrompt(t csvdata.Table) string {
	sample := csvdata.Sample(t, promptSampleRows, promptMaxCellChars)
	lines := make([]string, 0, len(sample))
	for _, row := range sample {
		if b, err := json.Marshal(row); err == nil {
			lines = append(lines, string(b))
		}
	}

	var sb strings.Builder
	sb.WriteString("Analyze the following CSV headers and the provided sample of rows to deliver a comprehensive, structured summary covering both columns and rows.\n")
	fmt.Fprintf(&sb, "Headers: %s.\n", strings.Join(t.Headers, ", "))
	fmt.Fprintf(&sb, "Total number of rows in the dataset: %d.\n", t.RowCount)
	fmt.Fprintf(&sb, "Total number of columns in the dataset: %d.\n", t.ColumnCount)
	fmt.Fprintf(&sb, "Data sample (%d rows):\n%s\n\n", len(sample), strings.Join(lines, "\n"))
	sb.WriteString(`Return a JSON object with the following structure:
{
  "columns": [
    {
      "name": "column_name_1",
      "inferredType": "string/numeric/boolean/date/other",
      "stats": { "mean": null, "median": null, "uniqueValues": null, "missingValues": 0, "min": null, "max": null, "mostFrequent": null },
      "description": "A short description of the column and its potential meaning."
    }
  ],
  "rowInsights": [
    {
      "rowIndexOrIdentifier": "Row number within the sample (0-indexed) or key values identifying the row",
      "observation": "What is special or interesting about this row, e.g. outliers, unusual combinations of values across columns.",
      "relevantColumns": ["column1", "column2"]
    }
  ],
  "generalObservations": [
    "General observation 1...",
    "General observation 2..."
  ],
`)
	fmt.Fprintf(&sb, "  \"rowCountProvidedSample\": %d,\n", len(sample))
	fmt.Fprintf(&sb, "  \"columnCount\": %d,\n", t.ColumnCount)
	sb.WriteString(`  "potentialProblems": ["list any observed potential data quality problems, e.g. many missing values in a column, inconsistencies"]
}
For 'columns.inferredType', use one of: string, numeric, boolean, date, other.
For 'columns.stats', provide the applicable statistics; use null where a statistic does not apply. Always include 'missingValues'. Add 'mostFrequent' for categorical/text columns where it makes sense.
For 'columns.description', briefly describe the column's content and potential meaning.
For 'rowInsights', pick the 2-3 most distinctive rows from the provided sample and describe them. Reference the sample row number (0-indexed) or the key values identifying the row.
For 'generalObservations', give concise, high-level observations.
IMPORTANT: The entire response must be a valid JSON object. Any quote characters (") inside text values MUST be escaped as \".
`)
	return sb.String()
}

func buildNatureDescriptionPrompt(dataSummary json.RawMessage) string {
	var sb strings.Builder
	sb.WriteString("Based on the following data summary (which includes column analysis and row insights):\n")
	sb.Write(indentJSON(dataSummary))
	sb.WriteString("\n\nBriefly describe the overall nature of this dataset in 1-2 sentences.\n")
	sb.WriteString("Suggest 1-2 general types of analysis it would be best suited for, taking into account both the column characteristics and the sample row insights.\n")
	sb.WriteString("The description should be concise and informative. Do not use HTML formatting. Respond in plain text.\n")
	return sb.String()
}

func indentJSON(raw json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return raw
	}
	return buf.Bytes()
}

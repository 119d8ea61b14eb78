package csvdata

import (
	"encoding/csv"
	"io"
	"regexp"
	"strconv"
	"strings"

	"datachat-backend/internal/shared/telemetry"
)

// Table is the cleaned, typed form of an uploaded CSV. Rows hold cell values
// keyed by cleaned header; Headers preserves column order. A cell is a
// float64, bool, string, or nil (missing field).
type Table struct {
	Headers     []string
	Rows        []map[string]any
	RowCount    int
	ColumnCount int
}

// Empty reports whether the table has no usable data.
func (t Table) Empty() bool {
	return t.RowCount == 0 || t.ColumnCount == 0
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// CleanHeader collapses newlines and internal whitespace runs to single
// spaces and trims the result. Idempotent.
func CleanHeader(h string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(h, " "))
}

// Normalize parses raw CSV text and cleans it:
// headers are whitespace-normalized, rows that are blank across every column
// are dropped, columns with no non-empty value in any surviving row are
// dropped, and rows are re-filtered after column pruning. Cell values are
// coerced to numbers and booleans on a best-effort basis. Malformed records
// are logged and skipped, never fatal; a result with zero rows or columns is
// the caller's signal that the file had no usable data.
func Normalize(csvText string) Table {
	reader := csv.NewReader(strings.NewReader(csvText))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return Table{}
	}

	headers := make([]string, len(header))
	for i, h := range header {
		headers[i] = CleanHeader(h)
	}

	var rows []map[string]any
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			telemetry.Warn("csv.parse_error", map[string]any{"err": err.Error()})
			continue
		}
		row := make(map[string]any, len(headers))
		for i, h := range headers {
			if i < len(record) {
				row[h] = coerceCell(record[i])
			} else {
				row[h] = nil
			}
		}
		if !rowEmpty(row, headers) {
			rows = append(rows, row)
		}
	}

	if len(rows) == 0 {
		return Table{Headers: []string{}, Rows: []map[string]any{}}
	}

	// Drop columns with no non-empty value in any surviving row.
	kept := headers[:0:0]
	for _, h := range headers {
		if columnHasData(rows, h) {
			kept = append(kept, h)
		}
	}

	pruned := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		next := make(map[string]any, len(kept))
		for _, h := range kept {
			next[h] = row[h]
		}
		// A row can become fully empty once its only non-blank column is gone.
		if !rowEmpty(next, kept) {
			pruned = append(pruned, next)
		}
	}

	return Table{
		Headers:     kept,
		Rows:        pruned,
		RowCount:    len(pruned),
		ColumnCount: len(kept),
	}
}

// Unparse serializes a cleaned table back to CSV text, headers first.
func Unparse(t Table) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	_ = w.Write(t.Headers)
	for _, row := range t.Rows {
		record := make([]string, len(t.Headers))
		for i, h := range t.Headers {
			record[i] = formatCell(row[h])
		}
		_ = w.Write(record)
	}
	w.Flush()
	return sb.String()
}

// Sample returns up to n rows with string cell values truncated to maxCellLen
// runes, for embedding in prompts.
func Sample(t Table, n, maxCellLen int) []map[string]any {
	if n > t.RowCount {
		n = t.RowCount
	}
	out := make([]map[string]any, 0, n)
	for _, row := range t.Rows[:n] {
		sampled := make(map[string]any, len(row))
		for h, v := range row {
			sampled[h] = truncateCell(v, maxCellLen)
		}
		out = append(out, sampled)
	}
	return out
}

func coerceCell(raw string) any {
	if raw == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	switch strings.ToLower(raw) {
	case "true":
		return true
	case "false":
		return false
	}
	return raw
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}

func truncateCell(v any, maxLen int) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}

func cellEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func rowEmpty(row map[string]any, headers []string) bool {
	for _, h := range headers {
		if !cellEmpty(row[h]) {
			return false
		}
	}
	return true
}

func columnHasData(rows []map[string]any, header string) bool {
	for _, row := range rows {
		if !cellEmpty(row[header]) {
			return true
		}
	}
	return false
}

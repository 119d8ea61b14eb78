package csvdata

import (
	"strings"
	"testing"
)

func TestNormalizeDropsBlankRowsAndEmptyColumns(t *testing.T) {
	table := Normalize("A,B\n1,2\n,\n3,4\n")

	if table.RowCount != 2 || table.ColumnCount != 2 {
		t.Fatalf("expected 2x2 table, got %dx%d", table.RowCount, table.ColumnCount)
	}
	if table.Rows[0]["A"] != float64(1) || table.Rows[1]["B"] != float64(4) {
		t.Fatalf("unexpected cell values: %#v", table.Rows)
	}
}

func TestNormalizeDropsFullyEmptyColumn(t *testing.T) {
	table := Normalize("name,notes,score\nalice,,10\nbob,,20\n")

	if table.ColumnCount != 2 {
		t.Fatalf("expected empty notes column to be dropped, headers: %v", table.Headers)
	}
	for _, h := range table.Headers {
		if h == "notes" {
			t.Fatalf("notes column survived: %v", table.Headers)
		}
	}
}

func TestNormalizeDropsQuotedEmptyRows(t *testing.T) {
	table := Normalize("a,b\n1,2\n\"\",\"\"\n")
	if table.RowCount != 1 {
		t.Fatalf("expected quoted-empty row to be dropped, got %d rows", table.RowCount)
	}
}

func TestNormalizeCoercesTypes(t *testing.T) {
	table := Normalize("n,flag,label\n3.5,true,abc\n")

	row := table.Rows[0]
	if row["n"] != 3.5 {
		t.Fatalf("expected numeric coercion, got %#v", row["n"])
	}
	if row["flag"] != true {
		t.Fatalf("expected boolean coercion, got %#v", row["flag"])
	}
	if row["label"] != "abc" {
		t.Fatalf("expected string passthrough, got %#v", row["label"])
	}
}

func TestNormalizeShortRecordsPadWithNil(t *testing.T) {
	table := Normalize("a,b,c\n1,2,3\n4,5\n")

	if table.RowCount != 2 {
		t.Fatalf("expected both rows kept, got %d", table.RowCount)
	}
	if table.Rows[1]["c"] != nil {
		t.Fatalf("expected missing field to be nil, got %#v", table.Rows[1]["c"])
	}
}

func TestNormalizeEmptyInputs(t *testing.T) {
	for _, input := range []string{"", "a,b\n", "a,b\n,\n,,\n"} {
		table := Normalize(input)
		if !table.Empty() {
			t.Fatalf("expected empty table for %q, got %dx%d", input, table.RowCount, table.ColumnCount)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	input := "  first   name ,b\n1,x\n,\n2,y\n"
	once := Normalize(input)
	twice := Normalize(Unparse(once))

	if once.RowCount != twice.RowCount || once.ColumnCount != twice.ColumnCount {
		t.Fatalf("normalize not idempotent: %dx%d vs %dx%d",
			once.RowCount, once.ColumnCount, twice.RowCount, twice.ColumnCount)
	}
	for i := range once.Headers {
		if once.Headers[i] != twice.Headers[i] {
			t.Fatalf("headers changed on second pass: %v vs %v", once.Headers, twice.Headers)
		}
	}
}

func TestCleanHeader(t *testing.T) {
	cases := map[string]string{
		"  plain  ":        "plain",
		"two\nlines":       "two lines",
		"a \t b":           "a b",
		"already clean":    "already clean",
		"\n\n  spaced\t\t": "spaced",
	}
	for in, want := range cases {
		if got := CleanHeader(in); got != want {
			t.Fatalf("CleanHeader(%q) = %q, want %q", in, got, want)
		}
		if got := CleanHeader(CleanHeader(in)); got != want {
			t.Fatalf("CleanHeader not idempotent for %q: %q", in, got)
		}
	}
}

func TestSampleTruncatesLongCells(t *testing.T) {
	long := strings.Repeat("x", 150)
	table := Normalize("col\n" + long + "\n")

	sample := Sample(table, 13, 100)
	if len(sample) != 1 {
		t.Fatalf("expected 1 sampled row, got %d", len(sample))
	}
	got, ok := sample[0]["col"].(string)
	if !ok || len(got) != 100 {
		t.Fatalf("expected 100-char truncation, got %d chars", len(got))
	}
	// The table itself keeps the full value.
	if full := table.Rows[0]["col"].(string); len(full) != 150 {
		t.Fatalf("sample mutated the table: %d chars", len(full))
	}
}

func TestSampleCapsAtRowCount(t *testing.T) {
	table := Normalize("a\n1\n2\n3\n")
	if got := len(Sample(table, 13, 100)); got != 3 {
		t.Fatalf("expected 3 sampled rows, got %d", got)
	}
}

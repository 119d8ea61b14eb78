package s3

import (
	"strings"
	"testing"
)

func TestNormalizePrefix(t *testing.T) {
	cases := map[string]string{
		"":              "",
		"  ":            "",
		"/":             "",
		"uploads":       "uploads/",
		"uploads/":      "uploads/",
		"/uploads/":     "uploads/",
		" env/uploads ": "env/uploads/",
	}
	for in, want := range cases {
		if got := normalizePrefix(in); got != want {
			t.Fatalf("normalizePrefix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestApplyPrefix(t *testing.T) {
	key := applyPrefix("uploads/", "/raw_csvs/id/file.csv")
	if key != "uploads/raw_csvs/id/file.csv" {
		t.Fatalf("applyPrefix = %q", key)
	}
	if got := applyPrefix("", "raw_csvs/id/file.csv"); got != "raw_csvs/id/file.csv" {
		t.Fatalf("applyPrefix without prefix = %q", got)
	}
}

func TestCountingReader(t *testing.T) {
	counter := &countingReader{r: strings.NewReader("hello world")}
	buf := make([]byte, 4)
	total := 0
	for {
		n, err := counter.Read(buf)
		total += n
		if err != nil {
			break
		}
	}
	if counter.n != int64(total) || counter.n != 11 {
		t.Fatalf("counted %d bytes, read %d", counter.n, total)
	}
}

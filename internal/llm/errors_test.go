package llm

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestMalformedExcerptTruncatesOnRunes(t *testing.T) {
	raw := strings.Repeat("ż", 150)
	err := NewResponseMalformed(raw, nil)

	if got := utf8.RuneCountInString(err.RawExcerpt); got != 100 {
		t.Fatalf("expected a 100-rune excerpt, got %d runes", got)
	}
	if !utf8.ValidString(err.RawExcerpt) {
		t.Fatalf("excerpt is not valid UTF-8: %q", err.RawExcerpt)
	}
	if !strings.HasPrefix(raw, err.RawExcerpt) {
		t.Fatalf("excerpt is not a prefix of the raw text")
	}
}

func TestMalformedExcerptKeepsShortTextIntact(t *testing.T) {
	err := NewResponseMalformed("not json", nil)
	if err.RawExcerpt != "not json" {
		t.Fatalf("short raw text should be kept whole, got %q", err.RawExcerpt)
	}
}

func TestKindOfDefaultsToCallFailed(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != KindCallFailed {
		t.Fatalf("expected %s for a plain error, got %s", KindCallFailed, got)
	}
	if got := KindOf(NewResponseIncomplete("columns")); got != KindResponseIncomplete {
		t.Fatalf("expected %s, got %s", KindResponseIncomplete, got)
	}
}

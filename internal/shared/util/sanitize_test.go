package util

import "testing"

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain", "data.csv", "data.csv", false},
		{"spaces kept", "sales data.csv", "sales data.csv", false},
		{"trimmed", "  report.csv  ", "report.csv", false},
		{"slash replaced", "a/b.csv", "a_b.csv", false},
		{"backslash replaced", `a\b.csv`, "a_b.csv", false},
		{"nul replaced", "a\x00b.csv", "a_b.csv", false},
		{"traversal rejected", "../etc/passwd", "", true},
		{"embedded traversal rejected", "a..b.csv", "", true},
		{"blank rejected", "   ", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SanitizeFileName(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %q", tc.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error for %q: %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

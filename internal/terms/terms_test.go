package terms

import (
	"testing"
	"time"
)

func TestResolve_KnownCodes(t *testing.T) {
	issue := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		code string
		days int
	}{
		{"Due Today", 0},
		{"Due on Receipt", 0},
		{"Net 7", 7},
		{"Net 9", 9},
		{"Net 14", 14},
		{"Net 15", 15},
		{"Net 30", 30},
		{"Net 60", 60},
		{"Net 90", 90},
		{"14 calendar days", 14},
		{"1 calendar day", 1},
	}
	for _, tc := range cases {
		got := Resolve(issue, tc.code)
		want := issue.AddDate(0, 0, tc.days)
		if !got.Equal(want) {
			t.Fatalf("%q: expected %s, got %s", tc.code, want, got)
		}
	}
}

func TestResolve_CaseInsensitive(t *testing.T) {
	issue := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	if got := Resolve(issue, "NET 30"); !got.Equal(issue.AddDate(0, 0, 30)) {
		t.Fatalf("expected net 30 match, got %s", got)
	}
	if got := Resolve(issue, "  due on receipt  "); !got.Equal(issue) {
		t.Fatalf("expected issue date for due on receipt, got %s", got)
	}
}

func TestResolve_UnknownCodeFallsBackToIssueDate(t *testing.T) {
	issue := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, code := range []string{"", "whenever", "net thirty", "30"} {
		if got := Resolve(issue, code); !got.Equal(issue) {
			t.Fatalf("%q: expected issue date unchanged, got %s", code, got)
		}
	}
}

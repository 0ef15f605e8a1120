package grader

import "testing"

func TestOutputMatches(t *testing.T) {
	tests := []struct {
		name     string
		actual   string
		expected string
		want     bool
	}{
		{"exact", "3", "3", true},
		{"trailing newline ignored", "3\n", "3", true},
		{"trailing spaces ignored", "3   \n\n", "3", true},
		{"leading whitespace ignored", "\n  3", "3", true},
		{"crlf normalized", "foo\r\nbar\r\n", "foo\nbar", true},
		{"inner whitespace strict", "1  2", "1 2", false},
		{"case strict", "Yes", "yes", false},
		{"multiline", "1\n2\n3\n", "1\n2\n3", true},
		{"mismatch", "4", "3", false},
		{"empty both", "", "", true},
		{"empty vs output", "", "3", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := outputMatches(tc.actual, tc.expected); got != tc.want {
				t.Fatalf("outputMatches(%q, %q) = %v, want %v", tc.actual, tc.expected, got, tc.want)
			}
		})
	}
}

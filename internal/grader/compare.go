package grader

import "strings"

// normalizeOutput maps CRLF to LF and strips leading and trailing
// whitespace from the whole payload.
func normalizeOutput(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
}

// outputMatches compares program output against the expected payload
// byte-exactly after normalization. No token-level comparison; the
// problem set relies on strict match.
func outputMatches(actual, expected string) bool {
	return normalizeOutput(actual) == normalizeOutput(expected)
}
